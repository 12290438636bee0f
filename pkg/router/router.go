package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"procedure-qa-be/internal/pkg/logger"
	"procedure-qa-be/pkg/embedding"
	"procedure-qa-be/pkg/resilience"
	"procedure-qa-be/pkg/store"
)

// ErrRoutingUnavailable means the query could not be embedded, so no
// routing decision is possible at all.
var ErrRoutingUnavailable = errors.New("routing unavailable: embedding service failed")

// Config holds the router's thresholds. High and Low bound the confidence
// bands; TieEpsilon forces ambiguity when the top two candidates are too
// close to trust a single winner.
type Config struct {
	TopK          int
	HighThreshold float64
	LowThreshold  float64
	TieEpsilon    float64
}

// Router matches a query against the cached example vectors and reports
// how much the best match can be trusted. The index is held behind an
// atomic pointer so the embedding worker can swap in a rebuilt cache
// while requests are in flight.
type Router struct {
	cache    atomic.Pointer[Cache]
	embedder embedding.EmbeddingProvider
	exec     *resilience.Executor
	log      logger.ILogger
	cfg      Config
}

func NewRouter(cache *Cache, embedder embedding.EmbeddingProvider, exec *resilience.Executor, log logger.ILogger, cfg Config) *Router {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	r := &Router{
		embedder: embedder,
		exec:     exec,
		log:      log,
		cfg:      cfg,
	}
	if cache == nil {
		cache = NewEmptyCache()
	}
	r.cache.Store(cache)
	return r
}

// Cache exposes the current routing index for continuity checks downstream.
func (r *Router) Cache() *Cache {
	return r.cache.Load()
}

// Reload swaps in a rebuilt routing index. In-flight requests keep the
// snapshot they loaded.
func (r *Router) Reload(cache *Cache) {
	if cache == nil {
		return
	}
	r.cache.Store(cache)
}

// Route embeds the query and scores it against every cached example.
// An empty cache yields a LOW result with no candidates, never an error;
// an embedding failure is ErrRoutingUnavailable.
func (r *Router) Route(ctx context.Context, queryText string) (*store.RoutingResult, error) {
	var vector []float32
	err := r.exec.Execute(ctx, "embed_query", func(ctx context.Context) error {
		var embedErr error
		vector, embedErr = r.embedder.Generate(ctx, queryText, embedding.TaskTypeQuery)
		return embedErr
	})
	if err != nil {
		r.log.Error("router", "query embedding failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrRoutingUnavailable, err)
	}

	cache := r.cache.Load()
	if cache.Len() == 0 {
		r.log.Warn("router", "routing cache empty, forcing LOW confidence", nil)
		return &store.RoutingResult{
			Candidates:  []store.RoutingCandidate{},
			Confidence:  store.ConfidenceLow,
			IsAmbiguous: true,
			QueryVector: vector,
		}, nil
	}

	candidates := r.scoreAll(cache, vector)
	if len(candidates) > r.cfg.TopK {
		candidates = candidates[:r.cfg.TopK]
	}

	result := &store.RoutingResult{
		BestCandidate: &candidates[0],
		Candidates:    candidates,
		Confidence:    r.confidenceBand(candidates[0].Similarity),
		QueryVector:   vector,
	}
	result.IsAmbiguous = r.isAmbiguous(result)

	r.log.Debug("router", "query routed", map[string]interface{}{
		"best_collection": result.BestCandidate.CollectionID,
		"best_similarity": result.BestCandidate.Similarity,
		"confidence":      string(result.Confidence),
		"is_ambiguous":    result.IsAmbiguous,
	})
	return result, nil
}

func (r *Router) scoreAll(cache *Cache, vector []float32) []store.RoutingCandidate {
	entries := cache.Entries()
	candidates := make([]store.RoutingCandidate, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		candidates = append(candidates, store.RoutingCandidate{
			CollectionID:  e.CollectionID,
			DocumentID:    e.DocumentID,
			ExampleID:     e.ExampleID,
			ExampleText:   e.Question,
			Similarity:    CosineSimilarity(vector, e.Vector),
			PriorityScore: e.PriorityScore,
		})
	}

	// Ties broken by priority score, then example id for determinism.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		if candidates[i].PriorityScore != candidates[j].PriorityScore {
			return candidates[i].PriorityScore > candidates[j].PriorityScore
		}
		return candidates[i].ExampleID < candidates[j].ExampleID
	})
	return candidates
}

func (r *Router) confidenceBand(topSimilarity float64) store.ConfidenceLevel {
	switch {
	case topSimilarity >= r.cfg.HighThreshold:
		return store.ConfidenceHigh
	case topSimilarity >= r.cfg.LowThreshold:
		return store.ConfidenceMedium
	default:
		return store.ConfidenceLow
	}
}

// isAmbiguous holds exactly when confidence is not HIGH, or the top two
// candidates sit within the tie epsilon of each other.
func (r *Router) isAmbiguous(result *store.RoutingResult) bool {
	if result.Confidence != store.ConfidenceHigh {
		return true
	}
	if len(result.Candidates) >= 2 {
		gap := result.Candidates[0].Similarity - result.Candidates[1].Similarity
		if gap < r.cfg.TieEpsilon {
			return true
		}
	}
	return false
}
