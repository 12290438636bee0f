package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"procedure-qa-be/internal/pkg/logger"
	"procedure-qa-be/pkg/rerank"
	"procedure-qa-be/pkg/resilience"
	"procedure-qa-be/pkg/store"
)

// ErrIndexUnavailable means the vector index itself failed. There is no
// degraded path without it; retrieval is simply impossible.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// ChunkSearcher is the vector index collaborator.
type ChunkSearcher interface {
	SearchSimilar(ctx context.Context, vector []float32, k int, floor float64, scope store.HardFilter) ([]store.RetrievedChunk, error)
	Neighbors(ctx context.Context, documentID string, centerIndex, window int) ([]store.RetrievedChunk, error)
}

// DocumentLoader fetches a document's full text for whole-document expansion.
type DocumentLoader interface {
	LoadDocument(ctx context.Context, documentID string) (string, error)
}

// Config tunes the pipeline stages.
type Config struct {
	BroadK            int     // broad pass fetch size
	BroadFloor        float64 // permissive recall floor for the broad pass
	NucleusFloor      float64 // nucleus score below this flags low confidence
	ExpansionWindow   int     // adjacent chunks on each side of the nucleus
	FullDocumentMode  bool
	FullDocCharBudget int // documents up to this size are loaded whole
}

// Pipeline runs broad search, a full rerank of every broad candidate,
// nucleus selection, and context expansion.
type Pipeline struct {
	searcher ChunkSearcher
	loader   DocumentLoader
	reranker rerank.RerankProvider
	exec     *resilience.Executor
	log      logger.ILogger
	cfg      Config
}

func NewPipeline(searcher ChunkSearcher, loader DocumentLoader, reranker rerank.RerankProvider, exec *resilience.Executor, log logger.ILogger, cfg Config) *Pipeline {
	if cfg.BroadK <= 0 {
		cfg.BroadK = 20
	}
	if cfg.ExpansionWindow <= 0 {
		cfg.ExpansionWindow = 2
	}
	return &Pipeline{
		searcher: searcher,
		loader:   loader,
		reranker: reranker,
		exec:     exec,
		log:      log,
		cfg:      cfg,
	}
}

// Retrieve turns a resolved query into an expanded context. An index
// failure is a hard error; every other stage degrades and records it.
func (p *Pipeline) Retrieve(ctx context.Context, resolvedQuery string, queryVector []float32, filter store.HardFilter) (*Result, error) {
	result := &Result{}

	// Stage 1: broad search, recall over precision. A strict floor here
	// cannot be corrected downstream.
	chunks, err := p.searcher.SearchSimilar(ctx, queryVector, p.cfg.BroadK, p.cfg.BroadFloor, filter)
	if err != nil {
		p.log.Error("retrieval", "broad search failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	if len(chunks) == 0 {
		result.report(StageBroadSearch, StageSuccess, "no candidates above floor")
		return result, nil
	}
	result.report(StageBroadSearch, StageSuccess, "")

	// Stage 2: rerank every broad candidate. Truncating the set before
	// reranking loses exactly the matches the broad pass misjudged.
	chunks = p.rerankAll(ctx, resolvedQuery, chunks, result)

	// Stage 3: nucleus selection.
	nucleus := chunks[0]
	lowConfidence := p.nucleusScore(nucleus) < p.cfg.NucleusFloor
	if lowConfidence {
		result.report(StageNucleus, StageSuccess, "score below sanity floor")
	} else {
		result.report(StageNucleus, StageSuccess, "")
	}

	// Stage 4: context expansion. Failure falls back to the nucleus alone.
	expanded := p.expand(ctx, nucleus, result)
	expanded.LowConfidence = lowConfidence
	result.Context = expanded

	return result, nil
}

// rerankAll scores the whole candidate set and reorders it. When the
// reranker is down the similarity order stands, flagged as degraded.
func (p *Pipeline) rerankAll(ctx context.Context, resolvedQuery string, chunks []store.RetrievedChunk, result *Result) []store.RetrievedChunk {
	if p.reranker == nil {
		result.report(StageRerank, StageDegraded, "no reranker configured")
		return p.sortBySimilarity(chunks)
	}

	docs := make([]string, len(chunks))
	for i, c := range chunks {
		docs[i] = c.Content
	}

	var scores []rerank.Result
	err := p.exec.Execute(ctx, "rerank", func(ctx context.Context) error {
		var rerankErr error
		scores, rerankErr = p.reranker.Rerank(ctx, resolvedQuery, docs)
		return rerankErr
	})
	if err != nil {
		p.log.Warn("retrieval", "rerank unavailable, keeping similarity order", map[string]interface{}{
			"error":        err.Error(),
			"circuit_open": resilience.IsCircuitOpen(err),
		})
		result.report(StageRerank, StageDegraded, "reranker unavailable")
		return p.sortBySimilarity(chunks)
	}

	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(chunks) {
			continue
		}
		score := s.Score
		chunks[s.Index].RerankScore = &score
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		si, sj := p.nucleusScore(chunks[i]), p.nucleusScore(chunks[j])
		if si != sj {
			return si > sj
		}
		if chunks[i].Similarity != chunks[j].Similarity {
			return chunks[i].Similarity > chunks[j].Similarity
		}
		return chunks[i].ChunkID < chunks[j].ChunkID
	})

	result.report(StageRerank, StageSuccess, "")
	return chunks
}

func (p *Pipeline) sortBySimilarity(chunks []store.RetrievedChunk) []store.RetrievedChunk {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Similarity != chunks[j].Similarity {
			return chunks[i].Similarity > chunks[j].Similarity
		}
		return chunks[i].ChunkID < chunks[j].ChunkID
	})
	return chunks
}

// nucleusScore is the rerank score once set, similarity before that.
func (p *Pipeline) nucleusScore(c store.RetrievedChunk) float64 {
	if c.RerankScore != nil {
		return *c.RerankScore
	}
	return c.Similarity
}

// expand builds the final context around the nucleus. Whole-document mode
// applies only when the document fits the budget; otherwise, and on any
// loader failure, the adjacent-chunk window is used, and if that also
// fails the nucleus stands alone.
func (p *Pipeline) expand(ctx context.Context, nucleus store.RetrievedChunk, result *Result) *store.ExpandedContext {
	expanded := &store.ExpandedContext{
		Nucleus:           nucleus,
		SourceDocumentIDs: []string{nucleus.DocumentID},
	}

	if p.cfg.FullDocumentMode {
		text, err := p.loader.LoadDocument(ctx, nucleus.DocumentID)
		if err == nil && len(text) <= p.cfg.FullDocCharBudget {
			expanded.FullDocumentText = text
			expanded.TotalCharLength = len(nucleus.Content) + len(text)
			result.report(StageExpansion, StageSuccess, "full document")
			return expanded
		}
		if err != nil {
			p.log.Warn("retrieval", "full document load failed, trying window expansion", map[string]interface{}{
				"document_id": nucleus.DocumentID,
				"error":       err.Error(),
			})
		}
	}

	neighbors, err := p.searcher.Neighbors(ctx, nucleus.DocumentID, nucleus.ChunkIndex, p.cfg.ExpansionWindow)
	if err != nil {
		p.log.Warn("retrieval", "window expansion failed, nucleus only", map[string]interface{}{
			"document_id": nucleus.DocumentID,
			"error":       err.Error(),
		})
		expanded.TotalCharLength = len(nucleus.Content)
		result.report(StageExpansion, StageDegraded, "expansion unavailable, nucleus only")
		return expanded
	}

	total := len(nucleus.Content)
	for _, n := range neighbors {
		if n.ChunkID == nucleus.ChunkID {
			continue
		}
		expanded.SupportingChunks = append(expanded.SupportingChunks, n)
		total += len(n.Content)
	}
	expanded.TotalCharLength = total
	result.report(StageExpansion, StageSuccess, "adjacent window")
	return expanded
}
