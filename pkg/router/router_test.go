package router

import (
	"context"
	"errors"
	"testing"

	"procedure-qa-be/internal/pkg/logger"
	"procedure-qa-be/pkg/resilience"
	"procedure-qa-be/pkg/store"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

var _ logger.ILogger = nopLogger{}

func testConfig() Config {
	return Config{
		TopK:          5,
		HighThreshold: 0.80,
		LowThreshold:  0.55,
		TieEpsilon:    0.03,
	}
}

func newTestRouter(cache *Cache, embedder *stubEmbedder) *Router {
	exec := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1}, nopLogger{})
	return NewRouter(cache, embedder, exec, nopLogger{}, testConfig())
}

func TestRoute_ConfidenceBands(t *testing.T) {
	tests := []struct {
		name           string
		exampleVector  []float32
		wantConfidence store.ConfidenceLevel
		wantAmbiguous  bool
	}{
		{
			name:           "high confidence clear winner",
			exampleVector:  []float32{0, 0, 1},
			wantConfidence: store.ConfidenceHigh,
			wantAmbiguous:  false,
		},
		{
			name:           "medium confidence is ambiguous",
			exampleVector:  []float32{0, 0.8, 0.6},
			wantConfidence: store.ConfidenceMedium,
			wantAmbiguous:  true,
		},
		{
			name:           "low confidence is ambiguous",
			exampleVector:  []float32{0, 1, 0},
			wantConfidence: store.ConfidenceLow,
			wantAmbiguous:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewCache([]CacheEntry{
				{ExampleID: "e1", CollectionID: "c1", Question: "q1", Vector: tt.exampleVector},
			})
			r := newTestRouter(cache, &stubEmbedder{})

			result, err := r.Route(context.Background(), "anything")
			if err != nil {
				t.Fatalf("Route() error = %v", err)
			}
			if result.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %s, want %s", result.Confidence, tt.wantConfidence)
			}
			if result.IsAmbiguous != tt.wantAmbiguous {
				t.Errorf("IsAmbiguous = %v, want %v", result.IsAmbiguous, tt.wantAmbiguous)
			}
		})
	}
}

func TestRoute_TieEpsilonForcesAmbiguity(t *testing.T) {
	// Both examples nearly identical to the query: HIGH band but a near-tie.
	cache := NewCache([]CacheEntry{
		{ExampleID: "e1", CollectionID: "c1", Question: "q1", Vector: []float32{0, 0.01, 0.999}},
		{ExampleID: "e2", CollectionID: "c2", Question: "q2", Vector: []float32{0.01, 0, 0.999}},
	})
	r := newTestRouter(cache, &stubEmbedder{})

	result, err := r.Route(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if result.Confidence != store.ConfidenceHigh {
		t.Fatalf("Confidence = %s, want HIGH", result.Confidence)
	}
	if !result.IsAmbiguous {
		t.Error("IsAmbiguous = false, want true for near-tie candidates")
	}
}

func TestRoute_ClearWinnerBeyondEpsilon(t *testing.T) {
	cache := NewCache([]CacheEntry{
		{ExampleID: "e1", CollectionID: "c1", Question: "q1", Vector: []float32{0, 0, 1}},
		{ExampleID: "e2", CollectionID: "c2", Question: "q2", Vector: []float32{0, 0.6, 0.8}},
	})
	r := newTestRouter(cache, &stubEmbedder{})

	result, err := r.Route(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if result.BestCandidate.CollectionID != "c1" {
		t.Errorf("BestCandidate.CollectionID = %s, want c1", result.BestCandidate.CollectionID)
	}
	if result.IsAmbiguous {
		t.Error("IsAmbiguous = true, want false for a clear winner")
	}
}

func TestRoute_EmptyCache(t *testing.T) {
	r := newTestRouter(NewEmptyCache(), &stubEmbedder{})

	result, err := r.Route(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if result.Confidence != store.ConfidenceLow {
		t.Errorf("Confidence = %s, want LOW", result.Confidence)
	}
	if len(result.Candidates) != 0 {
		t.Errorf("Candidates length = %d, want 0", len(result.Candidates))
	}
	if !result.IsAmbiguous {
		t.Error("IsAmbiguous = false, want true for empty cache")
	}
}

func TestRoute_EmbeddingFailure(t *testing.T) {
	r := newTestRouter(NewEmptyCache(), &stubEmbedder{err: errors.New("connection refused")})

	_, err := r.Route(context.Background(), "anything")
	if !errors.Is(err, ErrRoutingUnavailable) {
		t.Errorf("Route() error = %v, want ErrRoutingUnavailable", err)
	}
}

func TestRoute_DeathRegistrationOutranksBirth(t *testing.T) {
	// The death-registration example vector sits much closer to the query
	// than the birth-registration one; routing must separate them cleanly.
	embedder := &stubEmbedder{
		vectors: map[string][]float32{
			"làm sao để khai tử người thân": {0.05, 0.10, 0.99},
		},
	}
	cache := NewCache([]CacheEntry{
		{ExampleID: "khai-sinh", CollectionID: "ho-tich", DocumentID: "d-sinh", Question: "Đăng ký khai sinh", Vector: []float32{0.70, 0.60, 0.38}},
		{ExampleID: "khai-tu", CollectionID: "ho-tich", DocumentID: "d-tu", Question: "Đăng ký khai tử", Vector: []float32{0.06, 0.12, 0.99}},
	})
	r := newTestRouter(cache, embedder)

	result, err := r.Route(context.Background(), "làm sao để khai tử người thân")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if result.BestCandidate.ExampleID != "khai-tu" {
		t.Fatalf("BestCandidate = %s, want khai-tu", result.BestCandidate.ExampleID)
	}
	if result.BestCandidate.Similarity <= 0.9 {
		t.Errorf("Similarity = %f, want > 0.9", result.BestCandidate.Similarity)
	}
	if result.IsAmbiguous {
		t.Error("IsAmbiguous = true, want false")
	}
}

func TestRoute_PriorityBreaksExactTies(t *testing.T) {
	sameVector := []float32{0, 0, 1}
	cache := NewCache([]CacheEntry{
		{ExampleID: "e-low", CollectionID: "c1", Question: "q", Vector: sameVector, PriorityScore: 0.1},
		{ExampleID: "e-high", CollectionID: "c2", Question: "q", Vector: sameVector, PriorityScore: 0.9},
	})
	r := newTestRouter(cache, &stubEmbedder{})

	result, err := r.Route(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if result.BestCandidate.ExampleID != "e-high" {
		t.Errorf("BestCandidate = %s, want e-high (priority tie-break)", result.BestCandidate.ExampleID)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{0, 1}, []float32{0, 1}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"mismatched lengths", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{0, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}
