package resolve

import (
	"testing"

	"procedure-qa-be/pkg/router"
	"procedure-qa-be/pkg/store"
)

type staticCacheSource struct {
	cache *router.Cache
}

func (s staticCacheSource) Cache() *router.Cache { return s.cache }

func highConfidenceResult(queryVector []float32) *store.RoutingResult {
	candidates := []store.RoutingCandidate{
		{CollectionID: "civil-status", ExampleID: "e1", Similarity: 0.92},
	}
	return &store.RoutingResult{
		BestCandidate: &candidates[0],
		Candidates:    candidates,
		Confidence:    store.ConfidenceHigh,
		IsAmbiguous:   false,
		QueryVector:   queryVector,
	}
}

func TestShouldClarify(t *testing.T) {
	cache := router.NewCache([]router.CacheEntry{
		{ExampleID: "e1", CollectionID: "civil-status", Vector: []float32{0, 0, 1}},
	})

	tests := []struct {
		name    string
		result  *store.RoutingResult
		session *store.Session
		want    bool
	}{
		{
			name:    "ambiguous routing always clarifies",
			result:  &store.RoutingResult{IsAmbiguous: true},
			session: &store.Session{},
			want:    true,
		},
		{
			name:    "high confidence without prior context proceeds",
			result:  highConfidenceResult([]float32{0, 0, 1}),
			session: &store.Session{},
			want:    false,
		},
		{
			name:   "continuity with prior topic proceeds",
			result: highConfidenceResult([]float32{0, 0.1, 0.99}),
			session: &store.Session{
				RoutingContext: &store.RoutingContext{MatchedExampleID: "e1"},
			},
			want: false,
		},
		{
			name:   "topic shift away from prior context clarifies",
			result: highConfidenceResult([]float32{1, 0, 0}),
			session: &store.Session{
				RoutingContext: &store.RoutingContext{MatchedExampleID: "e1"},
			},
			want: true,
		},
		{
			name:   "stale example id in prior context clarifies",
			result: highConfidenceResult([]float32{0, 0, 1}),
			session: &store.Session{
				RoutingContext: &store.RoutingContext{MatchedExampleID: "gone"},
			},
			want: true,
		},
		{
			name:    "nil session proceeds on high confidence",
			result:  highConfidenceResult([]float32{0, 0, 1}),
			session: nil,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAmbiguityResolver(staticCacheSource{cache: cache}, 0.40)
			if got := a.ShouldClarify(tt.result, tt.session); got != tt.want {
				t.Errorf("ShouldClarify() = %v, want %v", got, tt.want)
			}
		})
	}
}
