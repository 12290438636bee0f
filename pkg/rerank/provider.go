package rerank

import "context"

// Result is one scored document from a rerank call. Index refers to the
// position in the submitted documents slice.
type Result struct {
	Index int
	Score float64
}

// RerankProvider scores documents against a query with a cross-encoder.
// Scores are comparable only within one call.
type RerankProvider interface {
	Rerank(ctx context.Context, query string, documents []string) ([]Result, error)
}
