package embedding

import "context"

// Task types hint retrieval-oriented models at asymmetric encodings.
// Providers that do not distinguish them may ignore the hint.
const (
	TaskTypeQuery    = "RETRIEVAL_QUERY"
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
)

// EmbeddingProvider generates a unit-length vector for a piece of text.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
}
