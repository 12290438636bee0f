package contract

import (
	"context"

	"procedure-qa-be/internal/entity"
	"procedure-qa-be/internal/repository/specification"
	"procedure-qa-be/pkg/store"

	"github.com/google/uuid"
)

// ScoredChunk wraps a Chunk with its cosine similarity against the query vector.
type ScoredChunk struct {
	Chunk      *entity.Chunk
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type ChunkRepository interface {
	Create(ctx context.Context, chunk *entity.Chunk) error
	CreateBulk(ctx context.Context, chunks []*entity.Chunk) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chunk, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilarWithScore returns chunks with their similarity scores,
	// filtered by threshold and scoped by the hard filter. Never searches
	// outside the filter's collection.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, scope store.HardFilter) ([]*ScoredChunk, error)
	// FindNeighbors loads chunks of a document whose index falls in
	// [centerIndex-window, centerIndex+window], ordered by chunk_index.
	FindNeighbors(ctx context.Context, documentId uuid.UUID, centerIndex int, window int) ([]*entity.Chunk, error)
}
