package entity

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is one embedded passage of a document. ChunkIndex orders chunks
// within their document so neighbors can be fetched for context expansion.
type Chunk struct {
	Id             uuid.UUID
	DocumentId     uuid.UUID
	ChunkIndex     int
	Content        string
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
