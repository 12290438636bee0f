package entity

import (
	"time"

	"github.com/google/uuid"
)

// RouteExample is a canonical example question attached to a document.
// The router matches incoming queries against these.
type RouteExample struct {
	Id             uuid.UUID
	CollectionId   string
	DocumentId     uuid.UUID
	Question       string
	EmbeddingValue []float32
	PriorityScore  float64 // tie-breaker between equally similar examples
	Metadata       map[string]interface{} // JSONB
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
