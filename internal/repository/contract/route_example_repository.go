package contract

import (
	"context"

	"procedure-qa-be/internal/entity"
	"procedure-qa-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredRouteExample wraps a RouteExample with its similarity score.
type ScoredRouteExample struct {
	Example    *entity.RouteExample
	Similarity float64
}

type RouteExampleRepository interface {
	Create(ctx context.Context, example *entity.RouteExample) error
	CreateBulk(ctx context.Context, examples []*entity.RouteExample) error
	Update(ctx context.Context, example *entity.RouteExample) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RouteExample, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RouteExample, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilarWithScore matches the query vector against example
	// questions across the whole corpus. Routing has no hard filter; the
	// result set itself decides which collection wins.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*ScoredRouteExample, error)
}
