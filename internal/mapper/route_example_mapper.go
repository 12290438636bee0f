package mapper

import (
	"encoding/json"
	"time"

	"procedure-qa-be/internal/entity"
	"procedure-qa-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type RouteExampleMapper struct{}

func NewRouteExampleMapper() *RouteExampleMapper {
	return &RouteExampleMapper{}
}

func (m *RouteExampleMapper) ToEntity(e *model.RouteExample) *entity.RouteExample {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	var metadata map[string]interface{}
	if len(e.Metadata) > 0 {
		_ = json.Unmarshal(e.Metadata, &metadata)
	}

	return &entity.RouteExample{
		Id:             e.Id,
		CollectionId:   e.CollectionId,
		DocumentId:     e.DocumentId,
		Question:       e.Question,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		PriorityScore:  e.PriorityScore,
		Metadata:       metadata,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *RouteExampleMapper) ToModel(e *entity.RouteExample) *model.RouteExample {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	var metadata datatypes.JSON
	if e.Metadata != nil {
		raw, err := json.Marshal(e.Metadata)
		if err == nil {
			metadata = raw
		}
	}

	return &model.RouteExample{
		Id:             e.Id,
		CollectionId:   e.CollectionId,
		DocumentId:     e.DocumentId,
		Question:       e.Question,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		PriorityScore:  e.PriorityScore,
		Metadata:       metadata,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *RouteExampleMapper) ToEntities(examples []*model.RouteExample) []*entity.RouteExample {
	entities := make([]*entity.RouteExample, len(examples))
	for i, e := range examples {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
