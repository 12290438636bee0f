package implementation

import (
	"context"
	"errors"

	"procedure-qa-be/internal/entity"
	"procedure-qa-be/internal/mapper"
	"procedure-qa-be/internal/model"
	"procedure-qa-be/internal/repository/contract"
	"procedure-qa-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type RouteExampleRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RouteExampleMapper
}

func NewRouteExampleRepository(db *gorm.DB) contract.RouteExampleRepository {
	return &RouteExampleRepositoryImpl{
		db:     db,
		mapper: mapper.NewRouteExampleMapper(),
	}
}

func (r *RouteExampleRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *RouteExampleRepositoryImpl) Create(ctx context.Context, example *entity.RouteExample) error {
	m := r.mapper.ToModel(example)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*example = *r.mapper.ToEntity(m)
	return nil
}

func (r *RouteExampleRepositoryImpl) CreateBulk(ctx context.Context, examples []*entity.RouteExample) error {
	if len(examples) == 0 {
		return nil
	}
	models := make([]*model.RouteExample, len(examples))
	for i, e := range examples {
		models[i] = r.mapper.ToModel(e)
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*examples[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *RouteExampleRepositoryImpl) Update(ctx context.Context, example *entity.RouteExample) error {
	m := r.mapper.ToModel(example)
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *RouteExampleRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.RouteExample{}, id).Error
}

func (r *RouteExampleRepositoryImpl) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentId).Delete(&model.RouteExample{}).Error
}

func (r *RouteExampleRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RouteExample, error) {
	var m model.RouteExample
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *RouteExampleRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RouteExample, error) {
	var models []*model.RouteExample
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *RouteExampleRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.RouteExample{}).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore matches the query against all example questions.
// No collection filter here: routing decides the collection, it does not
// receive one.
func (r *RouteExampleRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*contract.ScoredRouteExample, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.RouteExample
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("route_examples").
		Select("route_examples.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredRouteExample, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredRouteExample{
			Example:    r.mapper.ToEntity(&res.RouteExample),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
