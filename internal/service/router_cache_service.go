package service

import (
	"context"

	"procedure-qa-be/internal/pkg/logger"
	"procedure-qa-be/internal/repository/unitofwork"
	"procedure-qa-be/pkg/router"
)

type IRouterCacheService interface {
	// Build returns the routing index, preferring the serialized blob on
	// disk and falling back to the database.
	Build(ctx context.Context) (*router.Cache, error)
	// Rebuild always reads from the database and rewrites the blob.
	Rebuild(ctx context.Context) (*router.Cache, error)
}

type routerCacheService struct {
	uowFactory unitofwork.RepositoryFactory
	cachePath  string
	log        logger.ILogger
}

func NewRouterCacheService(uowFactory unitofwork.RepositoryFactory, cachePath string, log logger.ILogger) IRouterCacheService {
	return &routerCacheService{
		uowFactory: uowFactory,
		cachePath:  cachePath,
		log:        log,
	}
}

func (s *routerCacheService) Build(ctx context.Context) (*router.Cache, error) {
	if s.cachePath != "" {
		if cache, err := router.LoadCacheFile(s.cachePath); err == nil && cache.Len() > 0 {
			s.log.Info("router_cache", "loaded from blob", map[string]interface{}{
				"path":    s.cachePath,
				"entries": cache.Len(),
			})
			return cache, nil
		}
	}
	return s.Rebuild(ctx)
}

func (s *routerCacheService) Rebuild(ctx context.Context) (*router.Cache, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	examples, err := uow.RouteExampleRepository().FindAll(ctx)
	if err != nil {
		return nil, err
	}

	var entries []router.CacheEntry
	for _, e := range examples {
		// Examples awaiting their embedding worker pass are not routable yet.
		if len(e.EmbeddingValue) == 0 {
			continue
		}
		entries = append(entries, router.CacheEntry{
			ExampleID:     e.Id.String(),
			CollectionID:  e.CollectionId,
			DocumentID:    e.DocumentId.String(),
			Question:      e.Question,
			Vector:        e.EmbeddingValue,
			PriorityScore: e.PriorityScore,
		})
	}

	cache := router.NewCache(entries)
	s.log.Info("router_cache", "rebuilt from database", map[string]interface{}{
		"entries": cache.Len(),
		"skipped": len(examples) - cache.Len(),
	})

	if s.cachePath != "" {
		if err := router.SaveCacheFile(s.cachePath, cache); err != nil {
			s.log.Warn("router_cache", "blob write failed", map[string]interface{}{
				"path":  s.cachePath,
				"error": err.Error(),
			})
		}
	}
	return cache, nil
}
