package service

import (
	"context"
	"encoding/json"
	"time"

	"procedure-qa-be/internal/dto"
	"procedure-qa-be/internal/entity"
	"procedure-qa-be/internal/pkg/logger"
	"procedure-qa-be/internal/repository/specification"
	"procedure-qa-be/internal/repository/unitofwork"
	"procedure-qa-be/pkg/events"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Create(ctx context.Context, req *dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	Update(ctx context.Context, id uuid.UUID, req *dto.UpdateDocumentRequest) (*dto.DocumentResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetById(ctx context.Context, id uuid.UUID) (*dto.DocumentResponse, error)
	List(ctx context.Context, req *dto.ListDocumentsRequest) ([]*dto.DocumentResponse, error)
	ListCollections(ctx context.Context) (*dto.CollectionListResponse, error)
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   EventPublisher
	log              logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher EventPublisher,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		log:              log,
	}
}

func (s *documentService) Create(ctx context.Context, req *dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document := entity.Document{
		Id:           uuid.New(),
		CollectionId: req.CollectionID,
		Title:        req.Title,
		Content:      req.Content,
		Metadata:     req.Metadata,
		CreatedAt:    time.Now(),
	}

	var examples []*entity.RouteExample
	for _, in := range req.Examples {
		examples = append(examples, &entity.RouteExample{
			Id:            uuid.New(),
			CollectionId:  req.CollectionID,
			DocumentId:    document.Id,
			Question:      in.Question,
			PriorityScore: in.PriorityScore,
			CreatedAt:     time.Now(),
		})
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().Create(ctx, &document); err != nil {
		return nil, err
	}

	// Examples are stored without vectors; the embedding worker fills them
	// in the same pass that embeds the document's chunks.
	if len(examples) > 0 {
		if err := uow.RouteExampleRepository().CreateBulk(ctx, examples); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if err := s.publishEmbedMessage(ctx, document.Id); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		evt := events.NewDocumentIngestedEvent(document.Id.String(), document.CollectionId, 0)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.log.Warn("document_service", "ingest event publish failed", map[string]interface{}{
				"document_id": document.Id.String(),
				"error":       err.Error(),
			})
		}
	}

	return toDocumentResponse(&document, 0), nil
}

func (s *documentService) Update(ctx context.Context, id uuid.UUID, req *dto.UpdateDocumentRequest) (*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil
	}

	now := time.Now()
	contentChanged := false
	if req.Title != "" {
		document.Title = req.Title
	}
	if req.Content != "" && req.Content != document.Content {
		document.Content = req.Content
		contentChanged = true
	}
	if req.Metadata != nil {
		document.Metadata = req.Metadata
	}
	document.UpdatedAt = &now

	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		return nil, err
	}

	// Re-embedding is only needed when the text itself moved.
	if contentChanged {
		if err := s.publishEmbedMessage(ctx, document.Id); err != nil {
			return nil, err
		}
	}

	return toDocumentResponse(document, 0), nil
}

func (s *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if document == nil {
		return nil
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}
	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}
	if err := uow.RouteExampleRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}

	return uow.Commit()
}

func (s *documentService) GetById(ctx context.Context, id uuid.UUID) (*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil
	}

	chunkCount, err := uow.ChunkRepository().Count(ctx, specification.ByDocumentID{DocumentID: id})
	if err != nil {
		return nil, err
	}

	return toDocumentResponse(document, chunkCount), nil
}

func (s *documentService) List(ctx context.Context, req *dto.ListDocumentsRequest) ([]*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{
		specification.NotDeleted{},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if req.CollectionID != "" {
		specs = append(specs, specification.ByCollectionID{CollectionID: req.CollectionID})
	}
	if req.Keyword != "" {
		specs = append(specs, specification.TitleContains{Keyword: req.Keyword})
	}
	if req.Limit > 0 {
		specs = append(specs, specification.Pagination{Limit: req.Limit, Offset: req.Offset})
	}

	documents, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.DocumentResponse, len(documents))
	for i, d := range documents {
		response[i] = toDocumentResponse(d, 0)
	}
	return response, nil
}

func (s *documentService) ListCollections(ctx context.Context) (*dto.CollectionListResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	collections, err := uow.DocumentRepository().ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.CollectionListResponse{Collections: collections}, nil
}

func (s *documentService) publishEmbedMessage(ctx context.Context, documentId uuid.UUID) error {
	payload := dto.PublishEmbedDocumentMessage{
		DocumentId: documentId,
	}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.publisherService.Publish(ctx, payloadJson)
}

func toDocumentResponse(document *entity.Document, chunkCount int64) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		ID:           document.Id.String(),
		CollectionID: document.CollectionId,
		Title:        document.Title,
		Metadata:     document.Metadata,
		ChunkCount:   chunkCount,
		CreatedAt:    document.CreatedAt,
	}
}
