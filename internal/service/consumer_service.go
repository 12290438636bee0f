package service

import (
	"context"
	"encoding/json"
	"time"

	"procedure-qa-be/internal/constant"
	"procedure-qa-be/internal/dto"
	"procedure-qa-be/internal/entity"
	"procedure-qa-be/internal/pkg/logger"
	"procedure-qa-be/internal/repository/specification"
	"procedure-qa-be/internal/repository/unitofwork"
	"procedure-qa-be/pkg/embedding"
	"procedure-qa-be/pkg/router"
	"procedure-qa-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub             *gochannel.GoChannel
	topicName          string
	uowFactory         unitofwork.RepositoryFactory
	embeddingProvider  embedding.EmbeddingProvider
	routerCacheService IRouterCacheService
	queryRouter        *router.Router
	log                logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	routerCacheService IRouterCacheService,
	queryRouter *router.Router,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:             pubSub,
		topicName:          topicName,
		uowFactory:         uowFactory,
		embeddingProvider:  embeddingProvider,
		routerCacheService: routerCacheService,
		queryRouter:        queryRouter,
		log:                log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("consumer", "unmarshal failed", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.log.Info("consumer", "embedding document", map[string]interface{}{
		"document_id": payload.DocumentId.String(),
	})

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		cs.log.Error("consumer", "document fetch failed", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
		msg.Nack() // Nack for retriable errors
		return
	}
	if document == nil {
		// Deleted between publish and consume. Nothing to embed.
		cs.log.Warn("consumer", "document not found", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
		})
		msg.Ack()
		return
	}

	chunks := utils.SplitText(document.Content, constant.ChunkSize, constant.ChunkOverlap)
	cs.log.Info("consumer", "content split", map[string]interface{}{
		"document_id": document.Id.String(),
		"chunks":      len(chunks),
	})

	var newChunks []*entity.Chunk
	for i, chunk := range chunks {
		vector, err := cs.embeddingProvider.Generate(ctx, chunk, embedding.TaskTypeDocument)
		if err != nil {
			cs.log.Error("consumer", "chunk embedding failed", map[string]interface{}{
				"document_id": document.Id.String(),
				"chunk_index": i,
				"error":       err.Error(),
			})
			msg.Nack()
			return
		}

		newChunks = append(newChunks, &entity.Chunk{
			Id:             uuid.New(),
			DocumentId:     document.Id,
			ChunkIndex:     i,
			Content:        chunk,
			EmbeddingValue: vector,
			CreatedAt:      time.Now(),
		})
	}

	// Route examples created alongside the document arrive without vectors.
	// Embed them here so one worker pass makes the document fully routable.
	pending, err := uow.RouteExampleRepository().FindAll(ctx, specification.ByDocumentID{DocumentID: document.Id})
	if err != nil {
		cs.log.Error("consumer", "route example fetch failed", map[string]interface{}{
			"document_id": document.Id.String(),
			"error":       err.Error(),
		})
		msg.Nack()
		return
	}

	for _, example := range pending {
		if len(example.EmbeddingValue) > 0 {
			continue
		}
		vector, err := cs.embeddingProvider.Generate(ctx, example.Question, embedding.TaskTypeQuery)
		if err != nil {
			cs.log.Error("consumer", "example embedding failed", map[string]interface{}{
				"example_id": example.Id.String(),
				"error":      err.Error(),
			})
			msg.Nack()
			return
		}
		example.EmbeddingValue = vector
	}

	if err := uow.Begin(ctx); err != nil {
		cs.log.Error("consumer", "begin failed", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, document.Id); err != nil {
		cs.log.Error("consumer", "stale chunk delete failed", map[string]interface{}{
			"document_id": document.Id.String(),
			"error":       err.Error(),
		})
		msg.Nack()
		return
	}

	if len(newChunks) > 0 {
		if err := uow.ChunkRepository().CreateBulk(ctx, newChunks); err != nil {
			cs.log.Error("consumer", "chunk insert failed", map[string]interface{}{
				"document_id": document.Id.String(),
				"error":       err.Error(),
			})
			msg.Nack()
			return
		}
	}

	for _, example := range pending {
		if err := uow.RouteExampleRepository().Update(ctx, example); err != nil {
			cs.log.Error("consumer", "example update failed", map[string]interface{}{
				"example_id": example.Id.String(),
				"error":      err.Error(),
			})
			msg.Nack()
			return
		}
	}

	if err := uow.Commit(); err != nil {
		cs.log.Error("consumer", "commit failed", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	// Freshly embedded examples must become routable without a restart.
	if cache, err := cs.routerCacheService.Rebuild(ctx); err != nil {
		cs.log.Warn("consumer", "router cache rebuild failed", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		cs.queryRouter.Reload(cache)
	}

	cs.log.Info("consumer", "document processed", map[string]interface{}{
		"document_id": document.Id.String(),
		"chunks":      len(newChunks),
		"examples":    len(pending),
	})
	msg.Ack()
}
