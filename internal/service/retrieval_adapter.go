package service

import (
	"context"
	"fmt"

	"procedure-qa-be/internal/repository/specification"
	"procedure-qa-be/internal/repository/unitofwork"
	"procedure-qa-be/pkg/retrieval"
	"procedure-qa-be/pkg/store"

	"github.com/google/uuid"
)

// chunkSearchAdapter exposes the chunk repository as the pipeline's vector
// index collaborator.
type chunkSearchAdapter struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewChunkSearcher(uowFactory unitofwork.RepositoryFactory) retrieval.ChunkSearcher {
	return &chunkSearchAdapter{uowFactory: uowFactory}
}

func (a *chunkSearchAdapter) SearchSimilar(ctx context.Context, vector []float32, k int, floor float64, scope store.HardFilter) ([]store.RetrievedChunk, error) {
	uow := a.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.ChunkRepository().SearchSimilarWithScore(ctx, vector, k, floor, scope)
	if err != nil {
		return nil, err
	}

	chunks := make([]store.RetrievedChunk, len(scored))
	for i, s := range scored {
		chunks[i] = store.RetrievedChunk{
			ChunkID:    s.Chunk.Id.String(),
			DocumentID: s.Chunk.DocumentId.String(),
			ChunkIndex: s.Chunk.ChunkIndex,
			Content:    s.Chunk.Content,
			Similarity: s.Similarity,
		}
	}
	return chunks, nil
}

func (a *chunkSearchAdapter) Neighbors(ctx context.Context, documentID string, centerIndex, window int) ([]store.RetrievedChunk, error) {
	docID, err := uuid.Parse(documentID)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q: %w", documentID, err)
	}

	uow := a.uowFactory.NewUnitOfWork(ctx)
	neighbors, err := uow.ChunkRepository().FindNeighbors(ctx, docID, centerIndex, window)
	if err != nil {
		return nil, err
	}

	chunks := make([]store.RetrievedChunk, len(neighbors))
	for i, n := range neighbors {
		chunks[i] = store.RetrievedChunk{
			ChunkID:    n.Id.String(),
			DocumentID: n.DocumentId.String(),
			ChunkIndex: n.ChunkIndex,
			Content:    n.Content,
		}
	}
	return chunks, nil
}

// documentLoaderAdapter serves whole-document expansion from the document
// repository.
type documentLoaderAdapter struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewDocumentLoader(uowFactory unitofwork.RepositoryFactory) retrieval.DocumentLoader {
	return &documentLoaderAdapter{uowFactory: uowFactory}
}

func (a *documentLoaderAdapter) LoadDocument(ctx context.Context, documentID string) (string, error) {
	docID, err := uuid.Parse(documentID)
	if err != nil {
		return "", fmt.Errorf("invalid document id %q: %w", documentID, err)
	}

	uow := a.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: docID})
	if err != nil {
		return "", err
	}
	if document == nil {
		return "", fmt.Errorf("document %s not found", documentID)
	}
	return document.Content, nil
}
