package dto

import (
	"time"

	"github.com/google/uuid"
)

// PublishEmbedDocumentMessage asks the embedding worker to (re)embed a
// document's chunks and route examples.
type PublishEmbedDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}

type RouteExampleInput struct {
	Question      string  `json:"question" validate:"required"`
	PriorityScore float64 `json:"priority_score"`
}

type CreateDocumentRequest struct {
	CollectionID string                 `json:"collection_id" validate:"required"`
	Title        string                 `json:"title" validate:"required"`
	Content      string                 `json:"content" validate:"required"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Examples     []RouteExampleInput    `json:"examples,omitempty"`
}

type UpdateDocumentRequest struct {
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type DocumentResponse struct {
	ID           string                 `json:"id"`
	CollectionID string                 `json:"collection_id"`
	Title        string                 `json:"title"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	ChunkCount   int64                  `json:"chunk_count,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

type ListDocumentsRequest struct {
	CollectionID string `query:"collection_id"`
	Keyword      string `query:"keyword"`
	Limit        int    `query:"limit"`
	Offset       int    `query:"offset"`
}

type CollectionListResponse struct {
	Collections []string `json:"collections"`
}
