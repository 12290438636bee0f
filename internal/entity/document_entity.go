package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is one procedure document in the corpus.
type Document struct {
	Id           uuid.UUID
	CollectionId string
	Title        string
	Content      string
	Metadata     map[string]interface{} // JSONB
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
	IsDeleted    bool
}
