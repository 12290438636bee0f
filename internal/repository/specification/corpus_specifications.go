package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByCollectionID scopes a query to one logical corpus collection.
type ByCollectionID struct {
	CollectionID string
}

func (s ByCollectionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("collection_id = ?", s.CollectionID)
}

// ByDocumentID scopes a query to a single document.
type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

// ByChunkIndexRange selects chunks whose position falls inside [From, To].
// Used when expanding a nucleus chunk into its surrounding window.
type ByChunkIndexRange struct {
	From int
	To   int
}

func (s ByChunkIndexRange) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chunk_index BETWEEN ? AND ?", s.From, s.To)
}

// TitleContains does a case-insensitive title search for document listings.
type TitleContains struct {
	Keyword string
}

func (s TitleContains) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("title ILIKE ?", "%"+s.Keyword+"%")
}
