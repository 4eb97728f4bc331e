package store

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewDocumentRepository creates a repository for documents.
func NewDocumentRepository(db *bun.DB) repository.Repository[*Document] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Document]{
		NewRecord:          func() *Document { return &Document{} },
		GetID:              func(doc *Document) uuid.UUID { return doc.ID },
		SetID:              func(doc *Document, id uuid.UUID) { doc.ID = id },
		GetIdentifier:      func() string { return "slug" },
		GetIdentifierValue: func(doc *Document) string { return doc.Slug },
	})
}
