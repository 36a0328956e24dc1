// Package index holds the raw and clean document stores the pipeline reads
// from and writes to.
package index

import (
	"context"
	"fmt"

	"github.com/ppiankov/dossier/internal/model"
)

// Backend names accepted by Open
const (
	BackendTypesense = "typesense"
	BackendSQLite    = "sqlite"
)

// SourceIndex looks up the scraped records of a subject
type SourceIndex interface {
	SearchRaw(ctx context.Context, externalID string) ([]model.SourceRecord, error)
}

// DocumentHit is a clean-index match in ranking order
type DocumentHit struct {
	ID        string          // index-assigned document key
	CreatedAt model.Timestamp // zero when the stored document lacks one
}

// DocumentIndex stores assembled politician documents
type DocumentIndex interface {
	FindByExternalID(ctx context.Context, externalID string) ([]DocumentHit, error)

	// Index upserts doc under id. An empty id (first write) keys the
	// document by doc.ID; the key actually used is returned.
	Index(ctx context.Context, id string, doc *model.PoliticianDocument) (string, error)
}

// Backend is a store serving both collections
type Backend interface {
	SourceIndex
	DocumentIndex

	PutRaw(ctx context.Context, record model.SourceRecord) error
	GetDocument(ctx context.Context, id string) (*model.PoliticianDocument, error)
	Close() error
}

// Open connects the backend selected by cfg
func Open(ctx context.Context, cfg model.IndexConfig) (Backend, error) {
	switch cfg.Backend {
	case BackendTypesense, "":
		return NewTypesenseBackend(ctx, cfg)
	case BackendSQLite:
		return OpenSQLite(cfg.SQLitePath, cfg.SearchLimit)
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.Backend)
	}
}
