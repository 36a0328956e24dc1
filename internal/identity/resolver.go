// Package identity decides which document key and creation time an assembled
// dossier inherits from the clean index.
package identity

import (
	"context"
	"time"

	"github.com/ppiankov/dossier/internal/errs"
	"github.com/ppiankov/dossier/internal/index"
	"github.com/ppiankov/dossier/internal/model"
)

// Identity is the persistence identity of a subject's document
type Identity struct {
	ID        string // existing document key; empty when Found is false
	CreatedAt model.Timestamp
	Found     bool
}

// Resolver looks up existing documents by external identifier
type Resolver struct {
	docs index.DocumentIndex
	now  func() time.Time
}

// NewResolver creates a resolver over docs. A nil clock uses time.Now.
func NewResolver(docs index.DocumentIndex, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{docs: docs, now: now}
}

// Resolve returns the identity of the earliest created document for
// externalID. Hits without a createdAt rank after dated ones; equal dates
// keep the index ranking order. Without hits the identity is new and its
// creation time is now.
func (r *Resolver) Resolve(ctx context.Context, externalID string) (Identity, error) {
	hits, err := r.docs.FindByExternalID(ctx, externalID)
	if err != nil {
		if errs.Is(err, errs.KindExternal) {
			return Identity{}, err
		}
		return Identity{}, errs.External("identity.resolve", "document lookup failed", err)
	}

	best := -1
	for i, hit := range hits {
		if best < 0 || earlier(hit, hits[best]) {
			best = i
		}
	}

	if best < 0 {
		return Identity{CreatedAt: model.NewTimestamp(r.now())}, nil
	}

	id := Identity{ID: hits[best].ID, CreatedAt: hits[best].CreatedAt, Found: true}
	if id.CreatedAt.IsZero() {
		id.CreatedAt = model.NewTimestamp(r.now())
	}
	return id, nil
}

func earlier(a, b index.DocumentHit) bool {
	switch {
	case a.CreatedAt.IsZero():
		return false
	case b.CreatedAt.IsZero():
		return true
	default:
		return a.CreatedAt.Before(b.CreatedAt.Time)
	}
}
