// Package pipeline assembles a politician dossier from the raw index, the
// generator and the clean index.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/dossier/internal/errs"
	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/identity"
	"github.com/ppiankov/dossier/internal/index"
	"github.com/ppiankov/dossier/internal/llm"
	"github.com/ppiankov/dossier/internal/logging"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/validate"
)

// Generator produces a dossier draft for a subject
type Generator interface {
	Generate(ctx context.Context, name, contextText string) (llm.Draft, error)
	ProviderName() string
}

// RateLimiter paces generation calls per provider
type RateLimiter interface {
	Wait(ctx context.Context, key string) error
}

// Options are the collaborators of a Pipeline
type Options struct {
	Source        index.SourceIndex
	Documents     index.DocumentIndex
	Generator     Generator
	Limiter       RateLimiter      // optional
	Clock         func() time.Time // optional, defaults to time.Now
	ContextBudget int              // runes; <= 0 uses model.DefaultContextChars
}

// Pipeline runs the assemble sequence. It holds no per-call state and is
// safe for concurrent use when its collaborators are.
type Pipeline struct {
	source    index.SourceIndex
	docs      index.DocumentIndex
	generator Generator
	limiter   RateLimiter
	resolver  *identity.Resolver
	now       func() time.Time
	budget    int
}

// New creates a pipeline
func New(opts Options) (*Pipeline, error) {
	if opts.Source == nil || opts.Documents == nil || opts.Generator == nil {
		return nil, fmt.Errorf("pipeline requires a source index, a document index and a generator")
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:    opts.Source,
		docs:      opts.Documents,
		generator: opts.Generator,
		limiter:   opts.Limiter,
		resolver:  identity.NewResolver(opts.Documents, now),
		now:       now,
		budget:    opts.ContextBudget,
	}, nil
}

// Outcome is an assembled document together with its schema violations.
// A document with violations must not be persisted.
type Outcome struct {
	Document   *model.PoliticianDocument
	Identity   identity.Identity
	Violations validate.Violations
}

// Valid reports whether the document passed validation
func (o *Outcome) Valid() bool {
	return o != nil && o.Document != nil && o.Violations.OK()
}

// Assemble builds the document for one subject. Validation failures are
// reported in the Outcome; errors are returned only for format and
// external failures.
func (p *Pipeline) Assemble(ctx context.Context, name, externalID string) (*Outcome, error) {
	logger := logging.FromContext(ctx)

	records, err := p.source.SearchRaw(ctx, externalID)
	if err != nil {
		return nil, asExternal("pipeline.search_raw", err)
	}

	facts, err := extract.ExtractFacts(records, p.budget)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int("raw_records", len(records)).
		Int("context_chars", len(facts.BiographyContext)).
		Str("citation", facts.Citation).
		Msg("facts extracted")

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, p.generator.ProviderName()); err != nil {
			return nil, errs.External("pipeline.rate_limit", "waiting for generation slot", err)
		}
	}

	draft, err := p.generator.Generate(ctx, name, facts.BiographyContext)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, errs.GenerationFormat("pipeline.generate", "generator returned no draft", nil)
	}
	facts.Overlay(draft)

	data, violations := validate.DecodeData(draft)

	ident, err := p.resolver.Resolve(ctx, externalID)
	if err != nil {
		return nil, err
	}

	updated := model.NewTimestamp(p.now())
	if updated.Before(ident.CreatedAt.Time) {
		// Legacy createdAt values carry no zone and may read as future times
		updated = ident.CreatedAt
	}

	docID := ident.ID
	if docID == "" {
		docID = model.FallbackID(externalID)
	}

	doc := &model.PoliticianDocument{
		ID:         docID,
		WikidataID: externalID,
		Title:      name,
		Type:       model.DocumentType,
		Data:       data,
		Metadata:   []model.MetadataItem{{}},
		CreatedAt:  ident.CreatedAt,
		UpdatedAt:  updated,
	}

	if violations.OK() {
		violations = validate.Document(doc)
	}

	return &Outcome{Document: doc, Identity: ident, Violations: violations}, nil
}

// RunResult describes a persisted document
type RunResult struct {
	Document *model.PoliticianDocument
	Key      string // index key the document was written under
	Created  bool   // true when no document existed for the subject
}

// Run assembles and persists the document for one subject. An invalid
// document is not written; a validation error carrying the violations is
// returned instead.
func (p *Pipeline) Run(ctx context.Context, name, externalID string) (*RunResult, error) {
	outcome, err := p.Assemble(ctx, name, externalID)
	if err != nil {
		return nil, err
	}
	return p.Persist(ctx, outcome)
}

// Persist writes an assembled outcome under its resolved identity
func (p *Pipeline) Persist(ctx context.Context, outcome *Outcome) (*RunResult, error) {
	if !outcome.Valid() {
		msg := "no document"
		if outcome != nil && len(outcome.Violations) > 0 {
			msg = outcome.Violations.Error()
		}
		return nil, errs.Validation("pipeline.persist", msg)
	}

	key, err := p.docs.Index(ctx, outcome.Identity.ID, outcome.Document)
	if err != nil {
		return nil, asExternal("pipeline.index", err)
	}

	logging.FromContext(ctx).Info().
		Str("key", key).
		Bool("created", !outcome.Identity.Found).
		Msg("dossier indexed")

	return &RunResult{
		Document: outcome.Document,
		Key:      key,
		Created:  !outcome.Identity.Found,
	}, nil
}

func asExternal(op string, err error) error {
	if errs.Is(err, errs.KindExternal) || errs.Is(err, errs.KindFormat) {
		return err
	}
	return errs.External(op, "index call failed", err)
}
