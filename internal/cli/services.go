package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/ppiankov/dossier/internal/cache"
	"github.com/ppiankov/dossier/internal/index"
	"github.com/ppiankov/dossier/internal/llm"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/pipeline"
	"github.com/ppiankov/dossier/internal/worker"
)

// services holds the collaborators shared by the assemble commands
type services struct {
	cfg      *model.Config
	backend  index.Backend
	pipeline *pipeline.Pipeline
}

// openBackend connects the configured index
func openBackend(ctx context.Context, cfg *model.Config) (index.Backend, error) {
	backend, err := index.Open(ctx, cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("open %s index: %w", cfg.Index.Backend, err)
	}
	return backend, nil
}

// newServices wires index, cache, generator and limiter into a pipeline
func newServices(ctx context.Context, cfg *model.Config) (*services, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	generator, err := newGenerator(cfg.LLM)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	source := index.NewCachedSource(backend, cache.New(cfg.Cache), cfg.Cache.MemoryTTL)
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	p, err := pipeline.New(pipeline.Options{
		Source:        source,
		Documents:     backend,
		Generator:     generator,
		Limiter:       limiter,
		ContextBudget: cfg.Context.MaxChars,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	log.Debug().
		Str("index", cfg.Index.Backend).
		Str("provider", generator.ProviderName()).
		Str("model", cfg.LLM.Model).
		Bool("cache", cfg.Cache.Enabled).
		Msg("pipeline ready")

	return &services{cfg: cfg, backend: backend, pipeline: p}, nil
}

// Close releases the index connection
func (s *services) Close() {
	if err := s.backend.Close(); err != nil {
		log.Warn().Err(err).Msg("close index")
	}
}

// newGenerator builds the provider and loads a custom prompt template file
func newGenerator(cfg model.LLMConfig) (*llm.Generator, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}

	var tmpl string
	if cfg.PromptTemplate != "" {
		data, err := os.ReadFile(cfg.PromptTemplate)
		if err != nil {
			return nil, fmt.Errorf("read prompt template: %w", err)
		}
		tmpl = string(data)
	}

	return llm.NewGenerator(provider, tmpl, cfg.MaxTokens)
}
