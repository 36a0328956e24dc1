package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/ppiankov/dossier/internal/errs"
)

// Draft is the unvalidated dossier object decoded from generator output
type Draft map[string]any

// Generator turns a subject name and its context into a dossier draft
type Generator struct {
	provider  Provider
	prompt    *template.Template
	maxTokens int
}

// NewGenerator creates a generator. An empty promptTemplate selects
// DefaultPromptTemplate.
func NewGenerator(provider Provider, promptTemplate string, maxTokens int) (*Generator, error) {
	if provider == nil {
		return nil, fmt.Errorf("generator requires a provider")
	}
	if promptTemplate == "" {
		promptTemplate = DefaultPromptTemplate
	}

	tmpl, err := template.New("dossier").Option("missingkey=error").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}

	return &Generator{
		provider:  provider,
		prompt:    tmpl,
		maxTokens: maxTokens,
	}, nil
}

// ProviderName returns the name of the wrapped provider
func (g *Generator) ProviderName() string {
	return g.provider.Name()
}

// RenderPrompt fills the prompt template
func (g *Generator) RenderPrompt(name, contextText string) (string, error) {
	var buf bytes.Buffer
	err := g.prompt.Execute(&buf, PromptVars{
		Name:               name,
		Context:            contextText,
		FormatInstructions: FormatInstructions(),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// Generate calls the provider and decodes the fenced JSON object it returns.
// Provider failures are external errors; undecodable replies are generation
// format errors. No defaults are fabricated.
func (g *Generator) Generate(ctx context.Context, name, contextText string) (Draft, error) {
	prompt, err := g.RenderPrompt(name, contextText)
	if err != nil {
		return nil, err
	}

	resp, err := g.provider.Complete(ctx, CompletionRequest{
		Prompt:    prompt,
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return nil, errs.External("llm.generate", g.provider.Name()+" completion failed", err)
	}

	return DecodeDraft(resp.Content)
}

// DecodeDraft extracts and decodes the JSON object from raw generator output
func DecodeDraft(raw string) (Draft, error) {
	payload := ExtractFencedPayload(raw)
	if payload == "" {
		return nil, errs.GenerationFormat("llm.decode", "empty payload", nil)
	}

	var draft Draft
	if err := json.Unmarshal([]byte(payload), &draft); err != nil {
		return nil, errs.GenerationFormat("llm.decode", "payload is not a JSON object", err)
	}
	if draft == nil {
		return nil, errs.GenerationFormat("llm.decode", "payload is null", nil)
	}

	return draft, nil
}
