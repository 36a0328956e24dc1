package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/dossier/internal/errs"
)

type stubProvider struct {
	content string
	err     error
	last    CompletionRequest
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &CompletionResponse{Content: s.content, Model: "stub-model"}, nil
}

func (s *stubProvider) IsAvailable(context.Context) bool { return true }

func TestGenerator_Generate_DecodesFencedObject(t *testing.T) {
	provider := &stubProvider{content: "```json\n{\"Name\":\"X\"}\n```"}
	gen, err := NewGenerator(provider, "", 1234)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	draft, err := gen.Generate(context.Background(), "Jane Doe", "\"born\": \"1970\"")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(draft) != 1 || draft["Name"] != "X" {
		t.Errorf("Unexpected draft: %v", draft)
	}
	if provider.last.MaxTokens != 1234 {
		t.Errorf("Expected max tokens 1234, got %d", provider.last.MaxTokens)
	}
	if !strings.Contains(provider.last.Prompt, "Jane Doe") || !strings.Contains(provider.last.Prompt, `"born": "1970"`) {
		t.Errorf("Prompt missing name or context: %q", provider.last.Prompt)
	}
	if !strings.Contains(provider.last.Prompt, `"Childhood"`) {
		t.Error("Prompt missing format instructions")
	}
}

func TestGenerator_Generate_ProviderErrorIsExternal(t *testing.T) {
	gen, err := NewGenerator(&stubProvider{err: errors.New("connection refused")}, "", 0)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	_, err = gen.Generate(context.Background(), "Jane", "")
	if !errs.Is(err, errs.KindExternal) {
		t.Fatalf("Expected external error, got %v", err)
	}
	if !errs.Retryable(err) {
		t.Error("External errors must be retryable")
	}
}

func TestGenerator_Generate_NonJSONIsGenerationFormat(t *testing.T) {
	gen, err := NewGenerator(&stubProvider{content: "I cannot help with that."}, "", 0)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	_, err = gen.Generate(context.Background(), "Jane", "")
	if !errs.Is(err, errs.KindGenerationFormat) {
		t.Fatalf("Expected generation format error, got %v", err)
	}
}

func TestDecodeDraft_Rejects(t *testing.T) {
	inputs := map[string]string{
		"empty":  "",
		"fence":  "```json\n```",
		"array":  "```json\n[1, 2]\n```",
		"null":   "null",
		"string": `"just a string"`,
	}

	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeDraft(raw); !errs.Is(err, errs.KindGenerationFormat) {
				t.Errorf("DecodeDraft(%q) = %v, want generation format error", raw, err)
			}
		})
	}
}

func TestNewGenerator_CustomTemplate(t *testing.T) {
	gen, err := NewGenerator(&stubProvider{}, "About {{.Name}}: {{.Context}}", 0)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	prompt, err := gen.RenderPrompt("Jane", "ctx")
	if err != nil {
		t.Fatalf("RenderPrompt: %v", err)
	}
	if prompt != "About Jane: ctx" {
		t.Errorf("Unexpected prompt: %q", prompt)
	}
}

func TestNewGenerator_UnknownFieldFails(t *testing.T) {
	gen, err := NewGenerator(&stubProvider{}, "Hello {{.Missing}}", 0)
	if err == nil {
		_, err = gen.RenderPrompt("Jane", "ctx")
	}
	if err == nil {
		t.Error("Expected an error for an unknown template field")
	}
}

func TestNewGenerator_RequiresProvider(t *testing.T) {
	if _, err := NewGenerator(nil, "", 0); err == nil {
		t.Error("Expected error without provider")
	}
}

func TestFormatInstructions_ListsEveryField(t *testing.T) {
	out := FormatInstructions()
	for _, f := range dossierFields {
		if !strings.Contains(out, `"`+f.name+`"`) {
			t.Errorf("Format instructions missing %s", f.name)
		}
	}
}
