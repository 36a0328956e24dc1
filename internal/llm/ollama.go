package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// OllamaProvider talks to a local Ollama daemon over /api/generate.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// ollamaResponse keeps only what a non-streaming reply needs; the eval
// counts are zero until done is true.
type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	return &OllamaProvider{
		baseURL:    trimBaseURL(config.BaseURL, "http://localhost:11434"),
		httpClient: newHTTPClient(config, 60*time.Second),
		config:     config,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable reports whether the daemon answers GET /api/tags.
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		log.Debug().Err(err).Msg("ollama: build tags request")
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("base_url", p.baseURL).Msg("ollama unreachable")
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Str("base_url", p.baseURL).Msg("ollama tags rejected")
		return false
	}
	return true
}

// Complete runs a single non-streaming generation in JSON mode.
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := resolveModel(req, p.config, "")
	if model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	body := ollamaRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: resolveSystem(req),
		Format: "json",
		Options: ollamaOptions{
			Temperature: 0.2,
			NumPredict:  resolveMaxTokens(req, p.config),
		},
	}

	var out ollamaResponse
	if err := postJSON(ctx, p.httpClient, p.baseURL+"/api/generate", nil, body, &out, ollamaErrorDetail); err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	content := strings.TrimSpace(out.Response)
	return &CompletionResponse{
		Content:    content,
		Model:      out.Model,
		TokensUsed: ollamaTokens(out, req.Prompt, content),
	}, nil
}

// ollamaTokens prefers the reported eval counts. When a model reports
// none, usage is approximated as one token per four bytes of text.
func ollamaTokens(out ollamaResponse, prompt, content string) int {
	if n := out.PromptEvalCount + out.EvalCount; n > 0 {
		return n
	}
	return (len(prompt) + len(content)) / 4
}

func ollamaErrorDetail(raw []byte) string {
	var e ollamaError
	if json.Unmarshal(raw, &e) != nil {
		return ""
	}
	return e.Error
}
