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

const anthropicVersion = "2023-06-01"

// AnthropicProvider calls the Anthropic Messages API directly.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Model   string           `json:"model"`
	Content []anthropicBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// text joins the text blocks, skipping tool_use and others.
func (r *anthropicResponse) text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	return &AnthropicProvider{
		apiKey:     config.APIKey,
		baseURL:    trimBaseURL(config.BaseURL, "https://api.anthropic.com"),
		httpClient: newHTTPClient(config, 120*time.Second),
		config:     config,
	}, nil
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable sends a ten-token message to the smallest model.
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	ping := anthropicRequest{
		Model:     "claude-3-5-haiku-20241022",
		MaxTokens: 10,
		Messages:  []anthropicMessage{{Role: "user", Content: "Hi"}},
	}
	if _, err := p.send(ctx, ping); err != nil {
		log.Debug().Err(err).Msg("anthropic unavailable")
		return false
	}
	return true
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := p.send(ctx, anthropicRequest{
		Model:       resolveModel(req, p.config, "claude-3-5-sonnet-20241022"),
		MaxTokens:   resolveMaxTokens(req, p.config),
		System:      resolveSystem(req),
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("Anthropic API error: %w", err)
	}

	text := resp.text()
	if text == "" {
		return nil, fmt.Errorf("no content in Anthropic response")
	}
	return &CompletionResponse{
		Content:    strings.TrimSpace(text),
		Model:      resp.Model,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

func (p *AnthropicProvider) send(ctx context.Context, body anthropicRequest) (*anthropicResponse, error) {
	header := http.Header{}
	header.Set("x-api-key", p.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	var out anthropicResponse
	if err := postJSON(ctx, p.httpClient, p.baseURL+"/v1/messages", header, body, &out, anthropicErrorDetail); err != nil {
		return nil, err
	}
	return &out, nil
}

func anthropicErrorDetail(raw []byte) string {
	var e anthropicError
	if json.Unmarshal(raw, &e) != nil || e.Error.Type == "" {
		return ""
	}
	return e.Error.Type + " - " + e.Error.Message
}
