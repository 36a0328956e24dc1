package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/dossier/internal/util"
)

// apiStatusError is returned by postJSON for any non-200 reply.
type apiStatusError struct {
	StatusCode int
	Detail     string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Detail)
}

// newHTTPClient builds the client shared by the hand-rolled providers,
// honouring the configured proxies and falling back to fallback seconds.
func newHTTPClient(config Config, fallback time.Duration) *http.Client {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = fallback
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}
}

func trimBaseURL(baseURL, fallback string) string {
	if baseURL == "" {
		baseURL = fallback
	}
	return strings.TrimSuffix(baseURL, "/")
}

// postJSON sends in as a JSON body and decodes a 200 reply into out.
// detail turns an error body into a message; nil or "" keeps the raw body.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, in, out any, detail func([]byte) string) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if detail != nil {
			msg = detail(raw)
		}
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &apiStatusError{StatusCode: resp.StatusCode, Detail: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
