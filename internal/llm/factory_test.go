package llm

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/util"
)

func TestConfigFromModel_CopiesProxySettings(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{
		Provider:   "ollama",
		Model:      "llama3.1:8b",
		HTTPProxy:  "http://proxy.internal:3128",
		HTTPSProxy: "http://proxy.internal:3129",
		NoProxy:    "ollama.local,.cluster",
	})

	if cfg.NoProxy != "ollama.local,.cluster" {
		t.Fatalf("NoProxy = %q", cfg.NoProxy)
	}

	proxy := util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	bypassed, err := proxy(&http.Request{URL: &url.URL{Scheme: "http", Host: "ollama.local:11434"}})
	if err != nil || bypassed != nil {
		t.Errorf("Expected ollama.local to bypass the proxy, got %v (err %v)", bypassed, err)
	}

	proxied, err := proxy(&http.Request{URL: &url.URL{Scheme: "https", Host: "api.openai.com"}})
	if err != nil || proxied == nil || proxied.Host != "proxy.internal:3129" {
		t.Errorf("Expected HTTPS proxy for api.openai.com, got %v (err %v)", proxied, err)
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "bard"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
	if _, err := NewProvider(Config{}); err == nil {
		t.Error("Expected error for empty provider")
	}
}
