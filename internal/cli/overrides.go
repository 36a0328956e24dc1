package cli

import (
	"github.com/spf13/viper"

	"github.com/ppiankov/dossier/internal/model"
)

// applyOverrides copies command-line overrides into cfg. Switching
// provider without naming a model drops the configured model so the
// provider default applies.
func applyOverrides(cfg *model.Config) {
	if llmProvider != "" && llmProvider != cfg.LLM.Provider {
		cfg.LLM.Provider = llmProvider
		if llmModel == "" {
			cfg.LLM.Model = ""
		}
		// a key picked up for the previous provider does not carry over
		cfg.LLM.APIKey = viper.GetString("llm.api_key")
		applyProviderEnv(cfg)
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if indexName != "" {
		cfg.Index.Backend = indexName
	}
}
