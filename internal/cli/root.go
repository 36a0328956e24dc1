package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/dossier/internal/logging"
	"github.com/ppiankov/dossier/internal/model"
)

// Version is set at build time with -ldflags "-X ...cli.Version=..."
var Version = "dev"

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "Dossier - politician profile assembly from scraped sources",
	Long: `Dossier builds one structured profile per politician.

For each request it gathers every scraped record of the subject from the
raw index, condenses them into a size-bounded context, asks a language
model for the narrative sections, overlays the structured facts, checks
the result against the document schema and upserts it into the clean
index, keeping the subject's document id and creation time stable.

Requests arrive over HTTP (serve), from a task queue (worker), a file
(batch) or the command line (assemble).`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := currentConfig()
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if logLevel != "" {
			level = logLevel
		}
		logging.Init(level, cfg.Logging.Format)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dossier %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.dossier/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// optionalKeys have no default value, so viper only learns them through
// explicit env bindings
var optionalKeys = []string{
	"llm.api_key",
	"llm.base_url",
	"llm.prompt_template",
	"llm.http_proxy",
	"llm.https_proxy",
	"llm.no_proxy",
	"index.api_key",
	"cache.disk_dir",
}

// initConfig seeds viper with the defaults, then layers the config file
// and DOSSIER_* environment variables on top
func initConfig() {
	viper.SetConfigType("yaml")
	if defaults, err := yaml.Marshal(model.DefaultConfig()); err == nil {
		_ = viper.ReadConfig(bytes.NewReader(defaults))
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".dossier"))
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("DOSSIER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range optionalKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.MergeInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	} else if err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", cfgFile, err)
	}
}

// currentConfig decodes viper's merged view into a Config
func currentConfig() *model.Config {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding configuration: %v\n", err)
	}
	applyProviderEnv(cfg)
	return cfg
}

// applyProviderEnv fills credentials from the providers' conventional
// variables when the config leaves them empty
func applyProviderEnv(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if cfg.Index.APIKey == "" {
		cfg.Index.APIKey = os.Getenv("TYPESENSE_API_KEY")
	}
}
