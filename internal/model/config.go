package model

import "time"

// Config is the complete service configuration.
// Field tags serve both viper (mapstructure) and `dossier config` (yaml).
type Config struct {
	LLM          LLMConfig          `mapstructure:"llm" yaml:"llm"`
	Index        IndexConfig        `mapstructure:"index" yaml:"index"`
	Queue        QueueConfig        `mapstructure:"queue" yaml:"queue"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Worker       WorkerConfig       `mapstructure:"worker" yaml:"worker"`
	Retry        RetryConfig        `mapstructure:"retry" yaml:"retry"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	Context      ContextConfig      `mapstructure:"context" yaml:"context"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig selects and tunes the generation provider
type LLMConfig struct {
	Provider       string `mapstructure:"provider" yaml:"provider"` // openai, anthropic, ollama
	Model          string `mapstructure:"model" yaml:"model"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout        int    `mapstructure:"timeout" yaml:"timeout"` // seconds
	MaxTokens      int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	PromptTemplate string `mapstructure:"prompt_template" yaml:"prompt_template,omitempty"`
	HTTPProxy      string `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy     string `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy        string `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"` // comma-separated hosts or .domain suffixes
}

// IndexConfig selects the search/document index backend
type IndexConfig struct {
	Backend         string        `mapstructure:"backend" yaml:"backend"` // typesense, sqlite
	URL             string        `mapstructure:"url" yaml:"url"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	SQLitePath      string        `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RawCollection   string        `mapstructure:"raw_collection" yaml:"raw_collection"`
	CleanCollection string        `mapstructure:"clean_collection" yaml:"clean_collection"`
	SearchLimit     int           `mapstructure:"search_limit" yaml:"search_limit"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// QueueConfig selects the task queue backend
type QueueConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend"` // redis, memory
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
	Key      string `mapstructure:"key" yaml:"key"`
	Capacity int    `mapstructure:"capacity" yaml:"capacity"` // memory backend only
}

// ServerConfig configures the HTTP acceptance endpoint
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	MaxConnections  int           `mapstructure:"max_connections" yaml:"max_connections"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// WorkerConfig controls how many tasks run concurrently
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	TaskTimeout time.Duration `mapstructure:"task_timeout" yaml:"task_timeout"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
}

// RetryConfig is the per-task retry policy
type RetryConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialDelay  time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor" yaml:"backoff_factor"`
}

// RateLimitingConfig bounds outbound generation calls
type RateLimitingConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size" yaml:"burst_size"`
}

// CacheConfig controls the raw-index lookup cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskDir   string        `mapstructure:"disk_dir" yaml:"disk_dir,omitempty"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
}

// ContextConfig bounds the generation input
type ContextConfig struct {
	MaxChars int `mapstructure:"max_chars" yaml:"max_chars"`
}

// LoggingConfig configures zerolog
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console, json
}

// DefaultContextChars keeps the context inside the generator's input window
const DefaultContextChars = 29000

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   120,
			MaxTokens: 4000,
		},
		Index: IndexConfig{
			Backend:         "typesense",
			URL:             "http://localhost:8108",
			SQLitePath:      "./dossier.db",
			RawCollection:   "eye-raw-data",
			CleanCollection: "eye-clean-data",
			SearchLimit:     100,
			Timeout:         10 * time.Second,
		},
		Queue: QueueConfig{
			Backend:  "redis",
			RedisURL: "redis://localhost:6379/0",
			Key:      "dossier:tasks",
			Capacity: 256,
		},
		Server: ServerConfig{
			Addr:            ":8000",
			MaxConnections:  256,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Worker: WorkerConfig{
			Concurrency: 4,
			TaskTimeout: 5 * time.Minute,
			PollTimeout: 5 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:   6, // first run + 5 retries
			InitialDelay:  5 * time.Second,
			MaxDelay:      700 * time.Second,
			BackoffFactor: 1.0,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Context: ContextConfig{
			MaxChars: DefaultContextChars,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
