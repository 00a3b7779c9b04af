package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Browser   BrowserConfig   `yaml:"browser"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
}

// LLMConfig selects the active provider and holds per-provider settings.
type LLMConfig struct {
	Provider  string           `yaml:"provider"` // name of the active provider
	Providers []ProviderConfig `yaml:"providers"`
	Breaker   BreakerConfig    `yaml:"breaker"`
}

// ProviderConfig holds settings for one LLM backend.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"` // "openai" or "ollama"
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// BreakerConfig holds circuit breaker settings for LLM calls.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// EmbeddingConfig holds embedding backend settings.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
}

// IndexConfig holds semantic index settings.
type IndexConfig struct {
	Path     string  `yaml:"path"`      // SQLite database path
	TopK     int     `yaml:"top_k"`     // matches per similarity query
	MinScore float64 `yaml:"min_score"` // cosine cutoff below which matches are discarded
}

// BrowserConfig holds browser automation settings.
type BrowserConfig struct {
	RemoteURL string        `yaml:"remote_url"` // CDP endpoint; empty launches local Chrome
	Headless  bool          `yaml:"headless"`
	Timeout   time.Duration `yaml:"timeout"`
}

// RetrievalConfig holds per-source scrape throttling.
type RetrievalConfig struct {
	RatePerMinute int `yaml:"rate_per_minute"` // live fetches allowed per source per minute
	Burst         int `yaml:"burst"`
}

// PipelineConfig holds processing pipeline settings.
type PipelineConfig struct {
	StageTokenBudget int `yaml:"stage_token_budget"` // max tokens fed to one stage
	IngestBatchSize  int `yaml:"ingest_batch_size"`  // concurrent embed operations per batch
	ChunkSize        int `yaml:"chunk_size"`
	ChunkOverlap     int `yaml:"chunk_overlap"`
}

// GatewayConfig holds HTTP gateway settings.
type GatewayConfig struct {
	Addr string `yaml:"addr"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// envPattern matches ${VAR} placeholders in config values.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, env-expands, parses, applies defaults, and validates a YAML
// config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := envPattern.ReplaceAllFunc(raw, func(m []byte) []byte {
		name := envPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Embedding.Model == "" {
		c.Embedding.Model = "nomic-embed-text"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "http://localhost:11434"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Index.TopK == 0 {
		c.Index.TopK = 5
	}
	if c.Index.MinScore == 0 {
		c.Index.MinScore = 0.35
	}
	if c.Browser.Timeout == 0 {
		c.Browser.Timeout = 30 * time.Second
	}
	if c.Retrieval.RatePerMinute == 0 {
		c.Retrieval.RatePerMinute = 10
	}
	if c.Retrieval.Burst == 0 {
		c.Retrieval.Burst = 3
	}
	if c.Pipeline.StageTokenBudget == 0 {
		c.Pipeline.StageTokenBudget = 6000
	}
	if c.Pipeline.IngestBatchSize == 0 {
		c.Pipeline.IngestBatchSize = 4
	}
	if c.Pipeline.ChunkSize == 0 {
		c.Pipeline.ChunkSize = 600
	}
	if c.Pipeline.ChunkOverlap == 0 {
		c.Pipeline.ChunkOverlap = 200
	}
	if c.Gateway.Addr == "" {
		c.Gateway.Addr = ":8080"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "text"
	}
}

// Validate checks settings that must be present before startup. A missing
// index path or unknown LLM provider is fatal here, not per-request.
func (c *Config) Validate() error {
	if len(c.LLM.Providers) == 0 {
		return fmt.Errorf("llm: at least one provider must be configured")
	}
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm: active provider must be set")
	}
	found := false
	for _, p := range c.LLM.Providers {
		if p.Name == c.LLM.Provider {
			found = true
		}
		switch p.Type {
		case "openai", "ollama":
		default:
			return fmt.Errorf("llm: provider %q has unknown type %q", p.Name, p.Type)
		}
	}
	if !found {
		return fmt.Errorf("llm: active provider %q not in providers list", c.LLM.Provider)
	}
	if c.Index.Path == "" {
		return fmt.Errorf("index: path must be set")
	}
	if c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return fmt.Errorf("pipeline: chunk_overlap must be smaller than chunk_size")
	}
	return nil
}
