// Package config loads and validates vidsage configuration from YAML,
// with environment-variable overrides for secrets and endpoints.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all vidsage configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM completion service
	LLM LLMConfig `yaml:"llm"`

	// Embedding generation
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Orchestration engine limits
	Engine EngineConfig `yaml:"engine"`

	// Storage paths
	Storage StorageConfig `yaml:"storage"`

	// Transcript ingestion
	Ingest IngestConfig `yaml:"ingest"`

	// HTTP server
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the natural-language completion service.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama or genai
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
}

// EngineConfig bounds the orchestration engine.
type EngineConfig struct {
	// MaxIterations is the hard ceiling on countable work units per request.
	// One perception call, one decision call, and each executed step count.
	MaxIterations int `yaml:"max_iterations"`

	// StepTimeout bounds each external call made by the action stage.
	StepTimeout string `yaml:"step_timeout"`

	// FactQueryLimit is how many facts the decision stage sees.
	FactQueryLimit int `yaml:"fact_query_limit"`

	// RetrievalTopK is the default k for retrieval queries.
	RetrievalTopK int `yaml:"retrieval_top_k"`
}

// StorageConfig configures the SQLite databases.
type StorageConfig struct {
	FactsPath string `yaml:"facts_path"`
	IndexPath string `yaml:"index_path"`
}

// IngestConfig configures transcript chunking and ingestion.
type IngestConfig struct {
	MaxChunkSeconds float64 `yaml:"max_chunk_seconds"`
	MaxChunkChars   int     `yaml:"max_chunk_chars"`
	FetchTimeout    string  `yaml:"fetch_timeout"`
	JobTimeout      string  `yaml:"job_timeout"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "vidsage",
		Version: "0.1.0",
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
			BaseURL:  "https://generativelanguage.googleapis.com/v1beta",
			Timeout:  "60s",
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "nomic-embed-text",
			GenAIModel:     "gemini-embedding-001",
		},
		Engine: EngineConfig{
			MaxIterations:  50,
			StepTimeout:    "30s",
			FactQueryLimit: 5,
			RetrievalTopK:  3,
		},
		Storage: StorageConfig{
			FactsPath: ".vidsage/facts.db",
			IndexPath: ".vidsage/index.db",
		},
		Ingest: IngestConfig{
			MaxChunkSeconds: 30,
			MaxChunkChars:   500,
			FetchTimeout:    "30s",
			JobTimeout:      "10m",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file, layering it over defaults and applying
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides lets secrets and endpoints come from the environment.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VIDSAGE_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = v
		}
		if c.Embedding.GenAIAPIKey == "" {
			c.Embedding.GenAIAPIKey = v
		}
	}
	if v := os.Getenv("VIDSAGE_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("VIDSAGE_OLLAMA_ENDPOINT"); v != "" {
		c.Embedding.OllamaEndpoint = v
	}
	if v := os.Getenv("VIDSAGE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("VIDSAGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VIDSAGE_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.MaxIterations = n
		}
	}
}

// Validate checks invariants that would otherwise surface as runtime faults.
func (c *Config) Validate() error {
	if c.Engine.MaxIterations < 1 {
		return fmt.Errorf("engine.max_iterations must be >= 1, got %d", c.Engine.MaxIterations)
	}
	if c.Engine.RetrievalTopK < 1 {
		return fmt.Errorf("engine.retrieval_top_k must be >= 1, got %d", c.Engine.RetrievalTopK)
	}
	if c.Ingest.MaxChunkSeconds <= 0 {
		return fmt.Errorf("ingest.max_chunk_seconds must be positive")
	}
	if c.Ingest.MaxChunkChars <= 0 {
		return fmt.Errorf("ingest.max_chunk_chars must be positive")
	}
	if _, err := parseDuration(c.LLM.Timeout, 0); err != nil {
		return fmt.Errorf("llm.timeout: %w", err)
	}
	if _, err := parseDuration(c.Engine.StepTimeout, 0); err != nil {
		return fmt.Errorf("engine.step_timeout: %w", err)
	}
	if _, err := parseDuration(c.Ingest.FetchTimeout, 0); err != nil {
		return fmt.Errorf("ingest.fetch_timeout: %w", err)
	}
	if _, err := parseDuration(c.Ingest.JobTimeout, 0); err != nil {
		return fmt.Errorf("ingest.job_timeout: %w", err)
	}
	switch c.Embedding.Provider {
	case "ollama", "genai":
	default:
		return fmt.Errorf("embedding.provider must be ollama or genai, got %q", c.Embedding.Provider)
	}
	return nil
}

// LLMTimeout returns the completion call timeout.
func (c *Config) LLMTimeout() time.Duration {
	d, _ := parseDuration(c.LLM.Timeout, 60*time.Second)
	return d
}

// StepTimeout returns the per-step external call timeout.
func (c *Config) StepTimeout() time.Duration {
	d, _ := parseDuration(c.Engine.StepTimeout, 30*time.Second)
	return d
}

// FetchTimeout returns the transcript fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	d, _ := parseDuration(c.Ingest.FetchTimeout, 30*time.Second)
	return d
}

// JobTimeout bounds one whole ingestion run.
func (c *Config) JobTimeout() time.Duration {
	d, _ := parseDuration(c.Ingest.JobTimeout, 10*time.Minute)
	return d
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
