package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Engine.MaxIterations != 50 {
		t.Errorf("default max_iterations = %d, want 50", cfg.Engine.MaxIterations)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("engine:\n  max_iterations: 10\n  step_timeout: 5s\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.MaxIterations != 10 {
		t.Errorf("max_iterations = %d, want 10", cfg.Engine.MaxIterations)
	}
	if cfg.StepTimeout() != 5*time.Second {
		t.Errorf("step timeout = %v, want 5s", cfg.StepTimeout())
	}
	// Untouched sections keep defaults.
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("embedding provider = %q, want ollama", cfg.Embedding.Provider)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VIDSAGE_MAX_ITERATIONS", "7")
	t.Setenv("VIDSAGE_LOG_LEVEL", "debug")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.MaxIterations != 7 {
		t.Errorf("max_iterations = %d, want 7", cfg.Engine.MaxIterations)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.LLM.APIKey != "test-key" || cfg.Embedding.GenAIAPIKey != "test-key" {
		t.Error("GEMINI_API_KEY should flow to both llm and embedding")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.MaxIterations = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for max_iterations = 0")
	}

	cfg = DefaultConfig()
	cfg.Embedding.Provider = "faiss"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown embedding provider")
	}

	cfg = DefaultConfig()
	cfg.Engine.StepTimeout = "not-a-duration"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for malformed step_timeout")
	}

	cfg = DefaultConfig()
	cfg.Ingest.JobTimeout = "forever"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for malformed job_timeout")
	}
}

func TestIngestTimeoutAccessors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ingest.FetchTimeout = "45s"
	cfg.Ingest.JobTimeout = "3m"
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Errorf("fetch timeout = %v, want 45s", got)
	}
	if got := cfg.JobTimeout(); got != 3*time.Minute {
		t.Errorf("job timeout = %v, want 3m", got)
	}
}
