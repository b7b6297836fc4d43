// Package logging provides categorized structured logging. Each
// subsystem fetches a named logger once and keeps it; before
// Initialize runs every logger is a no-op, so libraries stay quiet
// under test.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one logging subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"
	CategoryAgent     Category = "agent"
	CategoryPerceive  Category = "perceive"
	CategoryDecide    Category = "decide"
	CategoryAction    Category = "action"
	CategoryMemory    Category = "memory"
	CategoryTools     Category = "tools"
	CategoryEmbedding Category = "embedding"
	CategoryStore     Category = "store"
	CategoryIndex     Category = "index"
	CategoryServer    Category = "server"
	CategoryLLM       Category = "llm"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger = zap.NewNop()
	loggers             = make(map[Category]*zap.SugaredLogger)
)

// Initialize builds the process-wide logger. Level is one of debug,
// info, warn, error; json selects machine-readable output over the
// console encoder. Call once at startup.
func Initialize(level string, json bool) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if !json {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	built, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	base = built
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the sugared logger for a category. Safe to call before
// Initialize; such loggers discard everything.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := base.Named(string(cat)).Sugar()
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sync()
}
