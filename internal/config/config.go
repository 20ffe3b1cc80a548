// Package config defines the scoreboard's process configuration and how it
// is loaded.
package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`
	// PairPolicy is "ordered" (A-B and B-A are different contests) or "unordered".
	PairPolicy string `koanf:"pair_policy"`
	// FeedWorkers sets the number of feed partitions, one worker each.
	FeedWorkers int `koanf:"feed_workers"`
	// FeedQueueSize bounds each partition queue.
	FeedQueueSize int `koanf:"feed_queue_size"`
	// DedupeSize bounds the remembered feed event ids; 0 means unbounded.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		PairPolicy:    model.PairOrdered.String(),
		FeedWorkers:   4,
		FeedQueueSize: 1024,
		DedupeSize:    50_000,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: log_format %q must be text or json", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := model.ParsePairPolicy(c.PairPolicy); err != nil {
		return fmt.Errorf("%w: pair_policy: %w", ErrInvalidConfig, err)
	}
	if c.FeedWorkers < 1 {
		return fmt.Errorf("%w: feed_workers must be at least 1, got %d", ErrInvalidConfig, c.FeedWorkers)
	}
	if c.FeedQueueSize < 1 {
		return fmt.Errorf("%w: feed_queue_size must be at least 1, got %d", ErrInvalidConfig, c.FeedQueueSize)
	}
	if c.DedupeSize < 0 {
		return fmt.Errorf("%w: dedupe_size must not be negative, got %d", ErrInvalidConfig, c.DedupeSize)
	}
	return nil
}

// Level returns the parsed log level. Call Validate first.
func (c *Config) Level() slog.Level {
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}

// Policy returns the parsed pair policy. Call Validate first.
func (c *Config) Policy() model.PairPolicy {
	policy, _ := model.ParsePairPolicy(c.PairPolicy)
	return policy
}
