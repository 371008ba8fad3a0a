// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and TRIAGE_* env vars.
// - Validate before use; failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// IngestSecret guards POST /ingest via the X-Ingest-Secret header.
	// An empty secret rejects every ingestion request.
	IngestSecret string `koanf:"ingest_secret"`

	// CuratorSecret guards the curator routes via X-Curator-Secret.
	CuratorSecret string `koanf:"curator_secret"`

	// RaterProxySecret lets a trusted proxy vouch for X-Rater-Id by sending it
	// in X-Rater-Proxy-Secret. Empty means X-Rater-Id is ignored.
	RaterProxySecret string `koanf:"rater_proxy_secret"`

	// RaterSalt keys the rater hash. Rotating it resets duplicate detection.
	RaterSalt string `koanf:"rater_salt"`

	// MaxBatchSize caps the number of items accepted per ingestion request.
	MaxBatchSize int `koanf:"max_batch_size"`

	// Concurrency bounds parallel reasoning calls per batch.
	Concurrency int `koanf:"concurrency"`

	// DatabaseURL selects the store: sqlite://path, sqlite://:memory: or postgres://...
	DatabaseURL string `koanf:"database_url"`

	// QueueSize bounds the in-memory recalculation queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recalculation workers.
	WorkerCount int `koanf:"worker_count"`

	// SweepInterval is how often every live entry is re-scored so recency decay shows.
	// Zero disables the sweeper.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	Reasoning Reasoning `koanf:"reasoning"`
	Dedupe    Dedupe    `koanf:"dedupe"`
	Trust     Trust     `koanf:"trust"`

	// SafetyRules maps a flag name to a CEL boolean expression. Empty expressions are skipped.
	SafetyRules map[string]string `koanf:"safety_rules"`
}

// Reasoning configures the external reasoning service.
type Reasoning struct {
	Endpoint  string        `koanf:"endpoint"`
	APIKey    string        `koanf:"api_key"`
	Model     string        `koanf:"model"`
	MaxTokens int           `koanf:"max_tokens"`
	Timeout   time.Duration `koanf:"timeout"`

	// RateLimit is the sustained calls per second; Burst the bucket size.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// Dedupe configures the recent-fingerprint window.
type Dedupe struct {
	Size   int           `koanf:"size"`
	Window time.Duration `koanf:"window"`

	// RedisURL switches the window to a shared Redis cache when set.
	RedisURL string `koanf:"redis_url"`
}

// Trust configures the trust score engine.
type Trust struct {
	Weights Weights `koanf:"weights"`

	// HalfLife is the age at which recency drops to one half.
	HalfLife time.Duration `koanf:"half_life"`

	// RecencyFloor is the lowest recency score; must be > 0.
	RecencyFloor float64 `koanf:"recency_floor"`

	// DefaultSourceScore applies when neither host nor submitter is known.
	DefaultSourceScore float64 `koanf:"default_source_score"`

	// SubmitterScores maps a submitter kind (automation, partner, manual) to a reputation.
	SubmitterScores map[string]float64 `koanf:"submitter_scores"`

	// HostScores maps a canonical source host to a reputation, overriding the submitter.
	HostScores map[string]float64 `koanf:"host_scores"`
}

// Weights are the relative weights of the four sub-scores.
type Weights struct {
	Source       float64 `koanf:"source"`
	Recency      float64 `koanf:"recency"`
	Verification float64 `koanf:"verification"`
	Community    float64 `koanf:"community"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":9080",
		MaxBatchSize:  500,
		Concurrency:   8,
		DatabaseURL:   "sqlite://trustgate.db",
		QueueSize:     10_000,
		WorkerCount:   runtime.NumCPU(),
		SweepInterval: time.Hour,
		Reasoning: Reasoning{
			Endpoint:  "https://api.anthropic.com/v1/messages",
			Model:     "claude-sonnet-4-5",
			MaxTokens: 1024,
			Timeout:   15 * time.Second,
			RateLimit: 5,
			Burst:     5,
		},
		Dedupe: Dedupe{
			Size:   100_000,
			Window: 7 * 24 * time.Hour,
		},
		Trust: Trust{
			Weights: Weights{
				Source:       0.3,
				Recency:      0.2,
				Verification: 0.3,
				Community:    0.2,
			},
			HalfLife:           30 * 24 * time.Hour,
			RecencyFloor:       0.1,
			DefaultSourceScore: 0.5,
			SubmitterScores: map[string]float64{
				"automation": 0.5,
				"partner":    0.7,
				"manual":     0.6,
			},
			HostScores: map[string]float64{},
		},
		SafetyRules: map[string]string{
			"missing-source-url": `source_url == ""`,
			"stale-event":        `item_type == "event" && has_occurrence && occurrence_age_hours > 24.0`,
			"excessive-price":    `has_price && price > 1000.0`,
		},
	}
}

// Validate checks ranges and required values.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxBatchSize <= 0:
		return fmt.Errorf("%w: max_batch_size must be positive", ErrInvalidConfig)
	case c.Concurrency <= 0:
		return fmt.Errorf("%w: concurrency must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.SweepInterval < 0:
		return fmt.Errorf("%w: sweep_interval must not be negative", ErrInvalidConfig)
	case c.DatabaseURL == "":
		return fmt.Errorf("%w: database_url must not be empty", ErrInvalidConfig)
	case c.Reasoning.Timeout <= 0:
		return fmt.Errorf("%w: reasoning.timeout must be positive", ErrInvalidConfig)
	case c.Reasoning.RateLimit <= 0 || c.Reasoning.Burst <= 0:
		return fmt.Errorf("%w: reasoning rate_limit and burst must be positive", ErrInvalidConfig)
	case c.Dedupe.Size <= 0 || c.Dedupe.Window <= 0:
		return fmt.Errorf("%w: dedupe size and window must be positive", ErrInvalidConfig)
	}
	return c.Trust.validate()
}

func (t Trust) validate() error {
	w := t.Weights
	if w.Source < 0 || w.Recency < 0 || w.Verification < 0 || w.Community < 0 {
		return fmt.Errorf("%w: trust weights must not be negative", ErrInvalidConfig)
	}
	if w.Source+w.Recency+w.Verification <= 0 {
		return fmt.Errorf("%w: trust weights without community must sum above zero", ErrInvalidConfig)
	}
	if t.HalfLife <= 0 {
		return fmt.Errorf("%w: trust.half_life must be positive", ErrInvalidConfig)
	}
	if t.RecencyFloor <= 0 || t.RecencyFloor > 1 {
		return fmt.Errorf("%w: trust.recency_floor must be in (0,1]", ErrInvalidConfig)
	}
	if !unit(t.DefaultSourceScore) {
		return fmt.Errorf("%w: trust.default_source_score must be in [0,1]", ErrInvalidConfig)
	}
	for k, v := range t.SubmitterScores {
		if !unit(v) {
			return fmt.Errorf("%w: trust.submitter_scores.%s must be in [0,1]", ErrInvalidConfig, k)
		}
	}
	for k, v := range t.HostScores {
		if !unit(v) {
			return fmt.Errorf("%w: trust.host_scores.%s must be in [0,1]", ErrInvalidConfig, k)
		}
	}
	return nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }
