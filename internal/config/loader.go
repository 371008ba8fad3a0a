package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "TRIAGE_"
	envConfigPath = "TRIAGE_CONFIG"
)

type loadSettings struct {
	envFile string
}

// LoadOption customises Load.
type LoadOption func(*loadSettings)

// WithEnvFile sets the dotenv file read before the environment. Empty disables it.
func WithEnvFile(path string) LoadOption {
	return func(s *loadSettings) {
		s.envFile = path
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TRIAGE_CONFIG is set
//  3. env (prefix TRIAGE_, "__" separates nested keys)
//
// A .env file, when present, populates the environment first without
// overriding variables that are already set.
func Load(_ context.Context, opts ...LoadOption) (*Config, error) {
	s := loadSettings{envFile: ".env"}
	for _, opt := range opts {
		opt(&s)
	}

	if s.envFile != "" {
		if _, err := os.Stat(s.envFile); err == nil {
			if err := godotenv.Load(s.envFile); err != nil {
				return nil, fmt.Errorf("%w: env file %s: %w", ErrLoadConfig, s.envFile, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: env file %s: %w", ErrLoadConfig, s.envFile, err)
		}
	}

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// TRIAGE_QUEUE_SIZE -> queue_size, TRIAGE_TRUST__WEIGHTS__SOURCE -> trust.weights.source
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The file path itself is not a config key.
	k.Delete("config")

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
