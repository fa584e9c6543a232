package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) at path, if path is non-empty and the file exists
//  3. env (prefix PREWARN_; double underscore separates nested keys,
//     e.g. PREWARN_SOUND__INTRO_TIMEOUT_SECONDS -> sound.intro_timeout_seconds)
func Load(path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
			}
		}
	}

	envProvider := env.Provider("PREWARN_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "prewarn_")
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.OpsAddr == "" {
		return fmt.Errorf("%w: ops_addr must not be empty", ErrInvalidConfig)
	}
	if cfg.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	switch cfg.PunchSource {
	case PunchSourceROC, PunchSourceOLA:
	default:
		return fmt.Errorf("%w: unknown punch_source %q", ErrInvalidConfig, cfg.PunchSource)
	}
	switch cfg.RosterSource {
	case RosterSourceFile, RosterSourceOLA:
	default:
		return fmt.Errorf("%w: unknown roster_source %q", ErrInvalidConfig, cfg.RosterSource)
	}
	return nil
}
