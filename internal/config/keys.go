package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "MINDMATE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "claude.api_key", typ: kString, env: "MINDMATE_ANTHROPIC_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Claude.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Claude.APIKey },
	},
	{
		key: "claude.model", typ: kString, env: "MINDMATE_CLAUDE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Claude.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Claude.Model },
	},
	{
		key: "claude.base_url", typ: kString, env: "MINDMATE_CLAUDE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Claude.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Claude.BaseURL },
	},
	{
		key: "claude.max_tokens", typ: kInt, env: "MINDMATE_CLAUDE_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Claude.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Claude.MaxTokens },
	},
	{
		key: "storage.data_dir", typ: kString, env: "MINDMATE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "MINDMATE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
