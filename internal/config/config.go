package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level configuration loaded from file/env for the
// utubettl service: the HTTP address, logging, and the defaults applied
// when a space is created without explicit overrides.
type Config struct {
	HTTPAddr       string        `json:"httpAddr"`
	LogLevel       string        `json:"logLevel"`
	LogFormat      string        `json:"logFormat"`
	DefaultSpace   string        `json:"defaultSpace"`
	SpaceDefaults  SpaceDefaults `json:"spaceDefaults"`
}

// SpaceDefaults are applied to a space created without explicit
// ttl/ttr/pri/limit overrides.
type SpaceDefaults struct {
	TTL   time.Duration  `json:"ttl"`
	TTR   time.Duration  `json:"ttr"`
	Pri   int32          `json:"pri"`
	Limit map[string]int `json:"limit"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:     ":8080",
		LogLevel:     "info",
		LogFormat:    "text",
		DefaultSpace: "default",
		SpaceDefaults: SpaceDefaults{
			TTL: 0, // 0 resolves to queue.PracticalInfinityMicros at space construction
			TTR: 0,
			Pri: 0,
		},
	}
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults. YAML is not supported yet.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	ext := filepath.Ext(path)
	switch ext {
	case ".yaml", ".yml":
		return Config{}, errors.New("yaml config not supported yet; use JSON for now")
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}
