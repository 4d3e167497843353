package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays UTUBETTL_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("UTUBETTL_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("UTUBETTL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("UTUBETTL_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("UTUBETTL_DEFAULT_SPACE"); v != "" {
		cfg.DefaultSpace = v
	}
	if v := os.Getenv("UTUBETTL_DEFAULT_TTL_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.SpaceDefaults.TTL = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("UTUBETTL_DEFAULT_TTR_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.SpaceDefaults.TTR = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("UTUBETTL_DEFAULT_PRI"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			cfg.SpaceDefaults.Pri = int32(n)
		}
	}
}
