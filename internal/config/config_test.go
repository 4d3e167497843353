package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("default http addr")
	}
	if cfg.DefaultSpace != "default" {
		t.Fatalf("default space name")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("default log level")
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "utubettl.json")
	data := []byte(`{"httpAddr":":9090","defaultSpace":"jobs","spaceDefaults":{"ttl":5000000000,"pri":3}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.HTTPAddr)
	}
	if cfg.DefaultSpace != "jobs" {
		t.Fatalf("expected jobs")
	}
	if cfg.SpaceDefaults.TTL != 5*time.Second {
		t.Fatalf("expected 5s ttl, got %v", cfg.SpaceDefaults.TTL)
	}
	if cfg.SpaceDefaults.Pri != 3 {
		t.Fatalf("expected pri 3")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("UTUBETTL_HTTP_ADDR", ":7070")
	os.Setenv("UTUBETTL_DEFAULT_SPACE", "staging")
	os.Setenv("UTUBETTL_DEFAULT_PRI", "9")
	t.Cleanup(func() {
		os.Unsetenv("UTUBETTL_HTTP_ADDR")
		os.Unsetenv("UTUBETTL_DEFAULT_SPACE")
		os.Unsetenv("UTUBETTL_DEFAULT_PRI")
	})
	FromEnv(&cfg)
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("env override http addr")
	}
	if cfg.DefaultSpace != "staging" {
		t.Fatalf("env override default space")
	}
	if cfg.SpaceDefaults.Pri != 9 {
		t.Fatalf("env override pri")
	}
}
