package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Map.MarkerCap != 100 || !cfg.Map.Cluster {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geowatch.yaml")
	data := []byte("addr: \":9000\"\nmap:\n  zoom: 11\n  marker_cap: 50\n  debounce_ms: 150\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9999")
	t.Setenv("DATABASE_URL", "postgres://geo")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("env PORT should win: %q", cfg.Addr)
	}
	if cfg.Map.Zoom != 11 || cfg.Map.MarkerCap != 50 {
		t.Errorf("file values lost: %+v", cfg.Map)
	}
	if cfg.DatabaseURL != "postgres://geo" {
		t.Errorf("database url = %q", cfg.DatabaseURL)
	}
	if cfg.Map.Debounce().Milliseconds() != 150 {
		t.Errorf("debounce = %v", cfg.Map.Debounce())
	}
	// Untouched fields keep their defaults.
	if cfg.Map.TileURL == "" {
		t.Error("tile url default lost")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("addr: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml should error")
	}
}
