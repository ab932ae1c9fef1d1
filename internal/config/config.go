// Package config loads service configuration from an optional YAML file
// with environment overrides on top.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"geowatch/internal/model"
)

// Config is the full service configuration.
type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	Map         Map    `yaml:"map"`
}

// Map tunes the render pipeline defaults handed to every session.
type Map struct {
	Center             model.GeoPoint `yaml:"center"`
	Zoom               int            `yaml:"zoom"`
	MarkerCap          int            `yaml:"marker_cap"`
	Cluster            bool           `yaml:"cluster"`
	ClusterRadius      int            `yaml:"cluster_radius"`
	ClusterRadiusTouch int            `yaml:"cluster_radius_touch"`
	DebounceMs         int            `yaml:"debounce_ms"`
	RefreshMs          int            `yaml:"refresh_ms"`
	TileURL            string         `yaml:"tile_url"`
	TileAttribution    string         `yaml:"tile_attribution"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Addr: ":8080",
		Map: Map{
			Center:             model.GeoPoint{Lat: 33.589886, Lng: -7.603869},
			Zoom:               13,
			MarkerCap:          100,
			Cluster:            true,
			ClusterRadius:      80,
			ClusterRadiusTouch: 50,
			DebounceMs:         300,
			RefreshMs:          400,
			TileURL:            "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			TileAttribution:    "&copy; OpenStreetMap contributors",
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty or the
// file does not exist) and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	return cfg, nil
}

// Debounce converts the configured delay to a duration.
func (m Map) Debounce() time.Duration { return time.Duration(m.DebounceMs) * time.Millisecond }

// Refresh converts the simulated refresh delay to a duration.
func (m Map) Refresh() time.Duration { return time.Duration(m.RefreshMs) * time.Millisecond }
