package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML configuration, pointed at by
// FILESPLIT_CONFIG. All fields have flag or built-in fallbacks.
type fileConfig struct {
	Ceiling  string `yaml:"ceiling"`   // default part ceiling, e.g. "10MiB"
	EventsDB string `yaml:"events_db"` // SQLite event store path
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// parseSize parses a byte size: a plain integer, or an integer with a
// KiB/MiB/GiB (binary) or KB/MB/GB (treated the same) suffix.
func parseSize(s string) (int64, error) {
	t := strings.TrimSpace(strings.ToLower(s))
	mult := int64(1)
	for _, suf := range []struct {
		name string
		mult int64
	}{
		{"kib", 1024}, {"mib", 1024 * 1024}, {"gib", 1024 * 1024 * 1024},
		{"kb", 1024}, {"mb", 1024 * 1024}, {"gb", 1024 * 1024 * 1024},
		{"k", 1024}, {"m", 1024 * 1024}, {"g", 1024 * 1024 * 1024},
	} {
		if strings.HasSuffix(t, suf.name) {
			t = strings.TrimSpace(strings.TrimSuffix(t, suf.name))
			mult = suf.mult
			break
		}
	}
	n, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive, got %q", s)
	}
	return n * mult, nil
}
