package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds tunable thresholds for the advisor and settings for the web
// server.
type Config struct {
	Advisor AdvisorConfig `json:"advisor" yaml:"advisor"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}

// AdvisorConfig defines the heuristic cutoffs used by the rule set.
type AdvisorConfig struct {
	NestedLoopRowThreshold   int64 `json:"nested_loop_row_threshold" yaml:"nested_loop_row_threshold"`
	NestedLoopCountThreshold int   `json:"nested_loop_count_threshold" yaml:"nested_loop_count_threshold"`
	HashBucketThreshold      int64 `json:"hash_bucket_threshold" yaml:"hash_bucket_threshold"`
	FilterRemovedThreshold   int64 `json:"filter_removed_threshold" yaml:"filter_removed_threshold"`
}

// ServerConfig defines listener settings for the serve command.
type ServerConfig struct {
	Addr           string        `json:"addr" yaml:"addr"`
	ReadTimeout    time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	AllowedOrigins []string      `json:"allowed_origins" yaml:"allowed_origins"`
}

var (
	mu     sync.RWMutex
	active = Default()
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Advisor: AdvisorConfig{
			NestedLoopRowThreshold:   1000,
			NestedLoopCountThreshold: 2,
			HashBucketThreshold:      100000,
			FilterRemovedThreshold:   10000,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Active returns the currently applied configuration.
func Active() Config {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// Use replaces the active configuration.
func Use(cfg Config) {
	mu.Lock()
	active = cfg
	mu.Unlock()
}

// Apply loads configuration from the provided path. JSON and YAML files are
// accepted, keyed on the file extension. Empty path resets to default.
func Apply(path string) error {
	if path == "" {
		Use(Default())
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	Use(cfg)
	return nil
}
