// Package config loads tool settings from an optional YAML file with
// environment variable overrides, and parses data set schemas used to
// create new files.
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds the tool settings. Every field can be set from the
// environment with an EFTS_ prefix, e.g. EFTS_LOG_LEVEL=debug.
type Config struct {
	LogLevel    string `envconfig:"LOG_LEVEL" yaml:"log_level"`
	Concurrency int    `envconfig:"CONCURRENCY" yaml:"concurrency"`
	BatchSize   int    `envconfig:"BATCH_SIZE" yaml:"batch_size"`
}

// Load reads the YAML file at path when path is not empty, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	var cnf Config
	if path != "" {
		yamlData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(yamlData, &cnf); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	if err := envconfig.Process("efts", &cnf); err != nil {
		return nil, fmt.Errorf("config: environment variable parsing: %w", err)
	}
	if cnf.LogLevel == "" {
		cnf.LogLevel = "info"
	}
	if cnf.Concurrency <= 0 {
		cnf.Concurrency = runtime.NumCPU()
	}
	if cnf.BatchSize <= 0 {
		cnf.BatchSize = 500
	}
	return &cnf, nil
}
