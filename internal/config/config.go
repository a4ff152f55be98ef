// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads a source profile from a YAML file.
func LoadFromFile(filename string) (*SourceConfig, error) {
	if filename == "" {
		return nil, fmt.Errorf("profile filename cannot be empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads a source profile from YAML bytes. Environment
// variables in the document are expanded before parsing so secrets
// (e.g. request header values) can stay out of the file.
func LoadFromBytes(data []byte) (*SourceConfig, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("profile data cannot be empty")
	}

	expanded := os.ExpandEnv(string(data))

	var cfg SourceConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads a source profile from an io.Reader.
func LoadFromReader(r io.Reader) (*SourceConfig, error) {
	if r == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	return LoadFromBytes(data)
}

// applyDefaults fills in values the profile author may omit.
func applyDefaults(cfg *SourceConfig) {
	if cfg.Type == "" {
		cfg.Type = TypeArticle
	}
	if cfg.List != nil {
		if cfg.List.Limit == 0 {
			cfg.List.Limit = 100
		}
		if cfg.List.MaxPages == 0 {
			cfg.List.MaxPages = 1
		}
	}
}
