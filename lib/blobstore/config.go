// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config describes a shared container so that every worker process
// opens it the same way. Configs are authored as JSONC (JSON with
// comments and trailing commas) or YAML, selected by file extension.
type Config struct {
	// Container is the path of the container file. Relative paths
	// are resolved against the config file's directory by LoadConfig.
	Container string `json:"container" yaml:"container"`

	// LockFile is the path of the lock file. Empty means the default
	// (container path + ".lock"). Relative paths are resolved like
	// Container. All processes sharing the container must agree on
	// this value.
	LockFile string `json:"lock_file" yaml:"lock_file"`

	// Compression fixes the compression algorithm by name ("none",
	// "lz4", "zstd", "bg4_lz4"). Empty selects per-payload.
	Compression string `json:"compression" yaml:"compression"`
}

// LoadConfig reads and parses a store config file. ".jsonc" and
// ".json" files are parsed as JSONC; ".yaml" and ".yml" as YAML.
// Relative Container and LockFile paths are resolved against the
// config file's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading store config: %w", err)
	}

	var config Config
	switch filepath.Ext(path) {
	case ".jsonc", ".json":
		if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
			return nil, fmt.Errorf("parsing store config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parsing store config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("store config %s: unsupported extension (want .jsonc, .json, .yaml, or .yml)", path)
	}

	if config.Container == "" {
		return nil, fmt.Errorf("store config %s: missing container path", path)
	}

	base := filepath.Dir(path)
	if !filepath.IsAbs(config.Container) {
		config.Container = filepath.Join(base, config.Container)
	}
	if config.LockFile != "" && !filepath.IsAbs(config.LockFile) {
		config.LockFile = filepath.Join(base, config.LockFile)
	}

	return &config, nil
}

// Open opens the store the config describes.
func (c *Config) Open() (*Store, error) {
	var opts []Option
	if c.LockFile != "" {
		opts = append(opts, WithLockFile(c.LockFile))
	}
	if c.Compression != "" {
		tag, err := ParseCompressionTag(c.Compression)
		if err != nil {
			return nil, fmt.Errorf("store config: %w", err)
		}
		opts = append(opts, WithCompression(tag))
	}
	return Open(c.Container, opts...)
}
