// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadConfigJSONC(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "store.jsonc", `{
  // Shared result store for the worker pool.
  "container": "results.blobs",
  "lock_file": "results.lock",
  "compression": "zstd",  // trailing comma below is fine in JSONC
}`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Container != filepath.Join(dir, "results.blobs") {
		t.Errorf("container %q not resolved against the config directory", config.Container)
	}
	if config.LockFile != filepath.Join(dir, "results.lock") {
		t.Errorf("lock file %q not resolved against the config directory", config.LockFile)
	}
	if config.Compression != "zstd" {
		t.Errorf("compression %q, want zstd", config.Compression)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "store.yaml", `container: results.blobs
lock_file: results.lock
compression: lz4
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Container != filepath.Join(dir, "results.blobs") {
		t.Errorf("container %q not resolved against the config directory", config.Container)
	}
	if config.Compression != "lz4" {
		t.Errorf("compression %q, want lz4", config.Compression)
	}
}

func TestLoadConfigAbsolutePathsUntouched(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "store.yaml",
		"container: /var/lib/wirepack/results.blobs\n")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Container != "/var/lib/wirepack/results.blobs" {
		t.Errorf("absolute container path was rewritten to %q", config.Container)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing container", func(t *testing.T) {
		path := writeConfigFile(t, dir, "empty.yaml", "compression: lz4\n")
		if _, err := LoadConfig(path); err == nil {
			t.Error("LoadConfig accepted a config without a container path")
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeConfigFile(t, dir, "store.toml", "container = \"x\"\n")
		if _, err := LoadConfig(path); err == nil {
			t.Error("LoadConfig accepted an unsupported extension")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(dir, "nope.yaml")); err == nil {
			t.Error("LoadConfig succeeded on a missing file")
		}
	})

	t.Run("bad compression name", func(t *testing.T) {
		path := writeConfigFile(t, dir, "badcomp.yaml",
			"container: results.blobs\ncompression: gzip\n")
		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if _, err := config.Open(); err == nil {
			t.Error("Open accepted an unknown compression name")
		}
	})
}

func TestConfigOpen(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "store.jsonc", `{
  "container": "results.blobs",
  "compression": "zstd",
}`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	store, err := config.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	key, err := store.Put(testPayload(4))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	info, err := store.Stat(key)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Compression != CompressionZstd {
		t.Errorf("config compression not applied: entry stored with %s", info.Compression)
	}
}
