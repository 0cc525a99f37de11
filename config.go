// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package solstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/solstore/sizegate"
	"gopkg.in/yaml.v3"
)

// Config holds the settings for a Host.
type Config struct {
	// Root is the directory holding every solution's working folder.
	// Default: <user cache dir>/solstore
	Root string `yaml:"root"`

	// SizeThreshold is the solution size in bytes at which storage is used.
	// Default: 50 MiB
	SizeThreshold int64 `yaml:"size_threshold"`

	// DisposerPoolSize is the number of workers closing released stores.
	// Default: 2
	DisposerPoolSize int `yaml:"disposer_pool_size"`

	// SyncWrites makes every write durable before it returns.
	SyncWrites bool `yaml:"sync_writes"`

	// WatchRoot invalidates all stores when Root is removed or renamed.
	WatchRoot bool `yaml:"watch_root"`

	// Remote runs the host as the remote workspace, where every solution is
	// eligible regardless of size.
	Remote bool `yaml:"remote"`

	// InMemory keeps stores in memory. Working folders are still created.
	// Blobs larger than badger.MaxMemoryBlobSize (8 MiB) are refused.
	InMemory bool `yaml:"in_memory"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithRoot sets the storage root directory.
func WithRoot(root string) ConfigOption {
	return func(c *Config) {
		c.Root = root
	}
}

// WithSizeThreshold sets the size threshold in bytes.
func WithSizeThreshold(threshold int64) ConfigOption {
	return func(c *Config) {
		c.SizeThreshold = threshold
	}
}

// WithDisposerPoolSize sets the number of disposer workers.
func WithDisposerPoolSize(size int) ConfigOption {
	return func(c *Config) {
		c.DisposerPoolSize = size
	}
}

// WithSyncWrites enables durable writes.
func WithSyncWrites(sync bool) ConfigOption {
	return func(c *Config) {
		c.SyncWrites = sync
	}
}

// WithWatchRoot enables watching the storage root.
func WithWatchRoot(watch bool) ConfigOption {
	return func(c *Config) {
		c.WatchRoot = watch
	}
}

// WithRemote marks the host as the remote workspace.
func WithRemote(remote bool) ConfigOption {
	return func(c *Config) {
		c.Remote = remote
	}
}

// WithInMemory keeps stores in memory.
func WithInMemory(inMemory bool) ConfigOption {
	return func(c *Config) {
		c.InMemory = inMemory
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Root:             defaultRoot(),
		SizeThreshold:    sizegate.DefaultThreshold,
		DisposerPoolSize: 2,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// LoadConfig reads a YAML config file. Fields missing from the file keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize ensures the configuration is in a canonical form. A leading ~ in
// Root is expanded to the home directory.
func (c *Config) Normalize() {
	if c.Root == "" {
		return
	}
	if c.Root == "~" || strings.HasPrefix(c.Root, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			c.Root = filepath.Join(home, strings.TrimPrefix(c.Root, "~"))
		}
	}
	c.Root = filepath.Clean(c.Root)
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Root == "" {
		return errors.New("config: Root is required")
	}
	if c.SizeThreshold < 0 {
		return errors.New("config: SizeThreshold must not be negative")
	}
	if c.DisposerPoolSize < 1 {
		return errors.New("config: DisposerPoolSize must be at least 1")
	}
	return nil
}

func defaultRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "solstore")
	}
	return filepath.Join(os.TempDir(), "solstore")
}
