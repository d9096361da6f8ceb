// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

// Package config loads arc-bridge settings from defaults, an optional YAML
// file and ARC_BRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. ARC_BRIDGE_SERVER_PORT.
const EnvPrefix = "ARC_BRIDGE"

// Storage backends.
const (
	BackendSQL    = "sql"
	BackendKV     = "kv"
	BackendMemory = "memory"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Plugin  PluginConfig  `mapstructure:"plugin"`
	Host    HostConfig    `mapstructure:"host"`
	Search  SearchConfig  `mapstructure:"search"`
	Schema  SchemaConfig  `mapstructure:"schema"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	v *viper.Viper
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Bind              string        `mapstructure:"bind"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns bind:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Bind, s.Port)
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// LogConfig controls zap output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PluginConfig names this bridge in /ping.
type PluginConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// HostConfig describes the library the bridge serves.
type HostConfig struct {
	Version   string `mapstructure:"version"`
	LibraryID int64  `mapstructure:"library_id"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
}

// SchemaConfig points at an optional item-type vocabulary file.
type SchemaConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultDBPath returns ~/.arc-bridge/library.db, or a relative path when
// the home directory cannot be determined.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".arc-bridge", "library.db")
	}
	return filepath.Join(home, ".arc-bridge", "library.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.bind", "127.0.0.1")
	v.SetDefault("server.port", 23120)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.read_header_timeout", 2*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("storage.backend", BackendSQL)
	v.SetDefault("storage.path", DefaultDBPath())

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("plugin.name", "arc-bridge")
	v.SetDefault("plugin.version", "0.1.0")
	v.SetDefault("host.version", "dev")
	v.SetDefault("host.library_id", 1)

	v.SetDefault("search.default_limit", 100)
	v.SetDefault("schema.path", "")
	v.SetDefault("metrics.enabled", true)
}

// Load reads configuration. With an empty path it looks for arc-bridge.yaml
// in the working directory and ~/.config/arc-bridge; a missing file there is
// not an error. An explicit path must exist.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("arc-bridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "arc-bridge"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.v = v
	return &cfg, nil
}

// File returns the config file in use, or "" when running on defaults.
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Watch calls onChange with the re-read configuration each time the config
// file is written. Updates that fail validation are reported through err.
// It reports false when there is no file to watch.
func (c *Config) Watch(onChange func(next *Config, err error)) bool {
	if c.File() == "" {
		return false
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		next, err := decode(c.v)
		onChange(next, err)
	})
	c.v.WatchConfig()
	return true
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQL, BackendKV, BackendMemory:
	default:
		return fmt.Errorf("config: unknown storage backend %q (choose sql, kv, or memory)", c.Storage.Backend)
	}
	if (c.Storage.Backend == BackendSQL || c.Storage.Backend == BackendKV) && c.Storage.Path == "" {
		return fmt.Errorf("config: storage.path is required for the %s backend", c.Storage.Backend)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("config: search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	return nil
}
