package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Store     StoreConfig     `koanf:"store"`
	Feed      FeedConfig      `koanf:"feed"`
	Cache     CacheConfig     `koanf:"cache"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	StaticDir    string        `koanf:"static_dir"` // empty disables the frontend file server
}

// SchedulerConfig controls the reconciliation cycle
type SchedulerConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// StoreConfig controls the in-memory store
type StoreConfig struct {
	Seed     bool   `koanf:"seed"`
	Timezone string `koanf:"timezone"`
}

// FeedConfig controls the live updates journal
type FeedConfig struct {
	Limit int `koanf:"limit"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `koanf:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Scheduler: SchedulerConfig{Interval: time.Minute},
		Store:     StoreConfig{Seed: true, Timezone: "Africa/Johannesburg"},
		Feed:      FeedConfig{Limit: 50},
		Cache:     CacheConfig{TTL: 30 * time.Second},
		Log:       LogConfig{Level: "info"},
	}
}

// Load loads configuration from the specified file on top of Default.
// An empty path returns the defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		k := koanf.New(".")

		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}

		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if c.Scheduler.Interval < time.Second {
		return fmt.Errorf("scheduler.interval must be at least 1s")
	}

	if c.Feed.Limit <= 0 {
		return fmt.Errorf("feed.limit must be positive")
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	return nil
}

// Location resolves store.timezone. An empty value means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Store.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Store.Timezone)
	if err != nil {
		return nil, fmt.Errorf("store.timezone: %w", err)
	}
	return loc, nil
}

// LogLevel parses log.level (debug, info, warn, error).
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
