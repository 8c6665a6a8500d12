// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

// Package config loads organizer settings from defaults, an optional
// organizer.yaml and ARC_ORGANIZER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/viper"

	"github.com/mtreilly/arc-organizer/internal/offline"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// ARC_ORGANIZER_STORAGE_BACKEND=memory.
const EnvPrefix = "ARC_ORGANIZER"

// Config is the complete organizer configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Offline OfflineConfig `mapstructure:"offline"`
	Search  SearchConfig  `mapstructure:"search"`
}

// StorageConfig selects the KV substrate.
type StorageConfig struct {
	Backend    string      `mapstructure:"backend"` // sql, kv, memory or redis
	Path       string      `mapstructure:"path"`
	QuotaBytes int64       `mapstructure:"quota_bytes"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// OfflineConfig describes the background worker.
type OfflineConfig struct {
	Listen              string        `mapstructure:"listen"`
	Origin              string        `mapstructure:"origin"`
	StaticCache         string        `mapstructure:"static_cache"`
	DynamicCache        string        `mapstructure:"dynamic_cache"`
	Shell               string        `mapstructure:"shell"`
	StaticFiles         []string      `mapstructure:"static_files"`
	DynamicPatterns     []string      `mapstructure:"dynamic_patterns"`
	ExcludePatterns     []string      `mapstructure:"exclude_patterns"`
	MaxDynamicEntries   int           `mapstructure:"max_dynamic_entries"`
	PruneSchedule       string        `mapstructure:"prune_schedule"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	PrecacheConcurrency int           `mapstructure:"precache_concurrency"`
	SkipWaiting         bool          `mapstructure:"skip_waiting"`
}

// Manager converts the offline section into cache manager settings.
func (c OfflineConfig) Manager() offline.ManagerConfig {
	return offline.ManagerConfig{
		StaticCache:         c.StaticCache,
		DynamicCache:        c.DynamicCache,
		Shell:               c.Shell,
		StaticFiles:         c.StaticFiles,
		DynamicPatterns:     c.DynamicPatterns,
		ExcludePatterns:     c.ExcludePatterns,
		FetchTimeout:        c.FetchTimeout,
		PrecacheConcurrency: c.PrecacheConcurrency,
	}
}

// Worker converts the offline section into worker settings.
func (c OfflineConfig) Worker() offline.WorkerConfig {
	return offline.WorkerConfig{
		Origin:            c.Origin,
		MaxDynamicEntries: c.MaxDynamicEntries,
		PruneSchedule:     c.PruneSchedule,
		SkipWaiting:       c.SkipWaiting,
	}
}

type SearchConfig struct {
	MemoSize int `mapstructure:"memo_size"`
}

// Load reads the configuration. Priority: environment > file > defaults.
// An empty path searches for organizer.yaml in . and $HOME/.arc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("organizer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".arc"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "sql")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.quota_bytes", 50*1024*1024)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")

	v.SetDefault("offline.listen", "127.0.0.1:8787")
	v.SetDefault("offline.origin", "http://localhost:8080")
	v.SetDefault("offline.static_cache", "arc-organizer-static-v1")
	v.SetDefault("offline.dynamic_cache", "arc-organizer-dynamic-v1")
	v.SetDefault("offline.shell", "/index.html")
	v.SetDefault("offline.static_files", offline.DefaultStaticFiles)
	v.SetDefault("offline.dynamic_patterns", offline.DefaultDynamicPatterns)
	v.SetDefault("offline.exclude_patterns", offline.DefaultExcludePatterns)
	v.SetDefault("offline.max_dynamic_entries", 100)
	v.SetDefault("offline.prune_schedule", "@daily")
	v.SetDefault("offline.fetch_timeout", "10s")
	v.SetDefault("offline.precache_concurrency", 4)
	v.SetDefault("offline.skip_waiting", true)

	v.SetDefault("search.memo_size", 128)
}

// Validate rejects settings the organizer cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sql", "kv", "memory":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("config: storage.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown storage.backend %q (choose sql, kv, memory or redis)", c.Storage.Backend)
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("config: storage.quota_bytes must not be negative")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format must be json or console, got %q", c.Log.Format)
	}

	o := c.Offline
	u, err := url.Parse(o.Origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: offline.origin must be an absolute url, got %q", o.Origin)
	}
	if o.StaticCache == "" || o.DynamicCache == "" {
		return fmt.Errorf("config: offline cache names must not be empty")
	}
	if o.StaticCache == o.DynamicCache {
		return fmt.Errorf("config: offline.static_cache and offline.dynamic_cache must differ")
	}
	if o.MaxDynamicEntries <= 0 {
		return fmt.Errorf("config: offline.max_dynamic_entries must be positive")
	}
	if _, err := cron.Parse(o.PruneSchedule); err != nil {
		return fmt.Errorf("config: offline.prune_schedule: %w", err)
	}
	if o.FetchTimeout < 0 {
		return fmt.Errorf("config: offline.fetch_timeout must not be negative")
	}
	if c.Search.MemoSize < 0 {
		return fmt.Errorf("config: search.memo_size must not be negative")
	}
	return nil
}
