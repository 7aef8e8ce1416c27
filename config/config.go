// Package config loads and validates the tg-export configuration from file,
// environment and flags via viper.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Governor GovernorConfig `toml:"governor" mapstructure:"governor"`
	Cache    CacheConfig    `toml:"cache" mapstructure:"cache"`
	Telegram TelegramConfig `toml:"telegram" mapstructure:"telegram"`
	Export   ExportConfig   `toml:"export" mapstructure:"export"`
}

type GovernorConfig struct {
	MaxWorkers     int           `toml:"max_workers" mapstructure:"max_workers"`
	InitialWorkers int           `toml:"initial_workers" mapstructure:"initial_workers"`
	MinDelay       time.Duration `toml:"min_delay" mapstructure:"min_delay"`
	MaxDelay       time.Duration `toml:"max_delay" mapstructure:"max_delay"`
}

type CacheConfig struct {
	TTL      time.Duration `toml:"ttl" mapstructure:"ttl"`
	Capacity int           `toml:"capacity" mapstructure:"capacity"`
}

type TelegramConfig struct {
	AppID   int    `toml:"app_id" mapstructure:"app_id"`
	AppHash string `toml:"app_hash" mapstructure:"app_hash"`
	Session string `toml:"session" mapstructure:"session"`
}

type ExportConfig struct {
	Channel         string `toml:"channel" mapstructure:"channel"`
	OutputDir       string `toml:"output_dir" mapstructure:"output_dir"`
	Threads         int    `toml:"threads" mapstructure:"threads"`
	OverwritePolicy string `toml:"overwrite_policy" mapstructure:"overwrite_policy"`
	Dedupe          bool   `toml:"dedupe" mapstructure:"dedupe"`
	Limit           int    `toml:"limit" mapstructure:"limit"`
}

var cfg = &Config{}

func C() Config {
	return *cfg
}

// Init reads the config file (TOML), applies env overrides with the TGEXPORT
// prefix and validates the result. Invalid bounds fail here, before anything
// is constructed from them.
func Init(ctx context.Context, configFile string) error {
	viper.SetConfigType("toml")
	viper.SetEnvPrefix("TGEXPORT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/tg-export/")
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg.Validate()
}

func setDefaults() {
	viper.SetDefault("governor.max_workers", 8)
	viper.SetDefault("governor.initial_workers", 3)
	viper.SetDefault("governor.min_delay", 100*time.Millisecond)
	viper.SetDefault("governor.max_delay", 3*time.Second)
	viper.SetDefault("cache.ttl", 300*time.Second)
	viper.SetDefault("cache.capacity", 100)
	viper.SetDefault("telegram.session", "tg-export.session")
	viper.SetDefault("export.output_dir", "export")
	viper.SetDefault("export.threads", 4)
	viper.SetDefault("export.overwrite_policy", "rename")
}

// Validate checks every construction surface bound. Out-of-range values are
// rejected, never clamped.
func (c *Config) Validate() error {
	g := c.Governor
	if g.MaxWorkers < 1 || g.MaxWorkers > 32 {
		return fmt.Errorf("governor.max_workers must be in [1, 32], got %d", g.MaxWorkers)
	}
	if g.InitialWorkers < 1 || g.InitialWorkers > 16 {
		return fmt.Errorf("governor.initial_workers must be in [1, 16], got %d", g.InitialWorkers)
	}
	if g.InitialWorkers > g.MaxWorkers {
		return fmt.Errorf("governor.initial_workers (%d) must not exceed governor.max_workers (%d)", g.InitialWorkers, g.MaxWorkers)
	}
	if g.MinDelay <= 0 {
		return fmt.Errorf("governor.min_delay must be positive, got %s", g.MinDelay)
	}
	if g.MaxDelay < g.MinDelay {
		return fmt.Errorf("governor.max_delay (%s) must be >= governor.min_delay (%s)", g.MaxDelay, g.MinDelay)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity)
	}
	switch strings.ToLower(c.Export.OverwritePolicy) {
	case "", "overwrite", "skip", "rename":
	default:
		return fmt.Errorf("export.overwrite_policy must be one of overwrite|skip|rename, got %q", c.Export.OverwritePolicy)
	}
	return nil
}
