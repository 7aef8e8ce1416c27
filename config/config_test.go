package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Governor: GovernorConfig{
			MaxWorkers:     8,
			InitialWorkers: 3,
			MinDelay:       100 * time.Millisecond,
			MaxDelay:       3 * time.Second,
		},
		Cache: CacheConfig{
			TTL:      300 * time.Second,
			Capacity: 100,
		},
		Export: ExportConfig{
			OverwritePolicy: "rename",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"empty policy is allowed", func(c *Config) { c.Export.OverwritePolicy = "" }, true},
		{"max workers above bound", func(c *Config) { c.Governor.MaxWorkers = 64 }, false},
		{"initial workers above bound", func(c *Config) { c.Governor.InitialWorkers = 17 }, false},
		{"initial above max", func(c *Config) { c.Governor.MaxWorkers = 2; c.Governor.InitialWorkers = 4 }, false},
		{"min delay zero", func(c *Config) { c.Governor.MinDelay = 0 }, false},
		{"max delay below min", func(c *Config) { c.Governor.MaxDelay = time.Millisecond }, false},
		{"cache ttl zero", func(c *Config) { c.Cache.TTL = 0 }, false},
		{"cache capacity zero", func(c *Config) { c.Cache.Capacity = 0 }, false},
		{"bad policy", func(c *Config) { c.Export.OverwritePolicy = "clobber" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
