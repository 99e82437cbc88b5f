package config

import (
	"errors"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
)

var knownProviders = map[string]bool{
	"lrclib":  true,
	"netease": true,
	"kugou":   true,
	"generic": true,
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Player.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("player: %w", err))
	}
	if err := c.Sync.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}
	if err := c.Cache.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if err := c.Providers.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("providers: %w", err))
	}
	if err := c.Overlay.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("overlay: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

func (c *PlayerConfig) Validate() error {
	if c.PollIntervalMS < 0 {
		return errors.New("poll_interval_ms must be non-negative")
	}
	if c.DebounceMS < 0 {
		return errors.New("debounce_ms must be non-negative")
	}
	return nil
}

func (c *SyncConfig) Validate() error {
	if c.TickMS < 0 {
		return errors.New("tick_ms must be non-negative")
	}
	return nil
}

func (c *CacheConfig) Validate() error {
	switch c.Backend {
	case "", BackendFile, BackendBolt, BackendRedis:
	default:
		return fmt.Errorf("invalid backend: %s (must be file, bolt, or redis)", c.Backend)
	}
	if c.RedisDB < 0 {
		return errors.New("redis_db must be non-negative")
	}
	return nil
}

func (c *ProvidersConfig) Validate() error {
	for _, name := range c.Order {
		if !knownProviders[name] {
			return fmt.Errorf("unknown provider: %s", name)
		}
	}
	if c.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must be non-negative")
	}
	if c.RatePerSecond < 0 {
		return errors.New("rate_per_second must be non-negative")
	}
	return nil
}

func (c *OverlayConfig) Validate() error {
	if c.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}
	return nil
}

func (c *LogConfig) Validate() error {
	if _, err := log.ParseLevel(c.Level); c.Level != "" && err != nil {
		return fmt.Errorf("invalid level: %s", c.Level)
	}
	return nil
}
