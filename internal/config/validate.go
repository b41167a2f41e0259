package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRipser(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRipser() error {
	if strings.TrimSpace(c.Ripser.Binary) == "" {
		return errors.New("ripser.binary must be set")
	}
	if c.Ripser.MaxDim < 0 {
		return fmt.Errorf("ripser.max_dim must be non-negative, got %d", c.Ripser.MaxDim)
	}
	if strings.TrimSpace(c.Ripser.Format) == "" {
		return errors.New("ripser.format must be set")
	}
	if strings.ContainsAny(c.Ripser.Format, " \t") {
		return fmt.Errorf("ripser.format must be a single token, got %q", c.Ripser.Format)
	}
	if c.Ripser.TimeoutSeconds < 0 {
		return errors.New("ripser.timeout_seconds must be zero (disabled) or positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		return errors.New("cache.path must be set when cache.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
