package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeRipser(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeRipser() error {
	c.Ripser.Binary = strings.TrimSpace(c.Ripser.Binary)
	if c.Ripser.Binary == "" {
		c.Ripser.Binary = defaultRipserBinary
	}
	// Bare command names are resolved through PATH at execution time; only
	// values that look like paths are expanded.
	if strings.ContainsAny(c.Ripser.Binary, `/\`) || strings.HasPrefix(c.Ripser.Binary, "~") {
		expanded, err := expandPath(c.Ripser.Binary)
		if err != nil {
			return fmt.Errorf("ripser.binary: %w", err)
		}
		c.Ripser.Binary = expanded
	}
	c.Ripser.Format = strings.ToLower(strings.TrimSpace(c.Ripser.Format))
	if c.Ripser.Format == "" {
		c.Ripser.Format = defaultRipserFormat
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCache() error {
	var err error
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath()
	}
	if c.Cache.Path, err = expandPath(strings.TrimSpace(c.Cache.Path)); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
