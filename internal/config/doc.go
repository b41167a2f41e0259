// Package config loads, normalizes, and validates ripsergo configuration data.
//
// It supplies repository defaults (including the default ripser executable
// name, which the pipeline itself never assumes), expands user paths including
// tilde shortcuts, and reads TOML files from ~/.config/ripsergo/config.toml or
// ./ripsergo.toml.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
