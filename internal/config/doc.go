// Package config loads, validates, and normalizes newsmill's TOML configuration.
package config
