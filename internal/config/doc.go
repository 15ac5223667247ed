// Package config loads, normalizes, and validates clipmatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PIXABAY_API_KEY. The Config type centralizes the directories, search
// defaults, worker bounds, and external tool settings that the pipeline and
// CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
