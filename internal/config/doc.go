// Package config loads, normalizes, and validates clipforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, applies a working-directory .env file, and
// honours environment fallbacks such as CLIPFORGE_API_TOKEN and NTFY_TOPIC.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
