// Package config loads, normalizes, and validates telex configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TELEX_SMTP_PASSWORD, optionally sourced from a .env file next to the config.
// Routing rules are declared as an ordered [[routes]] array so first-match
// evaluation never depends on map iteration order.
//
// Configuration is read once at startup and never mutated afterwards; every
// failure surfaced from Load is tagged with services.ErrConfiguration.
package config
