// Package config loads, normalizes, and validates glow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GLOW_NTFY_TOPIC. The Config type centralizes every knob the daemon and CLI
// need: stripe geometry, engine pacing, transport selection and endpoints,
// the gateway bind address, and filesystem locations.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
