// Package config loads, normalizes, and validates corpuskit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CORPUSKIT_ROOT. The Config type centralizes every knob the tools need,
// allowing the corpus layout, transcode parameters, and dataset sources to be
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
