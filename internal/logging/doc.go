// Package logging wraps log/slog with the handlers and field conventions used
// across corpuskit. Console output renders a compact single line per record,
// JSON output is meant for log shipping, and every run appends to
// corpuskit.log under the configured log directory.
package logging
