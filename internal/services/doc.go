// Package services defines shared utilities consumed by the batch tasks.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and task names for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (fatal vs skip-and-count) consistent across tasks.
//
// Use these helpers when wiring new task logic so operational behaviour stays
// uniform across the toolkit.
package services
