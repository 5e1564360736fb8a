// Package probe resolves durations and stream parameters for audio clips.
//
// Probing prefers the cheapest source that can answer: a prior result in the
// run-ledger probe cache (validated against file size and mtime), then the
// RIFF/WAVE header for .wav files, and only then an ffprobe subprocess with
// JSON output.
//
// Key types:
//   - Prober: cached, fast-path-aware prober for batch duration work
//   - Info: flattened duration/sample-rate/channel result
//   - Result: raw parsed ffprobe output for callers that need stream detail
//
// Primary entry points:
//   - New: builds a Prober from Options
//   - Inspect: executes ffprobe directly and returns the parsed Result
//   - WavInfo: header-only probe for WAVE files
package probe
