// Package ffprobe wraps the ffprobe CLI to measure clip and track durations.
//
// Inspect returns the decoded JSON payload; Prober narrows that to the single
// number the audio pool and the pairer need.
package ffprobe
