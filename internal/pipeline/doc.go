// Package pipeline runs one clipmatch batch: clean stale partial downloads,
// search, download through the dedup ledger, then pair each new video with an
// unused audio track.
//
// Build wires the production collaborators from configuration; New accepts
// injected ones for tests.
package pipeline
