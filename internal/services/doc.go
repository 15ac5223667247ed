// Package services defines shared utilities consumed by the pipeline
// components and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, remote asset IDs, and component
//     names for logging.
//   - Structured error markers plus the Wrap helper, so callers can tell a
//     per-item degradation from a failure that must abort the run.
//
// Use these helpers when wiring new pipeline logic so error classification and
// log correlation stay uniform across components.
package services
