// Package main hosts the clipmatch CLI entrypoint and command graph.
//
// "run" executes one batch: search Pixabay for a query, download clips not yet
// in the ledger, and compose each with an unused track from the audio pool.
// The remaining commands inspect state without changing it (search, ledger,
// pool, doctor, logs), send a test notification, or scaffold configuration.
//
// Keep this package lean: behaviour lives in internal packages and is only
// surfaced here through flags and rendering.
package main
