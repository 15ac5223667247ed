// Package acquire schedules candidate downloads against the dedup ledger.
//
// Candidates already in the ledger, or repeated within the batch, are skipped
// without occupying a worker. The rest are fed to a fixed pool of workers over
// one channel; every success is recorded in the ledger before it is reported.
package acquire
