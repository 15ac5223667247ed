// Package audiopool tracks the audio tracks available for pairing.
//
// A resource moves from available to claimed, then either back to available
// (Release) or to consumed (Retire). Retired files are moved into the
// consumed directory, which Scan never enters, so a track is used at most
// once across runs.
package audiopool
