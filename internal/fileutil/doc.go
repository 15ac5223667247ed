// Package fileutil holds the file moves shared by the download writer and the
// audio pool: verified copies, device-safe moves, and collision-free names.
package fileutil
