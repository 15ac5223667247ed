// Package logs reads back the run log file written by the logging package.
//
// Last returns the final lines of the file; Follow polls for appended lines
// until its context is cancelled. A missing file is treated as empty so
// callers can start following before the first run creates it.
package logs
