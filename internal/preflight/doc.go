// Package preflight provides readiness checks for the filesystem paths,
// ledger and external API that clipmatch depends on.
//
// The "clipmatch doctor" command renders every check; "clipmatch run" calls
// RunAll before searching and refuses to start when a directory check fails.
package preflight
