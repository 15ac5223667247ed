// Package ledger persists the set of remote asset identifiers already
// downloaded, so later runs never fetch them again.
//
// Two backends share one contract. The file backend appends one identifier
// per line and fsyncs each append; the SQLite backend keeps the same set in a
// single table. Both load the full set at open and reveal a new identifier
// through Contains only after it is durable. A ledger that cannot be read or
// parsed is a persistence error and must stop the run, because continuing
// would re-download everything.
package ledger
