// Package ledger records run history and caches audio probe results in a
// SQLite database. The run table gives operators an audit trail of what each
// invocation did; the probe cache keeps repeated duration scans over large
// clip stores fast.
package ledger
