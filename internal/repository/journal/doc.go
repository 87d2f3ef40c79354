// Package journal keeps an audit trail of scheduler events in SQLite.
//
// SQLiteRepository appends every event it receives as a row tagged with the
// identifier of the current process run. The journal is never replayed:
// pending alarms do not survive a restart.
package journal
