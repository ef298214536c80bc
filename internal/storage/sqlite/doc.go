// Package sqlite persists tracking runs, their reported rows and the
// tracks they lost, in a SQLite database migrated on open.
package sqlite
