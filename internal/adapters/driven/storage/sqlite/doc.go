// Package sqlite provides SQLite-backed persistence for search records.
// The database lives under the scour data directory and is migrated on
// open from embedded SQL files.
package sqlite
