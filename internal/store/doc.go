// Package store provides persistent storage for taskbridge using SQLite.
//
// Dialog sessions are deliberately not stored here; they live in memory
// (see package session). The database only keeps data that must survive a
// restart:
//
//   - ChannelDefault: the project new tasks in a channel start from
//
// # SQLite Configuration
//
// The store uses the cgo-free modernc.org/sqlite driver with WAL mode:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// Schema creation runs on every NewSQLiteStore call and is idempotent.
//
// # Errors
//
//   - ErrNotFound: requested entity does not exist
//
// # Testing
//
// Use NewMockStore() for unit tests that do not need SQLite.
package store
