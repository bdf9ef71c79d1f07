// Package history persists a record of finished recording sessions in a
// SQLite database, one row per session with its outcome and capture
// statistics.
package history
