// Package store provides the SQLite-backed build ledger.
//
// Every compile run that writes artifacts records one build:
//   - Builds: one row per run, numbered by a logical seq counter
//   - Artifacts: path, source unit and content hash of each file written
//
// The ledger answers one question for the CLI: did this artifact change
// since the last recorded build? Unchanged artifacts are reported and not
// rewritten.
//
// # Ordering
//
// All reads order by seq, then id COLLATE BINARY, so listings are stable
// regardless of wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Content hashes come from internal/ir/hash.go (domain-separated SHA-256
// over NFC text).
package store
