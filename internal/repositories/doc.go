// Package repositories implements SQLite persistence for import history.
//
// Repositories handle CRUD operations with atomic sequence generation for human-readable ordering.
// Records are soft deleted via deleted_at timestamps and deleted records are excluded from queries.
//
// Key Implementations:
//   - [ImportJobRepository] : import run history with status tracking and unmatched songs
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
