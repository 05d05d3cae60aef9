// Package tasks imports source playlists into a media library with real-time progress reporting.
//
// # Core Operations
//
// [ImportEngine.Run] performs one import:
//
//  1. Checks connectivity and credentials with [services.Library.Ping]
//  2. Establishes the destination playlist with the [Reconciler]
//     - create_new: a fresh, timestamped playlist seeded with a library track that is then removed
//     - update_existing: the named playlist, emptied; created when absent
//  3. Matches every song with the [matcher.Matcher], in order
//  4. Adds all matched tracks in one bulk operation
//  5. Returns an [models.ImportResult] listing the songs that were not found
//
// Every failure returns a non-nil failed result alongside a typed error from the shared package.
//
// # Progress Reporting
//
// All operations accept a progress channel. The [ProgressUpdate] struct contains phase, step counters,
// messages, and optional data for advanced UI rendering. Updates use select with default to prevent blocking.
//
// # Pool
//
// [Pool] runs imports in the background for the HTTP server. It bounds concurrent runs with a weighted
// semaphore, serialises runs that target the same named playlist, throttles run starts, and records each
// run in a [JobStore].
package tasks
