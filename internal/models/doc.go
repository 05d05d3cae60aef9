// Package models defines domain entities and persistence interfaces for plexlist.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects: lightweight structs passed between sources, the matcher and the media library
//   - [SongRef] : a title/artist pair from a source playlist
//   - [SourcePlaylist] : a fetched playlist with its songs
//   - [LibraryTrack], [Artist], [Section], [Playlist] : media library items
//   - [ImportTarget], [ImportResult] : the destination and outcome of an import run
//
// 2. Persistent Entities: database-backed models with lifecycle management
//   - [ImportJob] : one import run, its progress and its unmatched songs
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
