// Package services implements the media library and playlist source clients.
//
// # Library
//
// [Library] is the capability set the importer needs from a media server: connectivity checks,
// three kinds of track search, section listing, and playlist create/list/clear/add operations.
// [PlexLibrary] implements it against the Plex Media Server HTTP API. Responses are XML
// MediaContainer documents; every request carries the X-Plex-Token parameter.
//
// # Sources
//
// [Source] fetches a playlist from a music platform. [NetEaseSource] reads the playlist's track ids and
// resolves them in batches through the song detail endpoint; [QQSource] reads the playlist in one request.
// [ResolveSource] picks a source from a URL or a source name and [ExtractPlaylistID] pulls the numeric id
// out of a share link.
//
// # Error Handling
//
// Clients use typed errors from the shared package:
//   - [shared.ErrAuthFailed] : the server rejected the token (401/403)
//   - [shared.ErrConnection] : the server could not be reached
//   - [shared.ErrTimeout] : a request exceeded its deadline
//   - [shared.ErrAPIRequest] : any other non-2xx response or unreadable body
//   - [shared.ErrFetch] : a source playlist could not be read or was empty
package services
