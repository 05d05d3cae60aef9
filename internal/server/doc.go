// Package server exposes the import engine over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first).
// The [BasicRouter] implementation registers "METHOD /path" patterns on an [http.ServeMux],
// so wrong methods are answered with 405 and path values are available through [http.Request.PathValue].
//
// [Logging] writes one line per request; [Metrics] records Prometheus request counters and durations
// labelled by route pattern. /metrics serves the default Prometheus registry.
//
// # Endpoints
//
//	GET  /health
//	GET  /metrics
//	GET  /api/v1/config/plex          current Plex settings
//	POST /api/v1/config/plex          partial update, persisted to the config file
//	POST /api/v1/playlist/extract     {source, url_or_id} → {playlist_title, songs}
//	POST /api/v1/plex/import          {import_options, source_info, songs} → 202 {task_id, message}
//	POST /api/v1/import               {playlist_url, plex_playlist_name, import_mode} → 202 {task_id, message}
//	GET  /api/v1/tasks/{id}           {task_id, status, progress, result, error}
//	GET  /api/v1/import/status/{id}   {status, message, progress, total, unmatched_songs}
//
// Errors are reported as {"detail": "..."} with a status derived from the sentinel errors in package shared.
// Imports run on a [tasks.Pool]; handlers only queue work and read job state.
package server
