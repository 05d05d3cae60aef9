// package services defines the media library and playlist source interfaces and their HTTP implementations
//
// Plex (library), NetEase Cloud Music and QQ Music (sources)
package services

import (
	"context"

	"github.com/desertthunder/plexlist/internal/models"
)

// Library defines the operations the importer needs from a media server.
type Library interface {
	// Ping checks connectivity and credentials.
	// Returns [shared.ErrAuthFailed], [shared.ErrConnection] or [shared.ErrTimeout] on failure.
	Ping(ctx context.Context) error

	// SearchExact runs the server's track search filtered by title and artist.
	SearchExact(ctx context.Context, title, artist string) ([]models.LibraryTrack, error)

	// SearchArtists finds artists by name.
	SearchArtists(ctx context.Context, name string) ([]models.Artist, error)

	// TracksOf lists every track credited to artist.
	TracksOf(ctx context.Context, artist models.Artist) ([]models.LibraryTrack, error)

	// SearchByTitle runs the server's track search by title alone.
	SearchByTitle(ctx context.Context, title string) ([]models.LibraryTrack, error)

	// Sections lists the library sections.
	Sections(ctx context.Context) ([]models.Section, error)

	// SeedTrack returns the first track of section, or nil when it is empty.
	SeedTrack(ctx context.Context, section models.Section) (*models.LibraryTrack, error)

	// Playlists lists audio playlists.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// FindPlaylist looks up a playlist by exact title. Returns nil, nil when none exists.
	FindPlaylist(ctx context.Context, name string) (*models.Playlist, error)

	// CreatePlaylist creates a playlist holding only seed; servers cannot create empty playlists.
	CreatePlaylist(ctx context.Context, name string, seed models.LibraryTrack) (*models.Playlist, error)

	// DeletePlaylist removes the playlist from the server.
	DeletePlaylist(ctx context.Context, playlist models.Playlist) error

	// PlaylistItems lists the playlist's entries with [models.LibraryTrack.ItemID] set.
	PlaylistItems(ctx context.Context, playlist models.Playlist) ([]models.LibraryTrack, error)

	// RemoveItems removes entries previously returned by PlaylistItems.
	RemoveItems(ctx context.Context, playlist models.Playlist, items []models.LibraryTrack) error

	// AddItems appends tracks, in order, in a single request.
	AddItems(ctx context.Context, playlist models.Playlist, tracks []models.LibraryTrack) error
}

// Source fetches playlists from a music platform.
type Source interface {
	// Name is the short identifier used in URLs and request bodies ("netease", "qq").
	Name() string

	// Platform is the display name of the platform.
	Platform() string

	// FetchPlaylist retrieves the playlist's title and songs.
	// Fails with [shared.ErrFetch] when the playlist cannot be read or holds no songs.
	FetchPlaylist(ctx context.Context, id string) (*models.SourcePlaylist, error)
}
