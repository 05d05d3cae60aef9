package models

import "strings"

// UnknownPlaylistTitle is the title sources report when a playlist carries no name.
const UnknownPlaylistTitle = "unknown"

// MusicSectionKind is the section type a media library uses for music.
const MusicSectionKind = "artist"

// SongRef is a (title, artist) pair taken from a source playlist.
//
// Artist may be empty or hold several names joined with ", ".
type SongRef struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// String renders the song as "Artist - Title", or just the title when the artist is unknown.
func (s SongRef) String() string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Artist + " - " + s.Title
}

// SourcePlaylist is the result of fetching a playlist from a music platform.
type SourcePlaylist struct {
	ID       string    `json:"id"`
	Title    string    `json:"playlist_title"`
	Platform string    `json:"platform"`
	Songs    []SongRef `json:"songs"`
}

// LibraryTrack is a track item in the media library.
//
// ID is the library's stable identity for the item and is what playlist membership is keyed on.
type LibraryTrack struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album,omitempty"`
	Duration int      `json:"duration,omitempty"`
	// ItemID identifies the entry within a playlist; only set on tracks listed from one.
	ItemID string `json:"-"`
}

// PrimaryArtist returns the first credited artist, or "".
func (t LibraryTrack) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ArtistLine joins every credited artist.
func (t LibraryTrack) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Artist is an artist entry in the media library.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Section is a top-level library section; music sections have Kind [MusicSectionKind].
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

// IsMusic reports whether the section holds music.
func (s Section) IsMusic() bool {
	return s.Kind == MusicSectionKind
}

// Playlist is a playlist in the media library.
type Playlist struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	TrackCount int    `json:"track_count"`
}
