package testing

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/desertthunder/plexlist/internal/models"
)

// FakeLibrary is an in-memory media library for tests.
//
// Search behaviour is deliberately simple: exact search compares title and artist case-insensitively,
// artist search is a case-insensitive substring match, and title search returns tracks whose title
// contains the query or is contained by it. TitleResults overrides title search per query.
type FakeLibrary struct {
	mu sync.Mutex

	Tracks       []models.LibraryTrack
	SectionList  []models.Section
	TitleResults map[string][]models.LibraryTrack

	PingErr      error
	SearchErr    error
	TracksOfErr  error
	SectionsErr  error
	CreateErr    error
	AddErr       error
	FindErr      error
	RemoveErr    error
	ItemsErr     error
	DeleteErr    error
	NoSeedTracks bool

	playlists []*fakePlaylist
	nextID    int
	calls     []string
}

type fakePlaylist struct {
	playlist models.Playlist
	items    []models.LibraryTrack
}

// NewFakeLibrary builds a library with one music section holding tracks.
func NewFakeLibrary(tracks ...models.LibraryTrack) *FakeLibrary {
	return &FakeLibrary{
		Tracks:      tracks,
		SectionList: []models.Section{{ID: "1", Title: "Music", Kind: models.MusicSectionKind}},
		nextID:      1000,
	}
}

// Track is a shorthand for building a [models.LibraryTrack].
func Track(id, title string, artists ...string) models.LibraryTrack {
	return models.LibraryTrack{ID: id, Title: title, Artists: artists}
}

func (f *FakeLibrary) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// Calls returns the recorded operations in order.
func (f *FakeLibrary) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallCount counts recorded operations starting with prefix.
func (f *FakeLibrary) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// AddPlaylist seeds an existing playlist with items and returns it.
func (f *FakeLibrary) AddPlaylist(title string, items ...models.LibraryTrack) models.Playlist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newPlaylist(title, items)
}

func (f *FakeLibrary) newPlaylist(title string, items []models.LibraryTrack) models.Playlist {
	f.nextID++
	pl := &fakePlaylist{
		playlist: models.Playlist{ID: fmt.Sprintf("%d", f.nextID), Title: title},
		items:    slices.Clone(items),
	}
	f.playlists = append(f.playlists, pl)
	return pl.playlist
}

// Playlist returns a copy of the playlist with the given id and its member ids.
func (f *FakeLibrary) Playlist(id string) (models.Playlist, []string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pl := range f.playlists {
		if pl.playlist.ID == id {
			ids := make([]string, len(pl.items))
			for i, it := range pl.items {
				ids[i] = it.ID
			}
			out := pl.playlist
			out.TrackCount = len(pl.items)
			return out, ids, true
		}
	}
	return models.Playlist{}, nil, false
}

// PlaylistCount returns how many playlists exist.
func (f *FakeLibrary) PlaylistCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.playlists)
}

func (f *FakeLibrary) find(id string) *fakePlaylist {
	for _, pl := range f.playlists {
		if pl.playlist.ID == id {
			return pl
		}
	}
	return nil
}

func (f *FakeLibrary) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Ping")
	return f.PingErr
}

func (f *FakeLibrary) SearchExact(ctx context.Context, title, artist string) ([]models.LibraryTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SearchExact %s|%s", title, artist)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}

	var out []models.LibraryTrack
	for _, t := range f.Tracks {
		if !strings.EqualFold(t.Title, title) {
			continue
		}
		if slices.ContainsFunc(t.Artists, func(a string) bool { return strings.EqualFold(a, artist) }) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *FakeLibrary) SearchArtists(ctx context.Context, name string) ([]models.Artist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SearchArtists %s", name)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}

	var out []models.Artist
	seen := map[string]bool{}
	for _, t := range f.Tracks {
		for _, a := range t.Artists {
			if seen[a] || !strings.Contains(strings.ToLower(a), strings.ToLower(name)) {
				continue
			}
			seen[a] = true
			out = append(out, models.Artist{ID: a, Name: a})
		}
	}
	return out, nil
}

func (f *FakeLibrary) TracksOf(ctx context.Context, artist models.Artist) ([]models.LibraryTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("TracksOf %s", artist.Name)
	if f.TracksOfErr != nil {
		return nil, f.TracksOfErr
	}

	var out []models.LibraryTrack
	for _, t := range f.Tracks {
		if slices.Contains(t.Artists, artist.Name) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *FakeLibrary) SearchByTitle(ctx context.Context, title string) ([]models.LibraryTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SearchByTitle %s", title)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	if res, ok := f.TitleResults[title]; ok {
		return res, nil
	}

	q := strings.ToLower(title)
	var out []models.LibraryTrack
	for _, t := range f.Tracks {
		lt := strings.ToLower(t.Title)
		if strings.Contains(lt, q) || strings.Contains(q, lt) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *FakeLibrary) Sections(ctx context.Context) ([]models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Sections")
	return slices.Clone(f.SectionList), f.SectionsErr
}

func (f *FakeLibrary) SeedTrack(ctx context.Context, section models.Section) (*models.LibraryTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SeedTrack %s", section.ID)
	if f.NoSeedTracks || len(f.Tracks) == 0 {
		return nil, nil
	}
	seed := f.Tracks[0]
	return &seed, nil
}

func (f *FakeLibrary) Playlists(ctx context.Context) ([]models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Playlists")
	out := make([]models.Playlist, 0, len(f.playlists))
	for _, pl := range f.playlists {
		p := pl.playlist
		p.TrackCount = len(pl.items)
		out = append(out, p)
	}
	return out, nil
}

func (f *FakeLibrary) FindPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FindPlaylist %s", name)
	if f.FindErr != nil {
		return nil, f.FindErr
	}
	for _, pl := range f.playlists {
		if pl.playlist.Title == name {
			p := pl.playlist
			p.TrackCount = len(pl.items)
			return &p, nil
		}
	}
	return nil, nil
}

func (f *FakeLibrary) CreatePlaylist(ctx context.Context, name string, seed models.LibraryTrack) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreatePlaylist %s", name)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	pl := f.newPlaylist(name, []models.LibraryTrack{seed})
	pl.TrackCount = 1
	return &pl, nil
}

func (f *FakeLibrary) DeletePlaylist(ctx context.Context, playlist models.Playlist) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeletePlaylist %s", playlist.ID)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	i := slices.IndexFunc(f.playlists, func(pl *fakePlaylist) bool { return pl.playlist.ID == playlist.ID })
	if i < 0 {
		return fmt.Errorf("playlist %s not found", playlist.ID)
	}
	f.playlists = slices.Delete(f.playlists, i, i+1)
	return nil
}

func (f *FakeLibrary) PlaylistItems(ctx context.Context, playlist models.Playlist) ([]models.LibraryTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PlaylistItems %s", playlist.ID)
	if f.ItemsErr != nil {
		return nil, f.ItemsErr
	}
	pl := f.find(playlist.ID)
	if pl == nil {
		return nil, fmt.Errorf("playlist %s not found", playlist.ID)
	}
	items := slices.Clone(pl.items)
	for i := range items {
		items[i].ItemID = fmt.Sprintf("%s:%d", playlist.ID, i)
	}
	return items, nil
}

func (f *FakeLibrary) RemoveItems(ctx context.Context, playlist models.Playlist, items []models.LibraryTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveItems %s %d", playlist.ID, len(items))
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	pl := f.find(playlist.ID)
	if pl == nil {
		return fmt.Errorf("playlist %s not found", playlist.ID)
	}
	for _, it := range items {
		if i := slices.IndexFunc(pl.items, func(t models.LibraryTrack) bool { return t.ID == it.ID }); i >= 0 {
			pl.items = slices.Delete(pl.items, i, i+1)
		}
	}
	return nil
}

func (f *FakeLibrary) AddItems(ctx context.Context, playlist models.Playlist, tracks []models.LibraryTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddItems %s %d", playlist.ID, len(tracks))
	if f.AddErr != nil {
		return f.AddErr
	}
	pl := f.find(playlist.ID)
	if pl == nil {
		return fmt.Errorf("playlist %s not found", playlist.ID)
	}
	pl.items = append(pl.items, tracks...)
	return nil
}
