package services

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/plexlist/internal/metrics"
	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/shared"
)

const (
	plexTrackType  = "10"
	plexArtistType = "8"

	defaultPlexTimeout = 15 * time.Second
)

// mediaContainer is the envelope of every Plex XML response.
type mediaContainer struct {
	XMLName           xml.Name        `xml:"MediaContainer"`
	MachineIdentifier string          `xml:"machineIdentifier,attr"`
	FriendlyName      string          `xml:"friendlyName,attr"`
	Version           string          `xml:"version,attr"`
	Directories       []plexDirectory `xml:"Directory"`
	Tracks            []plexTrack     `xml:"Track"`
	Playlists         []plexPlaylist  `xml:"Playlist"`
}

type plexDirectory struct {
	Key       string `xml:"key,attr"`
	RatingKey string `xml:"ratingKey,attr"`
	Type      string `xml:"type,attr"`
	Title     string `xml:"title,attr"`
}

type plexTrack struct {
	RatingKey        string `xml:"ratingKey,attr"`
	Title            string `xml:"title,attr"`
	GrandparentTitle string `xml:"grandparentTitle,attr"`
	OriginalTitle    string `xml:"originalTitle,attr"`
	ParentTitle      string `xml:"parentTitle,attr"`
	Duration         int    `xml:"duration,attr"`
	PlaylistItemID   string `xml:"playlistItemID,attr"`
}

type plexPlaylist struct {
	RatingKey    string `xml:"ratingKey,attr"`
	Title        string `xml:"title,attr"`
	PlaylistType string `xml:"playlistType,attr"`
	LeafCount    int    `xml:"leafCount,attr"`
}

func (t plexTrack) toModel() models.LibraryTrack {
	track := models.LibraryTrack{
		ID:       t.RatingKey,
		Title:    t.Title,
		Album:    t.ParentTitle,
		Duration: t.Duration / 1000,
		ItemID:   t.PlaylistItemID,
	}
	if t.GrandparentTitle != "" {
		track.Artists = append(track.Artists, t.GrandparentTitle)
	}
	if t.OriginalTitle != "" && t.OriginalTitle != t.GrandparentTitle {
		track.Artists = append(track.Artists, t.OriginalTitle)
	}
	return track
}

func (p plexPlaylist) toModel() models.Playlist {
	return models.Playlist{ID: p.RatingKey, Title: p.Title, TrackCount: p.LeafCount}
}

func tracksOf(mc *mediaContainer) []models.LibraryTrack {
	out := make([]models.LibraryTrack, 0, len(mc.Tracks))
	for _, t := range mc.Tracks {
		out = append(out, t.toModel())
	}
	return out
}

// PlexOptions tunes a [PlexLibrary].
type PlexOptions struct {
	Timeout           time.Duration // per-request deadline; defaults to 15s
	RequestsPerSecond float64       // 0 disables throttling
	Client            *http.Client
	Logger            *log.Logger
}

// PlexLibrary implements [Library] for Plex Media Server.
type PlexLibrary struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	mu        sync.Mutex
	machineID string
	sections  []models.Section
}

// NewPlexLibrary creates a client for the server at baseURL.
func NewPlexLibrary(baseURL, token string, opts PlexOptions) *PlexLibrary {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultPlexTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	p := &PlexLibrary{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		timeout:    opts.Timeout,
		httpClient: opts.Client,
		logger:     shared.WithLogger(opts.Logger, "library", "plex"),
	}
	if opts.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return p
}

// NewPlexLibraryFromConfig creates a client from the [plex] config section.
func NewPlexLibraryFromConfig(cfg shared.PlexConfig, logger *log.Logger) (*PlexLibrary, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: plex url and token are required", shared.ErrMissingCredentials)
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("%w: plex url %q: %v", shared.ErrInvalidConfig, cfg.URL, err)
	}
	return NewPlexLibrary(cfg.URL, cfg.Token, PlexOptions{
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	}), nil
}

// do sends one request and decodes the MediaContainer response.
func (p *PlexLibrary) do(ctx context.Context, op, method, path string, params url.Values) (*mediaContainer, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, classifyError(op, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if params == nil {
		params = url.Values{}
	}
	params.Set("X-Plex-Token", p.token)

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create %s request: %v", shared.ErrAPIRequest, op, err)
	}
	req.Header.Set("Accept", "application/xml")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	metrics.LibraryRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LibraryRequestsTotal.WithLabelValues(op, "error").Inc()
		return nil, classifyError(op, err)
	}
	defer resp.Body.Close()
	metrics.LibraryRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: plex rejected the token (%d)", shared.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s returned status %d: %s", shared.ErrAPIRequest, op, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyError(op, err)
	}

	var mc mediaContainer
	if len(strings.TrimSpace(string(body))) == 0 {
		return &mc, nil
	}
	if err := xml.Unmarshal(body, &mc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrAPIRequest, op, err)
	}
	return &mc, nil
}

// classifyError maps transport failures onto the shared sentinels.
func classifyError(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %s: %v", shared.ErrTimeout, op, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%w: %s: %v", shared.ErrConnection, op, err)
	}
}

// Ping fetches the server identity, which also validates the token.
func (p *PlexLibrary) Ping(ctx context.Context) error {
	mc, err := p.do(ctx, "ping", http.MethodGet, "/", nil)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.machineID = mc.MachineIdentifier
	p.mu.Unlock()

	p.logger.Debug("connected", "server", mc.FriendlyName, "version", mc.Version)
	return nil
}

func (p *PlexLibrary) machineIdentifier(ctx context.Context) (string, error) {
	p.mu.Lock()
	id := p.machineID
	p.mu.Unlock()
	if id != "" {
		return id, nil
	}

	if err := p.Ping(ctx); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.machineID == "" {
		return "", fmt.Errorf("%w: server did not report a machine identifier", shared.ErrAPIRequest)
	}
	return p.machineID, nil
}

func (p *PlexLibrary) metadataURI(ctx context.Context, ids []string) (string, error) {
	machineID, err := p.machineIdentifier(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s", machineID, strings.Join(ids, ",")), nil
}

// Sections lists library sections. The result is cached for the client's lifetime.
func (p *PlexLibrary) Sections(ctx context.Context) ([]models.Section, error) {
	p.mu.Lock()
	cached := p.sections
	p.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	mc, err := p.do(ctx, "sections", http.MethodGet, "/library/sections", nil)
	if err != nil {
		return nil, err
	}

	sections := make([]models.Section, 0, len(mc.Directories))
	for _, d := range mc.Directories {
		sections = append(sections, models.Section{ID: d.Key, Title: d.Title, Kind: d.Type})
	}

	p.mu.Lock()
	p.sections = sections
	p.mu.Unlock()
	return sections, nil
}

// musicSections returns the sections searches run against.
func (p *PlexLibrary) musicSections(ctx context.Context) ([]models.Section, error) {
	sections, err := p.Sections(ctx)
	if err != nil {
		return nil, err
	}
	var music []models.Section
	for _, s := range sections {
		if s.IsMusic() {
			music = append(music, s)
		}
	}
	return music, nil
}

func (p *PlexLibrary) searchSections(ctx context.Context, op, endpoint string, params url.Values) (*mediaContainer, error) {
	sections, err := p.musicSections(ctx)
	if err != nil {
		return nil, err
	}

	merged := &mediaContainer{}
	for _, s := range sections {
		mc, err := p.do(ctx, op, http.MethodGet, fmt.Sprintf("/library/sections/%s/%s", s.ID, endpoint), params)
		if err != nil {
			return nil, err
		}
		merged.Tracks = append(merged.Tracks, mc.Tracks...)
		merged.Directories = append(merged.Directories, mc.Directories...)
	}
	return merged, nil
}

// SearchExact filters tracks by title and artist name.
func (p *PlexLibrary) SearchExact(ctx context.Context, title, artist string) ([]models.LibraryTrack, error) {
	params := url.Values{}
	params.Set("type", plexTrackType)
	params.Set("title", title)
	params.Set("artist.title", artist)

	mc, err := p.searchSections(ctx, "search_exact", "all", params)
	if err != nil {
		return nil, err
	}
	return tracksOf(mc), nil
}

// SearchArtists runs the section search restricted to artists.
func (p *PlexLibrary) SearchArtists(ctx context.Context, name string) ([]models.Artist, error) {
	params := url.Values{}
	params.Set("type", plexArtistType)
	params.Set("query", name)

	mc, err := p.searchSections(ctx, "search_artists", "search", params)
	if err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(mc.Directories))
	for _, d := range mc.Directories {
		if d.Type != "" && d.Type != "artist" {
			continue
		}
		artists = append(artists, models.Artist{ID: d.RatingKey, Name: d.Title})
	}
	return artists, nil
}

// TracksOf lists all tracks under the artist.
func (p *PlexLibrary) TracksOf(ctx context.Context, artist models.Artist) ([]models.LibraryTrack, error) {
	mc, err := p.do(ctx, "artist_tracks", http.MethodGet, "/library/metadata/"+url.PathEscape(artist.ID)+"/allLeaves", nil)
	if err != nil {
		return nil, err
	}
	return tracksOf(mc), nil
}

// SearchByTitle runs the section search restricted to tracks.
func (p *PlexLibrary) SearchByTitle(ctx context.Context, title string) ([]models.LibraryTrack, error) {
	params := url.Values{}
	params.Set("type", plexTrackType)
	params.Set("query", title)

	mc, err := p.searchSections(ctx, "search_title", "search", params)
	if err != nil {
		return nil, err
	}
	return tracksOf(mc), nil
}

// SeedTrack requests a single-item page of the section's tracks.
func (p *PlexLibrary) SeedTrack(ctx context.Context, section models.Section) (*models.LibraryTrack, error) {
	params := url.Values{}
	params.Set("type", plexTrackType)
	params.Set("X-Plex-Container-Start", "0")
	params.Set("X-Plex-Container-Size", "1")

	mc, err := p.do(ctx, "seed_track", http.MethodGet, "/library/sections/"+url.PathEscape(section.ID)+"/all", params)
	if err != nil {
		return nil, err
	}
	if len(mc.Tracks) == 0 {
		return nil, nil
	}
	seed := mc.Tracks[0].toModel()
	return &seed, nil
}

// Playlists lists audio playlists.
func (p *PlexLibrary) Playlists(ctx context.Context) ([]models.Playlist, error) {
	params := url.Values{}
	params.Set("playlistType", "audio")

	mc, err := p.do(ctx, "playlists", http.MethodGet, "/playlists", params)
	if err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(mc.Playlists))
	for _, pl := range mc.Playlists {
		if pl.PlaylistType != "" && pl.PlaylistType != "audio" {
			continue
		}
		playlists = append(playlists, pl.toModel())
	}
	return playlists, nil
}

// FindPlaylist returns the first audio playlist titled name.
func (p *PlexLibrary) FindPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	playlists, err := p.Playlists(ctx)
	if err != nil {
		return nil, err
	}
	for i := range playlists {
		if playlists[i].Title == name {
			return &playlists[i], nil
		}
	}
	return nil, nil
}

// CreatePlaylist creates a static audio playlist containing seed.
func (p *PlexLibrary) CreatePlaylist(ctx context.Context, name string, seed models.LibraryTrack) (*models.Playlist, error) {
	uri, err := p.metadataURI(ctx, []string{seed.ID})
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("type", "audio")
	params.Set("title", name)
	params.Set("smart", "0")
	params.Set("uri", uri)

	mc, err := p.do(ctx, "create_playlist", http.MethodPost, "/playlists", params)
	if err != nil {
		return nil, err
	}
	if len(mc.Playlists) == 0 {
		return nil, fmt.Errorf("%w: no playlist returned from creation request", shared.ErrAPIRequest)
	}

	created := mc.Playlists[0].toModel()
	p.logger.Info("created playlist", "title", created.Title, "id", created.ID)
	return &created, nil
}

// DeletePlaylist deletes the playlist.
func (p *PlexLibrary) DeletePlaylist(ctx context.Context, playlist models.Playlist) error {
	_, err := p.do(ctx, "delete_playlist", http.MethodDelete, "/playlists/"+url.PathEscape(playlist.ID), nil)
	return err
}

// PlaylistItems lists the playlist's entries.
func (p *PlexLibrary) PlaylistItems(ctx context.Context, playlist models.Playlist) ([]models.LibraryTrack, error) {
	mc, err := p.do(ctx, "playlist_items", http.MethodGet, "/playlists/"+url.PathEscape(playlist.ID)+"/items", nil)
	if err != nil {
		return nil, err
	}
	return tracksOf(mc), nil
}

// RemoveItems deletes each entry by its playlist item id.
func (p *PlexLibrary) RemoveItems(ctx context.Context, playlist models.Playlist, items []models.LibraryTrack) error {
	for _, item := range items {
		if item.ItemID == "" {
			return fmt.Errorf("%w: track %s has no playlist item id", shared.ErrInvalidInput, item.ID)
		}
		path := fmt.Sprintf("/playlists/%s/items/%s", url.PathEscape(playlist.ID), url.PathEscape(item.ItemID))
		if _, err := p.do(ctx, "remove_item", http.MethodDelete, path, nil); err != nil {
			return err
		}
	}
	return nil
}

// AddItems appends all tracks with one request.
func (p *PlexLibrary) AddItems(ctx context.Context, playlist models.Playlist, tracks []models.LibraryTrack) error {
	if len(tracks) == 0 {
		return nil
	}

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	uri, err := p.metadataURI(ctx, ids)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("uri", uri)
	_, err = p.do(ctx, "add_items", http.MethodPut, "/playlists/"+url.PathEscape(playlist.ID)+"/items", params)
	return err
}
