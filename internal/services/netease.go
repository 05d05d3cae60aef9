package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/plexlist/internal/metrics"
	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/shared"
)

const (
	NetEaseName     = "netease"
	NetEasePlatform = "NetEase Cloud Music"

	netEaseBaseURL = "https://music.163.com"
)

type netEaseArtist struct {
	Name string `json:"name"`
}

type netEaseSong struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Artists []netEaseArtist `json:"ar"`
}

func (s netEaseSong) toModel() models.SongRef {
	names := make([]string, 0, len(s.Artists))
	for _, a := range s.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return models.SongRef{Title: s.Name, Artist: strings.Join(names, ", ")}
}

type netEasePlaylistResponse struct {
	Code     int `json:"code"`
	Playlist *struct {
		Name     string        `json:"name"`
		TrackIDs []struct {
			ID int64 `json:"id"`
		} `json:"trackIds"`
		Tracks []netEaseSong `json:"tracks"`
	} `json:"playlist"`
}

type netEaseDetailResponse struct {
	Songs []netEaseSong `json:"songs"`
}

// NetEaseSource fetches playlists from NetEase Cloud Music.
//
// The playlist endpoint only returns complete track ids; song details are resolved
// in batches. A batch that fails is logged and skipped.
type NetEaseSource struct {
	opts    SourceOptions
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewNetEaseSource creates a NetEase client.
func NewNetEaseSource(opts SourceOptions) *NetEaseSource {
	opts = opts.withDefaults(netEaseBaseURL)
	return &NetEaseSource{
		opts:    opts,
		limiter: opts.limiter(),
		logger:  shared.WithLogger(opts.Logger, "source", NetEaseName),
	}
}

func (n *NetEaseSource) Name() string     { return NetEaseName }
func (n *NetEaseSource) Platform() string { return NetEasePlatform }

func (n *NetEaseSource) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Referer", "https://music.163.com/")
	req.Header.Set("Cookie", "appver=2.0.2; os=pc;")
}

// FetchPlaylist reads the playlist and resolves its songs.
func (n *NetEaseSource) FetchPlaylist(ctx context.Context, id string) (*models.SourcePlaylist, error) {
	reqCtx, cancel := context.WithTimeout(ctx, n.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, n.opts.BaseURL+"/api/v6/playlist/detail?id="+url.QueryEscape(id), nil)
	if err != nil {
		return nil, fetchFailed(NetEaseName, err)
	}
	n.setHeaders(req)

	var data netEasePlaylistResponse
	if err := getJSON(n.opts.Client, req, &data); err != nil {
		return nil, fetchFailed(NetEaseName, err)
	}
	if data.Playlist == nil {
		return nil, fetchFailed(NetEaseName, fmt.Errorf("playlist %s is missing or private", id))
	}

	playlist := &models.SourcePlaylist{
		ID:       id,
		Title:    data.Playlist.Name,
		Platform: NetEasePlatform,
	}
	if playlist.Title == "" {
		playlist.Title = models.UnknownPlaylistTitle
	}

	if len(data.Playlist.TrackIDs) == 0 {
		for _, s := range data.Playlist.Tracks {
			playlist.Songs = appendSong(playlist.Songs, s.toModel())
		}
	} else {
		ids := make([]int64, len(data.Playlist.TrackIDs))
		for i, t := range data.Playlist.TrackIDs {
			ids[i] = t.ID
		}
		songs, err := n.songDetails(ctx, ids)
		if err != nil {
			return nil, fetchFailed(NetEaseName, err)
		}
		playlist.Songs = songs
	}

	if len(playlist.Songs) == 0 {
		return nil, fetchFailed(NetEaseName, fmt.Errorf("playlist %s has no readable songs", id))
	}

	metrics.SourceFetchesTotal.WithLabelValues(NetEaseName, "ok").Inc()
	n.logger.Info("fetched playlist", "id", id, "title", playlist.Title, "songs", len(playlist.Songs))
	return playlist, nil
}

// songDetails resolves ids in batches, keeping input order.
func (n *NetEaseSource) songDetails(ctx context.Context, ids []int64) ([]models.SongRef, error) {
	var songs []models.SongRef
	for start := 0; start < len(ids); start += n.opts.BatchSize {
		end := min(start+n.opts.BatchSize, len(ids))

		if n.limiter != nil {
			if err := n.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		batch, err := n.detailBatch(ctx, ids[start:end])
		if err != nil {
			n.logger.Warn("song detail batch failed", "start", start, "size", end-start, "error", err)
			continue
		}
		for _, s := range batch {
			songs = appendSong(songs, s.toModel())
		}
	}
	return songs, nil
}

func (n *NetEaseSource) detailBatch(ctx context.Context, ids []int64) ([]netEaseSong, error) {
	refs := make([]map[string]string, len(ids))
	for i, id := range ids {
		refs[i] = map[string]string{"id": strconv.FormatInt(id, 10)}
	}
	c, err := json.Marshal(refs)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, n.opts.Timeout)
	defer cancel()

	form := url.Values{"c": {string(c)}}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, n.opts.BaseURL+"/api/v3/song/detail", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	n.setHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var data netEaseDetailResponse
	if err := getJSON(n.opts.Client, req, &data); err != nil {
		return nil, err
	}
	if data.Songs == nil {
		return nil, fmt.Errorf("%w: song detail response has no songs", shared.ErrAPIRequest)
	}
	return data.Songs, nil
}

// appendSong drops entries without a title.
func appendSong(songs []models.SongRef, s models.SongRef) []models.SongRef {
	s.Title = strings.TrimSpace(s.Title)
	if s.Title == "" {
		return songs
	}
	return append(songs, s)
}
