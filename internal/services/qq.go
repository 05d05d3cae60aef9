package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plexlist/internal/metrics"
	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/shared"
)

const (
	QQName     = "qq"
	QQPlatform = "QQ Music"

	qqBaseURL = "https://c.y.qq.com"
)

type qqPlaylistResponse struct {
	CDList []struct {
		DissName string `json:"dissname"`
		SongList []struct {
			SongName string `json:"songname"`
			Singer   []struct {
				Name string `json:"name"`
			} `json:"singer"`
		} `json:"songlist"`
	} `json:"cdlist"`
}

// QQSource fetches playlists from QQ Music.
type QQSource struct {
	opts   SourceOptions
	logger *log.Logger
}

// NewQQSource creates a QQ Music client.
func NewQQSource(opts SourceOptions) *QQSource {
	opts = opts.withDefaults(qqBaseURL)
	return &QQSource{opts: opts, logger: shared.WithLogger(opts.Logger, "source", QQName)}
}

func (q *QQSource) Name() string     { return QQName }
func (q *QQSource) Platform() string { return QQPlatform }

// FetchPlaylist reads the playlist with a single request.
func (q *QQSource) FetchPlaylist(ctx context.Context, id string) (*models.SourcePlaylist, error) {
	ctx, cancel := context.WithTimeout(ctx, q.opts.Timeout)
	defer cancel()

	params := url.Values{
		"type":     {"1"},
		"json":     {"1"},
		"utf8":     {"1"},
		"onlysong": {"0"},
		"disstid":  {id},
		"format":   {"json"},
		"platform": {"yqq.json"},
	}
	endpoint := q.opts.BaseURL + "/qzone/fcg-bin/fcg_ucc_getcdinfo_byids_cp.fcg?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fetchFailed(QQName, err)
	}
	req.Header.Set("Referer", "https://y.qq.com/")
	req.Header.Set("User-Agent", browserUserAgent)

	var data qqPlaylistResponse
	if err := getJSON(q.opts.Client, req, &data); err != nil {
		return nil, fetchFailed(QQName, err)
	}
	if len(data.CDList) == 0 {
		return nil, fetchFailed(QQName, fmt.Errorf("playlist %s is missing or private", id))
	}

	cd := data.CDList[0]
	playlist := &models.SourcePlaylist{ID: id, Title: cd.DissName, Platform: QQPlatform}
	if playlist.Title == "" {
		playlist.Title = models.UnknownPlaylistTitle
	}

	for _, s := range cd.SongList {
		singers := make([]string, 0, len(s.Singer))
		for _, singer := range s.Singer {
			if singer.Name != "" {
				singers = append(singers, singer.Name)
			}
		}
		playlist.Songs = appendSong(playlist.Songs, models.SongRef{Title: s.SongName, Artist: strings.Join(singers, ", ")})
	}

	if len(playlist.Songs) == 0 {
		return nil, fetchFailed(QQName, fmt.Errorf("playlist %s has no readable songs", id))
	}

	metrics.SourceFetchesTotal.WithLabelValues(QQName, "ok").Inc()
	q.logger.Info("fetched playlist", "id", id, "title", playlist.Title, "songs", len(playlist.Songs))
	return playlist, nil
}
