package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/plexlist/internal/metrics"
	"github.com/desertthunder/plexlist/internal/shared"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	defaultSourceTimeout = 10 * time.Second
	defaultBatchSize     = 500
)

var (
	queryIDPattern = regexp.MustCompile(`id=(\d+)`)
	pathIDPattern  = regexp.MustCompile(`/playlist/(\d+)`)
	digitsPattern  = regexp.MustCompile(`^\d+$`)
)

// SourceOptions configures the playlist source clients.
type SourceOptions struct {
	Timeout           time.Duration
	BatchSize         int     // NetEase song detail batch size
	RequestsPerSecond float64 // NetEase song detail batches; 0 disables throttling
	Client            *http.Client
	Logger            *log.Logger
	BaseURL           string // overrides the platform API host
}

// SourceOptionsFromConfig maps the [sources] config section.
func SourceOptionsFromConfig(cfg shared.SourcesConfig, logger *log.Logger) SourceOptions {
	return SourceOptions{
		Timeout:           cfg.Timeout(),
		BatchSize:         cfg.BatchSize,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            logger,
	}
}

func (o SourceOptions) withDefaults(baseURL string) SourceOptions {
	if o.Timeout <= 0 {
		o.Timeout = defaultSourceTimeout
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	return o
}

func (o SourceOptions) limiter() *rate.Limiter {
	if o.RequestsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(o.RequestsPerSecond), 1)
}

// ExtractPlaylistID pulls the numeric playlist id out of a share link, or accepts a bare id.
func ExtractPlaylistID(urlOrID string) (string, error) {
	s := strings.TrimSpace(urlOrID)
	if m := queryIDPattern.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	if digitsPattern.MatchString(s) {
		return s, nil
	}
	if m := pathIDPattern.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: no playlist id in %q", shared.ErrInvalidArgument, urlOrID)
}

// ResolveSource picks the source for a share link or a source name ("netease", "qq").
func ResolveSource(urlOrName string, opts SourceOptions) (Source, error) {
	s := strings.ToLower(strings.TrimSpace(urlOrName))

	switch {
	case s == NetEaseName, strings.Contains(s, "music.163.com"), strings.Contains(s, "163cn.tv"):
		return NewNetEaseSource(opts), nil
	case s == QQName, strings.Contains(s, "y.qq.com"):
		return NewQQSource(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownSource, urlOrName)
	}
}

// getJSON performs req and decodes a JSON body into v.
func getJSON(client *http.Client, req *http.Request, v any) error {
	resp, err := client.Do(req)
	if err != nil {
		return classifyError(req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", shared.ErrAPIRequest, req.URL.Path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyError(req.URL.Path, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrAPIRequest, req.URL.Path, err)
	}
	return nil
}

func fetchFailed(source string, err error) error {
	metrics.SourceFetchesTotal.WithLabelValues(source, "error").Inc()
	return fmt.Errorf("%w: %s: %w", shared.ErrFetch, source, err)
}
