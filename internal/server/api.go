package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/services"
	"github.com/desertthunder/plexlist/internal/shared"
	"github.com/desertthunder/plexlist/internal/tasks"
)

const maxBodyBytes = 10 << 20

// LibraryFactory connects to the media library described by cfg.
type LibraryFactory func(cfg shared.PlexConfig) (services.Library, error)

// SourceResolver picks the playlist source for a share link or source name.
type SourceResolver func(urlOrName string) (services.Source, error)

// Options configures an [API].
type Options struct {
	Config     *shared.Config
	ConfigPath string // where Plex settings are persisted; empty keeps updates in memory
	Pool       *tasks.Pool
	Library    LibraryFactory
	Sources    SourceResolver
	Logger     *log.Logger
}

// API serves the playlist import endpoints under /api/v1.
type API struct {
	mu         sync.RWMutex
	config     *shared.Config
	configPath string

	pool    *tasks.Pool
	library LibraryFactory
	sources SourceResolver
	logger  *log.Logger
}

// NewAPI creates an API from opts.
func NewAPI(opts Options) *API {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &API{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		pool:       opts.Pool,
		library:    opts.Library,
		sources:    opts.Sources,
		logger:     opts.Logger,
	}
}

// NewHandler builds the complete HTTP handler: health, metrics and the API, with logging and metrics middleware.
func NewHandler(api *API) http.Handler {
	r := NewBasicRouter()
	r.Use(Logging(api.logger), Metrics("/metrics", "/health"))

	r.Handler(healthHandler{})
	r.Handle(http.MethodGet, "/metrics", promhttp.Handler())
	api.Register(r)
	return r
}

// Register adds the API routes to r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/api/v1/config/plex", http.HandlerFunc(a.getPlexConfig))
	r.Handle(http.MethodPost, "/api/v1/config/plex", http.HandlerFunc(a.updatePlexConfig))
	r.Handle(http.MethodPost, "/api/v1/playlist/extract", http.HandlerFunc(a.extractPlaylist))
	r.Handle(http.MethodPost, "/api/v1/plex/import", http.HandlerFunc(a.startPlexImport))
	r.Handle(http.MethodPost, "/api/v1/import", http.HandlerFunc(a.startImport))
	r.Handle(http.MethodGet, "/api/v1/tasks/{id}", http.HandlerFunc(a.taskStatus))
	r.Handle(http.MethodGet, "/api/v1/import/status/{id}", http.HandlerFunc(a.importStatus))
}

// Config returns a copy of the current configuration.
func (a *API) Config() shared.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.config
}

type healthHandler struct{}

func (healthHandler) Routes() []string { return []string{"GET /health"} }

func (healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type plexConfigResponse struct {
	URL          string `json:"plex_url"`
	Token        string `json:"plex_token"`
	PlaylistName string `json:"plex_playlist_name"`
	ImportMode   string `json:"plex_import_mode"`
}

// plexConfigUpdate holds the fields a client wants to change; absent fields keep their value.
type plexConfigUpdate struct {
	URL          *string `json:"plex_url"`
	Token        *string `json:"plex_token"`
	PlaylistName *string `json:"plex_playlist_name"`
	ImportMode   *string `json:"plex_import_mode"`
}

func (a *API) getPlexConfig(w http.ResponseWriter, r *http.Request) {
	plex := a.Config().Plex
	mode := plex.ImportMode
	if mode == "" {
		mode = string(models.CreateNew)
	}
	writeJSON(w, http.StatusOK, plexConfigResponse{
		URL:          plex.URL,
		Token:        plex.Token,
		PlaylistName: plex.PlaylistName,
		ImportMode:   mode,
	})
}

func (a *API) updatePlexConfig(w http.ResponseWriter, r *http.Request) {
	var body plexConfigUpdate
	if !decodeBody(w, r, &body) {
		return
	}

	if body.ImportMode != nil {
		mode, err := models.ParseImportMode(*body.ImportMode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		normalized := mode.String()
		body.ImportMode = &normalized
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	updated := *a.config
	if body.URL != nil {
		updated.Plex.URL = strings.TrimSpace(*body.URL)
	}
	if body.Token != nil {
		updated.Plex.Token = strings.TrimSpace(*body.Token)
	}
	if body.PlaylistName != nil {
		updated.Plex.PlaylistName = *body.PlaylistName
	}
	if body.ImportMode != nil {
		updated.Plex.ImportMode = *body.ImportMode
	}

	if a.configPath != "" {
		if err := shared.SaveConfig(a.configPath, &updated); err != nil {
			a.logger.Error("failed to save config", "path", a.configPath, "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to write configuration: %v", err))
			return
		}
	}
	a.config = &updated

	writeJSON(w, http.StatusOK, map[string]string{"message": "Plex configuration saved."})
}

type extractRequest struct {
	Source  string `json:"source"`
	URLOrID string `json:"url_or_id"`
}

func (a *API) extractPlaylist(w http.ResponseWriter, r *http.Request) {
	var body extractRequest
	if !decodeBody(w, r, &body) {
		return
	}

	source := strings.ToLower(strings.TrimSpace(body.Source))
	if source != services.NetEaseName && source != services.QQName {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported playlist source %q.", body.Source))
		return
	}

	pl, err := a.fetch(r, source, body.URLOrID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

type songPayload struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

type plexImportRequest struct {
	ImportOptions struct {
		Mode         string `json:"mode"`
		PlaylistName string `json:"playlist_name"`
	} `json:"import_options"`
	SourceInfo struct {
		PlatformName          string `json:"platform_name"`
		OriginalPlaylistTitle string `json:"original_playlist_title"`
	} `json:"source_info"`
	Songs []songPayload `json:"songs"`
}

type taskCreatedResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

func (a *API) startPlexImport(w http.ResponseWriter, r *http.Request) {
	var body plexImportRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if len(body.Songs) == 0 {
		writeError(w, http.StatusBadRequest, "The song list is empty.")
		return
	}

	mode, err := models.ParseImportMode(body.ImportOptions.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := body.ImportOptions.PlaylistName
	if name == "" {
		name = body.SourceInfo.OriginalPlaylistTitle
	}

	songs := make([]models.SongRef, len(body.Songs))
	for i, s := range body.Songs {
		songs[i] = models.SongRef{Title: s.Title, Artist: s.Artist}
	}

	a.submit(w, tasks.ImportRequest{
		Songs:          songs,
		Target:         models.ImportTarget{Mode: mode, RequestedName: name},
		SourcePlatform: body.SourceInfo.PlatformName,
		OriginalTitle:  body.SourceInfo.OriginalPlaylistTitle,
	}, a.Config().Plex)
}

type importRequest struct {
	PlaylistURL      string `json:"playlist_url"`
	PlexURL          string `json:"plex_url"`
	PlexToken        string `json:"plex_token"`
	PlexPlaylistName string `json:"plex_playlist_name"`
	ImportMode       string `json:"import_mode"`
}

func (a *API) startImport(w http.ResponseWriter, r *http.Request) {
	var body importRequest
	if !decodeBody(w, r, &body) {
		return
	}

	mode, err := models.ParseImportMode(body.ImportMode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pl, err := a.fetch(r, body.PlaylistURL, body.PlaylistURL)
	if err != nil {
		writeFailure(w, err)
		return
	}

	name := body.PlexPlaylistName
	if name == "" {
		name = pl.Title
	}

	plex := a.Config().Plex
	if body.PlexURL != "" {
		plex.URL = body.PlexURL
	}
	if body.PlexToken != "" {
		plex.Token = body.PlexToken
	}

	a.submit(w, tasks.ImportRequest{
		Songs:          pl.Songs,
		Target:         models.ImportTarget{Mode: mode, RequestedName: name},
		SourcePlatform: pl.Platform,
		OriginalTitle:  pl.Title,
	}, plex)
}

// fetch resolves the source named by sourceHint and reads the playlist in urlOrID.
func (a *API) fetch(r *http.Request, sourceHint, urlOrID string) (*models.SourcePlaylist, error) {
	src, err := a.sources(sourceHint)
	if err != nil {
		return nil, err
	}
	id, err := services.ExtractPlaylistID(urlOrID)
	if err != nil {
		return nil, err
	}

	pl, err := src.FetchPlaylist(r.Context(), id)
	if err != nil {
		a.logger.Warn("playlist fetch failed", "source", src.Name(), "id", id, "error", err)
		return nil, err
	}
	return pl, nil
}

func (a *API) submit(w http.ResponseWriter, req tasks.ImportRequest, plex shared.PlexConfig) {
	library, err := a.library(plex)
	if err != nil {
		writeFailure(w, fmt.Errorf("media server is not configured: %w", err))
		return
	}

	job, err := a.pool.Submit(req, library)
	if err != nil {
		writeFailure(w, err)
		return
	}

	a.logger.Info("import queued", "task", job.ID(), "songs", len(req.Songs), "mode", req.Target.Mode)
	writeJSON(w, http.StatusAccepted, taskCreatedResponse{TaskID: job.ID(), Message: "Plex import task started."})
}

type taskStatusResponse struct {
	TaskID   string               `json:"task_id"`
	Status   models.JobStatus     `json:"status"`
	Progress string               `json:"progress,omitempty"`
	Result   *models.ImportResult `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func (a *API) taskStatus(w http.ResponseWriter, r *http.Request) {
	job, err := a.pool.Status(r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	resp := taskStatusResponse{
		TaskID:   job.ID(),
		Status:   job.Status(),
		Progress: job.ProgressMessage(),
		Result:   job.Result(),
	}
	if job.Status() == models.JobFailed {
		resp.Error = job.ErrorMessage()
		if resp.Error == "" {
			resp.Error = job.Message()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type importStatusResponse struct {
	Status         models.JobStatus `json:"status"`
	Message        string           `json:"message"`
	Progress       int              `json:"progress"`
	Total          int              `json:"total"`
	UnmatchedSongs []models.SongRef `json:"unmatched_songs"`
}

func (a *API) importStatus(w http.ResponseWriter, r *http.Request) {
	job, err := a.pool.Status(r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	message := job.ProgressMessage()
	if job.Status().Terminal() && job.Message() != "" {
		message = job.Message()
	}
	unmatched := job.Unmatched()
	if unmatched == nil {
		unmatched = []models.SongRef{}
	}

	writeJSON(w, http.StatusOK, importStatusResponse{
		Status:         job.Status(),
		Message:        message,
		Progress:       job.ProgressCurrent(),
		Total:          job.ProgressTotal(),
		UnmatchedSongs: unmatched,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

// statusFor maps an error to the HTTP status reported to clients.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidMode),
		errors.Is(err, shared.ErrUnknownSource),
		errors.Is(err, shared.ErrMissingCredentials),
		errors.Is(err, shared.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, shared.ErrConnection):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrFetch), errors.Is(err, shared.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
