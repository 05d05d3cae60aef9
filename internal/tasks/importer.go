package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/plexlist/internal/matcher"
	"github.com/desertthunder/plexlist/internal/metrics"
	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/services"
	"github.com/desertthunder/plexlist/internal/shared"
)

// ImportRequest is everything a single import run needs besides the library.
type ImportRequest struct {
	Songs          []models.SongRef
	Target         models.ImportTarget
	SourcePlatform string
	OriginalTitle  string
}

// EngineOptions tunes an [ImportEngine].
type EngineOptions struct {
	// MatchWorkers > 1 matches songs concurrently. Results keep input order either way.
	MatchWorkers int
	// Now is the clock used for generated playlist names.
	Now func() time.Time
}

// ImportEngine runs imports: connectivity check, target playlist, matching, bulk add.
type ImportEngine struct {
	matcher      *matcher.Matcher
	reconciler   *Reconciler
	logger       *log.Logger
	matchWorkers int
}

// NewImportEngine creates an engine around m.
func NewImportEngine(m *matcher.Matcher, logger *log.Logger, opts EngineOptions) *ImportEngine {
	if logger == nil {
		logger = log.Default()
	}
	if m == nil {
		m = matcher.New(matcher.FuzzScorer{}, logger)
	}
	workers := max(opts.MatchWorkers, 1)
	return &ImportEngine{
		matcher:      m,
		reconciler:   NewReconciler(logger, opts.Now),
		logger:       logger,
		matchWorkers: workers,
	}
}

// Run imports req.Songs into library.
//
// The returned result is never nil. When err is non-nil the result is unsuccessful and its
// message describes the failure. Once matching has run, MatchedCount + len(UnmatchedSongs)
// equals len(req.Songs), including when the bulk add fails.
func (e *ImportEngine) Run(ctx context.Context, req ImportRequest, library services.Library, progress chan<- ProgressUpdate) (*models.ImportResult, error) {
	start := time.Now()
	metrics.ImportsRunning.Inc()
	defer func() {
		metrics.ImportsRunning.Dec()
		metrics.ImportDuration.Observe(time.Since(start).Seconds())
	}()

	logger := shared.WithLogger(e.logger, "mode", req.Target.Mode.String(), "songs", len(req.Songs))
	logger.Info("starting import", "source", req.SourcePlatform, "title", req.OriginalTitle)

	sendProgress(progress, connectingUpdate())
	if err := library.Ping(ctx); err != nil {
		logger.Error("media server unreachable", "error", err)
		metrics.ImportsTotal.WithLabelValues(metrics.OutcomeConnection).Inc()
		return models.FailedResult(connectionMessage(err), nil), err
	}
	sendProgress(progress, connectedUpdate())

	hint := SourceHint{Platform: req.SourcePlatform, Title: req.OriginalTitle}
	pt, err := e.reconciler.Establish(ctx, req.Target, library, hint, progress)
	if err != nil {
		logger.Error("failed to prepare playlist", "error", err)
		metrics.ImportsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return models.FailedResult(fmt.Sprintf("Failed to prepare playlist: %v", err), nil), err
	}

	results, err := e.matchAll(ctx, req.Songs, library, progress)
	if err != nil {
		logger.Warn("import canceled", "error", err)
		metrics.ImportsTotal.WithLabelValues(metrics.OutcomeCanceled).Inc()
		result := models.FailedResult(fmt.Sprintf("Import to '%s' canceled", pt.Name()), nil)
		result.FinalPlaylistName = pt.Name()
		return result, fmt.Errorf("import to '%s' canceled: %w", pt.Name(), err)
	}

	tracks := make([]models.LibraryTrack, 0, len(results))
	unmatched := []models.SongRef{}
	for _, res := range results {
		metrics.MatchResultsTotal.WithLabelValues(res.Tier.String()).Inc()
		if res.Found() {
			tracks = append(tracks, *res.Matched)
			continue
		}
		unmatched = append(unmatched, res.Input)
		logger.Info("not found in library", "song", res.Input.String())
	}

	if err := e.reconciler.Apply(ctx, pt, library, tracks, unmatched, progress); err != nil {
		logger.Error("failed to add tracks", "playlist", pt.Name(), "error", err)
		metrics.ImportsTotal.WithLabelValues(metrics.OutcomeAddFailed).Inc()
		return &models.ImportResult{
			Success:           false,
			FinalPlaylistName: pt.Name(),
			MatchedCount:      len(tracks),
			UnmatchedSongs:    unmatched,
			Message:           fmt.Sprintf("Failed to add tracks to '%s': %v", pt.Name(), err),
		}, err
	}

	result := &models.ImportResult{
		Success:           true,
		FinalPlaylistName: pt.Name(),
		MatchedCount:      len(tracks),
		UnmatchedSongs:    unmatched,
		Message:           models.CompletionMessage(pt.Name(), len(tracks), len(unmatched)),
	}
	metrics.ImportsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	logger.Info("import complete", "playlist", pt.Name(), "matched", len(tracks), "unmatched", len(unmatched))
	sendProgress(progress, completeUpdate(result))
	return result, nil
}

// matchAll resolves every song, returning results in input order.
// It stops early only when ctx is done.
func (e *ImportEngine) matchAll(ctx context.Context, songs []models.SongRef, library services.Library, progress chan<- ProgressUpdate) ([]matcher.MatchResult, error) {
	results := make([]matcher.MatchResult, len(songs))
	total := len(songs)

	if e.matchWorkers <= 1 || total <= 1 {
		for i, song := range songs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = e.matcher.FindMatch(ctx, song, library)
			sendProgress(progress, matchingUpdate(i+1, total, results[i]))
		}
		return results, nil
	}

	var (
		mu   sync.Mutex
		done = make([]bool, total)
		next int
	)
	// report flushes finished results in input order so progress steps stay monotonic.
	report := func(i int) {
		mu.Lock()
		defer mu.Unlock()
		done[i] = true
		for next < total && done[next] {
			sendProgress(progress, matchingUpdate(next+1, total, results[next]))
			next++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.matchWorkers)
	for i, song := range songs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.matcher.FindMatch(gctx, song, library)
			report(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func connectionMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrAuthFailed):
		return "Media server authorization failed: the token is invalid or the server URL is wrong"
	case errors.Is(err, shared.ErrTimeout):
		return "Timed out connecting to the media server"
	case errors.Is(err, shared.ErrConnection):
		return "Could not connect to the media server"
	default:
		return fmt.Sprintf("Error while connecting to the media server: %v", err)
	}
}
