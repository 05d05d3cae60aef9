package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plexlist/internal/formatter"
	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/shared"
	"github.com/desertthunder/plexlist/internal/tasks"
)

// importTarget combines the mode and name flags with the configured defaults.
func (r *Runner) importTarget(mode, name string) (models.ImportTarget, error) {
	if mode == "" {
		mode = r.config.Plex.ImportMode
	}
	parsed, err := models.ParseImportMode(mode)
	if err != nil {
		return models.ImportTarget{}, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	if name == "" {
		name = r.config.Plex.PlaylistName
	}
	return models.ImportTarget{Mode: parsed, RequestedName: name}, nil
}

// PlexImport fetches a source playlist and imports it into Plex, printing progress as it goes.
func (r *Runner) PlexImport(ctx context.Context, cmd *cli.Command) error {
	target, err := r.importTarget(cmd.String("mode"), cmd.String("name"))
	if err != nil {
		return err
	}

	reportPath := cmd.String("report")
	var reportFormat formatter.Format
	if reportPath != "" {
		if reportFormat, err = formatter.ParseFormat(cmd.String("format")); err != nil {
			return err
		}
	}

	lib, err := r.library(r.config.Plex)
	if err != nil {
		return err
	}

	pl, err := r.fetchPlaylist(ctx, sourceHint(cmd), cmd.String("url"))
	if err != nil {
		return err
	}
	if target.Mode == models.UpdateExisting && strings.TrimSpace(target.RequestedName) == "" {
		target.RequestedName = pl.Title
	}

	matchWorkers := r.config.Import.MatchWorkers
	if cmd.IsSet("match-workers") {
		matchWorkers = int(cmd.Int("match-workers"))
	}

	opts := tasks.PoolOptions{Workers: 1, Logger: r.logger}
	if !cmd.Bool("no-history") {
		repo, db, err := r.openHistory()
		if err != nil {
			r.logger.Warn("job history unavailable, run will not be recorded", "error", err)
		} else {
			defer db.Close()
			opts.Store = repo
		}
	}
	pool := tasks.NewPool(r.engine(matchWorkers), opts)
	defer pool.Shutdown(context.Background())

	useJSON := cmd.Bool("json")
	if !useJSON {
		r.writePlain("Importing '%s' from %s (%d songs)\n", pl.Title, pl.Platform, len(pl.Songs))
		r.writePlain("Mode: %s\n\n", target.Mode)
	}

	var progress chan tasks.ProgressUpdate
	done := make(chan struct{})
	if useJSON {
		close(done)
	} else {
		progress = make(chan tasks.ProgressUpdate, 50)
		go func() {
			defer close(done)
			for update := range progress {
				r.printProgress(update)
			}
		}()
	}

	job, result, runErr := pool.Execute(ctx, tasks.ImportRequest{
		Songs:          pl.Songs,
		Target:         target,
		SourcePlatform: pl.Platform,
		OriginalTitle:  pl.Title,
	}, lib, progress)
	if progress != nil {
		close(progress)
	}
	<-done

	if result == nil {
		return runErr
	}

	if useJSON {
		if err := r.writeJSON(struct {
			JobID string `json:"job_id"`
			*models.ImportResult
		}{job.ID(), result}, true); err != nil {
			return err
		}
	} else {
		r.printResult(result)
	}

	if reportPath != "" {
		data, err := formatter.ExportReport(result, reportFormat)
		if err != nil {
			return err
		}
		path := outputPath(reportPath, result.FinalPlaylistName, reportFormat)
		if err := formatter.WriteFile(path, data); err != nil {
			return err
		}
		r.logger.Info("report written", "path", path)
		if !useJSON {
			r.writePlain("\nReport saved to %s\n", path)
		}
	}

	return runErr
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.Connect:
		r.writePlain("🔌 %s\n", update.Message)
	case tasks.CreatePlaylist, tasks.ClearPlaylist:
		r.writePlain("📝 %s\n", update.Message)
	case tasks.MatchSongs:
		r.writePlain("   %s\n", update.Message)
	case tasks.AddTracks:
		r.writePlain("\n➕ %s\n", update.Message)
	}
}

func (r *Runner) printResult(result *models.ImportResult) {
	r.writePlain("\n")
	if result.Success {
		r.writePlainHeader("Import Complete!")
	} else {
		r.writePlainHeader("Import Failed")
	}
	if result.FinalPlaylistName != "" {
		r.writePlain("Playlist: %s\n", result.FinalPlaylistName)
	}
	r.writePlain("Matched: %d\n", result.MatchedCount)
	r.writePlain("Not found: %d\n", len(result.UnmatchedSongs))
	r.writePlain("%s\n", result.Message)

	if len(result.UnmatchedSongs) > 0 {
		r.writePlain("\nSongs not found in the library:\n")
		for i, song := range result.UnmatchedSongs {
			r.writePlain("  %d. %s\n", i+1, song)
		}
	}
}

// PlexPlaylists lists the audio playlists on the configured server.
func (r *Runner) PlexPlaylists(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.library(r.config.Plex)
	if err != nil {
		return err
	}

	playlists, err := lib.Playlists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Plex Playlists (%d)", len(playlists)))
	for _, pl := range playlists {
		r.writePlain("%-40s %5d tracks  (id %s)\n", pl.Title, pl.TrackCount, pl.ID)
	}
	return nil
}
