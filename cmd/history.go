package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plexlist/internal/models"
)

// jobView is the printable form of a recorded import run.
type jobView struct {
	ID                string            `json:"id"`
	Sequence          int               `json:"sequence"`
	Status            models.JobStatus  `json:"status"`
	Mode              models.ImportMode `json:"mode"`
	SourcePlatform    string            `json:"source_platform"`
	SourceTitle       string            `json:"source_title"`
	RequestedName     string            `json:"requested_name,omitempty"`
	FinalPlaylistName string            `json:"final_playlist_name,omitempty"`
	SongsTotal        int               `json:"songs_total"`
	SongsMatched      int               `json:"songs_matched"`
	Message           string            `json:"message,omitempty"`
	Error             string            `json:"error,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	Unmatched         []models.SongRef  `json:"unmatched_songs,omitempty"`
}

func newJobView(job *models.ImportJob) jobView {
	return jobView{
		ID:                job.ID(),
		Sequence:          job.Sequence(),
		Status:            job.Status(),
		Mode:              job.Mode(),
		SourcePlatform:    job.SourcePlatform(),
		SourceTitle:       job.SourceTitle(),
		RequestedName:     job.RequestedName(),
		FinalPlaylistName: job.FinalPlaylistName(),
		SongsTotal:        job.SongsTotal(),
		SongsMatched:      job.SongsMatched(),
		Message:           job.Message(),
		Error:             job.ErrorMessage(),
		CreatedAt:         job.CreatedAt(),
		CompletedAt:       job.CompletedAt(),
		Unmatched:         job.Unmatched(),
	}
}

// HistoryList prints recorded import runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	repo, db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := repo.List(map[string]any{
		"status": cmd.String("status"),
		"mode":   cmd.String("mode"),
		"limit":  int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]jobView, len(jobs))
		for i, job := range jobs {
			views[i] = newJobView(job)
		}
		return r.writeJSON(views, true)
	}

	if len(jobs) == 0 {
		r.writePlain("No import runs recorded.\n")
		return nil
	}

	r.writePlainHeader("Import History")
	for _, job := range jobs {
		name := job.FinalPlaylistName()
		if name == "" {
			name = job.SourceTitle()
		}
		r.writePlain("#%-4d %-10s %-16s %3d/%-3d %s\n",
			job.Sequence(), job.Status(), job.CreatedAt().Local().Format("2006-01-02 15:04"),
			job.SongsMatched(), job.SongsTotal(), name)
		r.writePlain("      id %s\n", job.ID())
	}
	return nil
}

// HistoryShow prints one run and its unmatched songs.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	repo, db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	job, err := repo.Get(cmd.String("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(newJobView(job), true)
	}

	r.writePlainHeader("Import #" + job.ID())
	r.writePlain("Status: %s\n", job.Status())
	r.writePlain("Source: %s - %s\n", job.SourcePlatform(), job.SourceTitle())
	r.writePlain("Mode: %s\n", job.Mode())
	if job.FinalPlaylistName() != "" {
		r.writePlain("Playlist: %s\n", job.FinalPlaylistName())
	}
	r.writePlain("Matched: %d/%d\n", job.SongsMatched(), job.SongsTotal())
	if job.Message() != "" {
		r.writePlain("Message: %s\n", job.Message())
	}
	if job.ErrorMessage() != "" {
		r.writePlain("Error: %s\n", job.ErrorMessage())
	}

	if unmatched := job.Unmatched(); len(unmatched) > 0 {
		r.writePlain("\nSongs not found (%d):\n", len(unmatched))
		for i, song := range unmatched {
			r.writePlain("  %d. %s\n", i+1, song)
		}
	}
	return nil
}

// HistoryDelete removes a run from the history.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	repo, db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	id := cmd.String("id")
	if err := repo.Delete(id); err != nil {
		return err
	}
	r.writePlain("✓ Deleted import %s\n", id)
	return nil
}
