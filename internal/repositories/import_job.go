package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/shared"
)

const importJobColumns = `
	id, sequence, source_platform, source_title, mode, requested_name, final_playlist_name,
	status, songs_total, songs_matched, progress_message, progress_current, progress_total,
	message, error_message, started_at, completed_at, created_at, updated_at, deleted_at
`

// ImportJobRepository implements models.Repository[*models.ImportJob] for import history.
//
// Unmatched songs are stored alongside each job and written whenever the job is.
type ImportJobRepository struct {
	db *sql.DB
}

// NewImportJobRepository creates a new ImportJobRepository with the given database connection
func NewImportJobRepository(db *sql.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

// Create inserts a new import job with generated ID and sequence
func (r *ImportJobRepository) Create(job *models.ImportJob) error {
	sequence, err := NextSequence(r.db, "import_jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	job.SetID(shared.GenerateID())
	job.SetSequence(sequence)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO import_jobs (` + importJobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = tx.Exec(query,
		job.ID(),
		job.Sequence(),
		job.SourcePlatform(),
		job.SourceTitle(),
		string(job.Mode()),
		job.RequestedName(),
		job.FinalPlaylistName(),
		string(job.Status()),
		job.SongsTotal(),
		job.SongsMatched(),
		job.ProgressMessage(),
		job.ProgressCurrent(),
		job.ProgressTotal(),
		job.Message(),
		job.ErrorMessage(),
		job.StartedAt(),
		job.CompletedAt(),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import job: %w", err)
	}

	if err := writeUnmatched(tx, job.ID(), job.Unmatched()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import job: %w", err)
	}
	return nil
}

// Get retrieves an import job and its unmatched songs by ID, excluding soft-deleted jobs
func (r *ImportJobRepository) Get(id string) (*models.ImportJob, error) {
	query := `SELECT ` + importJobColumns + ` FROM import_jobs WHERE id = ? AND deleted_at IS NULL`

	job, err := r.scanOne(r.db.QueryRow(query, id))
	if errors.Is(err, shared.ErrJobNotFound) {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	unmatched, err := r.Unmatched(id)
	if err != nil {
		return nil, err
	}
	job.SetUnmatched(unmatched)
	return job, nil
}

// Update writes the job's status, progress and outcome, replacing its unmatched songs
func (r *ImportJobRepository) Update(job *models.ImportJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	job.SetUpdatedAt(now)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE import_jobs
		SET final_playlist_name = ?, status = ?, songs_matched = ?, progress_message = ?,
			progress_current = ?, progress_total = ?, message = ?, error_message = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := tx.Exec(query,
		job.FinalPlaylistName(),
		string(job.Status()),
		job.SongsMatched(),
		job.ProgressMessage(),
		job.ProgressCurrent(),
		job.ProgressTotal(),
		job.Message(),
		job.ErrorMessage(),
		job.StartedAt(),
		job.CompletedAt(),
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update import job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, job.ID())
	}

	if _, err := tx.Exec(`DELETE FROM unmatched_songs WHERE job_id = ?`, job.ID()); err != nil {
		return fmt.Errorf("failed to clear unmatched songs: %w", err)
	}
	if err := writeUnmatched(tx, job.ID(), job.Unmatched()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import job: %w", err)
	}
	return nil
}

// Delete soft-deletes an import job by ID
func (r *ImportJobRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE import_jobs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete import job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return nil
}

// List retrieves import jobs, newest first, excluding soft-deleted jobs.
//
// Supported criteria: "status" (string), "mode" (string) and "limit" (int).
// Unmatched songs are not loaded; use [ImportJobRepository.Get] for a single job's details.
func (r *ImportJobRepository) List(criteria map[string]any) ([]*models.ImportJob, error) {
	query := `SELECT ` + importJobColumns + ` FROM import_jobs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if mode, ok := criteria["mode"].(string); ok && mode != "" {
		query += " AND mode = ?"
		args = append(args, mode)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query import jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ImportJob
	for rows.Next() {
		job, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return jobs, nil
}

// Unmatched returns the songs a job could not match, in input order
func (r *ImportJobRepository) Unmatched(jobID string) ([]models.SongRef, error) {
	rows, err := r.db.Query(`SELECT title, artist FROM unmatched_songs WHERE job_id = ? ORDER BY position ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched songs: %w", err)
	}
	defer rows.Close()

	songs := []models.SongRef{}
	for rows.Next() {
		var song models.SongRef
		if err := rows.Scan(&song.Title, &song.Artist); err != nil {
			return nil, fmt.Errorf("failed to scan unmatched song: %w", err)
		}
		songs = append(songs, song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return songs, nil
}

func writeUnmatched(tx *sql.Tx, jobID string, songs []models.SongRef) error {
	if len(songs) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`INSERT INTO unmatched_songs (job_id, position, title, artist) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare unmatched song insert: %w", err)
	}
	defer stmt.Close()

	for i, song := range songs {
		if _, err := stmt.Exec(jobID, i, song.Title, song.Artist); err != nil {
			return fmt.Errorf("failed to insert unmatched song: %w", err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanOne scans a single row into a [models.ImportJob]
func (r *ImportJobRepository) scanOne(row *sql.Row) (*models.ImportJob, error) {
	job, err := scanImportJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrJobNotFound
	}
	return job, err
}

// scanRow scans a row from [sql.Rows] into a [models.ImportJob]
func (r *ImportJobRepository) scanRow(rows *sql.Rows) (*models.ImportJob, error) {
	return scanImportJob(rows)
}

func scanImportJob(s scanner) (*models.ImportJob, error) {
	var (
		id                string
		sequence          int
		sourcePlatform    string
		sourceTitle       string
		mode              string
		requestedName     string
		finalPlaylistName string
		status            string
		songsTotal        int
		songsMatched      int
		progressMessage   string
		progressCurrent   int
		progressTotal     int
		message           string
		errorMessage      string
		startedAt         sql.NullTime
		completedAt       sql.NullTime
		createdAt         time.Time
		updatedAt         time.Time
		deletedAt         sql.NullTime
	)

	err := s.Scan(
		&id, &sequence, &sourcePlatform, &sourceTitle, &mode, &requestedName, &finalPlaylistName,
		&status, &songsTotal, &songsMatched, &progressMessage, &progressCurrent, &progressTotal,
		&message, &errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan import job: %w", err)
	}

	target := models.ImportTarget{Mode: models.ImportMode(mode), RequestedName: requestedName}
	job := models.NewImportJob(sequence, sourcePlatform, sourceTitle, target, songsTotal)
	job.SetID(id)
	job.SetStatus(models.JobStatus(status))
	job.SetFinalPlaylistName(finalPlaylistName)
	job.SetSongsMatched(songsMatched)
	job.SetProgress(progressMessage, progressCurrent, progressTotal)
	job.SetMessage(message)
	job.SetErrorMessage(errorMessage)
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)
	if startedAt.Valid {
		job.SetStartedAt(&startedAt.Time)
	}
	if completedAt.Valid {
		job.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		job.SetDeletedAt(&deletedAt.Time)
	}
	return job, nil
}
