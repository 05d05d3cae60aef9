package models

import (
	"fmt"
	"slices"
	"time"
)

// JobStatus is the lifecycle state of an [ImportJob].
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ImportJob records a single import run.
type ImportJob struct {
	id                string
	sequence          int
	sourcePlatform    string
	sourceTitle       string
	mode              ImportMode
	requestedName     string
	finalPlaylistName string
	status            JobStatus
	songsTotal        int
	songsMatched      int
	progressMessage   string
	progressCurrent   int
	progressTotal     int
	message           string
	errorMessage      string
	unmatched         []SongRef
	startedAt         *time.Time
	completedAt       *time.Time
	createdAt         time.Time
	updatedAt         time.Time
	deletedAt         *time.Time
}

// NewImportJob creates a pending job for importing songsTotal songs into target.
func NewImportJob(sequence int, platform, title string, target ImportTarget, songsTotal int) *ImportJob {
	now := time.Now()
	return &ImportJob{
		sequence:       sequence,
		sourcePlatform: platform,
		sourceTitle:    title,
		mode:           target.Mode,
		requestedName:  target.RequestedName,
		status:         JobPending,
		songsTotal:     songsTotal,
		createdAt:      now,
		updatedAt:      now,
	}
}

func (j *ImportJob) ID() string                { return j.id }
func (j *ImportJob) Sequence() int             { return j.sequence }
func (j *ImportJob) SourcePlatform() string    { return j.sourcePlatform }
func (j *ImportJob) SourceTitle() string       { return j.sourceTitle }
func (j *ImportJob) Mode() ImportMode          { return j.mode }
func (j *ImportJob) RequestedName() string     { return j.requestedName }
func (j *ImportJob) FinalPlaylistName() string { return j.finalPlaylistName }
func (j *ImportJob) Status() JobStatus         { return j.status }
func (j *ImportJob) SongsTotal() int           { return j.songsTotal }
func (j *ImportJob) SongsMatched() int         { return j.songsMatched }
func (j *ImportJob) ProgressMessage() string   { return j.progressMessage }
func (j *ImportJob) ProgressCurrent() int      { return j.progressCurrent }
func (j *ImportJob) ProgressTotal() int        { return j.progressTotal }
func (j *ImportJob) Message() string           { return j.message }
func (j *ImportJob) ErrorMessage() string      { return j.errorMessage }
func (j *ImportJob) Unmatched() []SongRef      { return j.unmatched }
func (j *ImportJob) StartedAt() *time.Time     { return j.startedAt }
func (j *ImportJob) CompletedAt() *time.Time   { return j.completedAt }
func (j *ImportJob) CreatedAt() time.Time      { return j.createdAt }
func (j *ImportJob) UpdatedAt() time.Time      { return j.updatedAt }
func (j *ImportJob) DeletedAt() *time.Time     { return j.deletedAt }

func (j *ImportJob) SetID(id string)                  { j.id = id }
func (j *ImportJob) SetSequence(n int)                { j.sequence = n }
func (j *ImportJob) SetStatus(s JobStatus)            { j.status = s }
func (j *ImportJob) SetFinalPlaylistName(n string)    { j.finalPlaylistName = n }
func (j *ImportJob) SetSongsMatched(n int)            { j.songsMatched = n }
func (j *ImportJob) SetMessage(m string)              { j.message = m }
func (j *ImportJob) SetErrorMessage(m string)         { j.errorMessage = m }
func (j *ImportJob) SetUnmatched(songs []SongRef)     { j.unmatched = songs }
func (j *ImportJob) SetStartedAt(t *time.Time)        { j.startedAt = t }
func (j *ImportJob) SetCompletedAt(t *time.Time)      { j.completedAt = t }
func (j *ImportJob) SetCreatedAt(t time.Time)         { j.createdAt = t }
func (j *ImportJob) SetUpdatedAt(t time.Time)         { j.updatedAt = t }
func (j *ImportJob) SetDeletedAt(t *time.Time)        { j.deletedAt = t }
func (j *ImportJob) SetProgress(msg string, cur, tot int) {
	j.progressMessage, j.progressCurrent, j.progressTotal = msg, cur, tot
}

// Start marks the job as processing.
func (j *ImportJob) Start() {
	now := time.Now()
	j.status = JobProcessing
	j.startedAt = &now
}

// Finish records the terminal outcome of the run. A nil result marks the job failed with err.
func (j *ImportJob) Finish(result *ImportResult, err error) {
	now := time.Now()
	j.completedAt = &now

	if result != nil {
		j.finalPlaylistName = result.FinalPlaylistName
		j.songsMatched = result.MatchedCount
		j.message = result.Message
		j.unmatched = result.UnmatchedSongs
	}

	switch {
	case err != nil:
		j.status = JobFailed
		j.errorMessage = err.Error()
	case result == nil || !result.Success:
		j.status = JobFailed
	default:
		j.status = JobCompleted
	}
}

// Result rebuilds the [ImportResult] of a finished job, or nil while it is still running.
func (j *ImportJob) Result() *ImportResult {
	if !j.status.Terminal() {
		return nil
	}
	unmatched := j.unmatched
	if unmatched == nil {
		unmatched = []SongRef{}
	}
	return &ImportResult{
		Success:           j.status == JobCompleted,
		FinalPlaylistName: j.finalPlaylistName,
		MatchedCount:      j.songsMatched,
		UnmatchedSongs:    unmatched,
		Message:           j.message,
	}
}

// Validate checks the job's required fields.
func (j *ImportJob) Validate() error {
	if j.id == "" {
		return fmt.Errorf("import job id is required")
	}
	if !j.mode.Valid() {
		return fmt.Errorf("import job mode %q is invalid", j.mode)
	}
	switch j.status {
	case JobPending, JobProcessing, JobCompleted, JobFailed:
	default:
		return fmt.Errorf("import job status %q is invalid", j.status)
	}
	if j.songsTotal < 0 || j.songsMatched < 0 {
		return fmt.Errorf("import job counts must not be negative")
	}
	return nil
}

// Clone returns a copy that shares no mutable state with j.
func (j *ImportJob) Clone() *ImportJob {
	c := *j
	c.unmatched = slices.Clone(j.unmatched)
	return &c
}
