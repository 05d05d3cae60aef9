package models

import (
	"errors"
	"testing"
)

func TestParseImportMode(t *testing.T) {
	tc := []struct {
		in      string
		want    ImportMode
		wantErr bool
	}{
		{in: "", want: CreateNew},
		{in: "create_new", want: CreateNew},
		{in: " UPDATE_EXISTING ", want: UpdateExisting},
		{in: "merge", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseImportMode(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseImportMode(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestSongRefString(t *testing.T) {
	if got := (SongRef{Title: "Yesterday", Artist: "The Beatles"}).String(); got != "The Beatles - Yesterday" {
		t.Errorf("unexpected %q", got)
	}
	if got := (SongRef{Title: "Untitled"}).String(); got != "Untitled" {
		t.Errorf("unexpected %q", got)
	}
}

func TestLibraryTrack(t *testing.T) {
	track := LibraryTrack{Title: "Under Pressure", Artists: []string{"Queen", "David Bowie"}}
	if track.PrimaryArtist() != "Queen" || track.ArtistLine() != "Queen, David Bowie" {
		t.Errorf("unexpected artists %q / %q", track.PrimaryArtist(), track.ArtistLine())
	}
	if (LibraryTrack{}).PrimaryArtist() != "" {
		t.Error("expected empty primary artist")
	}
}

func TestImportJob(t *testing.T) {
	newJob := func() *ImportJob {
		job := NewImportJob(1, "QQ Music", "Favourites", ImportTarget{Mode: UpdateExisting, RequestedName: "Mix"}, 3)
		job.SetID("job-1")
		return job
	}

	t.Run("starts pending without a result", func(t *testing.T) {
		job := newJob()
		if job.Status() != JobPending || job.Result() != nil {
			t.Errorf("unexpected initial state %s %+v", job.Status(), job.Result())
		}
		if err := job.Validate(); err != nil {
			t.Errorf("unexpected validation error: %v", err)
		}
	})

	t.Run("finishes completed", func(t *testing.T) {
		job := newJob()
		job.Start()
		if job.Status() != JobProcessing || job.StartedAt() == nil {
			t.Fatal("expected processing job with a start time")
		}

		job.Finish(&ImportResult{
			Success:           true,
			FinalPlaylistName: "Mix",
			MatchedCount:      2,
			UnmatchedSongs:    []SongRef{{Title: "Lost"}},
			Message:           CompletionMessage("Mix", 2, 1),
		}, nil)

		if job.Status() != JobCompleted || job.CompletedAt() == nil {
			t.Fatalf("expected completed job, got %s", job.Status())
		}
		res := job.Result()
		if !res.Success || res.MatchedCount != 2 || len(res.UnmatchedSongs) != 1 || res.FinalPlaylistName != "Mix" {
			t.Errorf("unexpected result %+v", res)
		}
		if res.Message != "Import to 'Mix' complete. Matched and added: 2. Not found: 1." {
			t.Errorf("unexpected message %q", res.Message)
		}
	})

	t.Run("finishes failed on error", func(t *testing.T) {
		job := newJob()
		job.Finish(FailedResult("Could not connect", nil), errors.New("refused"))

		if job.Status() != JobFailed || job.ErrorMessage() != "refused" {
			t.Errorf("unexpected state %s %q", job.Status(), job.ErrorMessage())
		}
		res := job.Result()
		if res.Success || res.UnmatchedSongs == nil || res.Message != "Could not connect" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("unsuccessful result without error still fails", func(t *testing.T) {
		job := newJob()
		job.Finish(&ImportResult{Success: false, Message: "nothing"}, nil)
		if job.Status() != JobFailed {
			t.Errorf("expected failed, got %s", job.Status())
		}
	})

	t.Run("clone does not share unmatched songs", func(t *testing.T) {
		job := newJob()
		job.SetUnmatched([]SongRef{{Title: "A"}})

		c := job.Clone()
		c.Unmatched()[0].Title = "B"
		if job.Unmatched()[0].Title != "A" {
			t.Error("clone shares the unmatched slice")
		}
	})

	t.Run("validation", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*ImportJob)
		}{
			{"missing id", func(j *ImportJob) { j.SetID("") }},
			{"bad mode", func(j *ImportJob) { j.mode = "merge" }},
			{"bad status", func(j *ImportJob) { j.SetStatus("lost") }},
			{"negative count", func(j *ImportJob) { j.SetSongsMatched(-1) }},
		}
		for _, tt := range tc {
			job := newJob()
			tt.mutate(job)
			if err := job.Validate(); err == nil {
				t.Errorf("%s: expected validation error", tt.name)
			}
		}
	})
}
