package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/shared"
	tu "github.com/desertthunder/plexlist/internal/testing"
)

func samplePlaylist() *models.SourcePlaylist {
	return &models.SourcePlaylist{
		ID:       "123",
		Title:    "Night Drive",
		Platform: "NetEase Cloud Music",
		Songs: []models.SongRef{
			{Title: "晴天", Artist: "周杰伦"},
			{Title: "Song, With Comma", Artist: ""},
		},
	}
}

func sampleResult() *models.ImportResult {
	return &models.ImportResult{
		Success:           true,
		FinalPlaylistName: "My Mix",
		MatchedCount:      3,
		UnmatchedSongs:    []models.SongRef{{Title: "Lost", Artist: "Nobody"}},
		Message:           models.CompletionMessage("My Mix", 3, 1),
	}
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in   string
		want Format
	}{
		{in: "", want: JSON},
		{in: "JSON", want: JSON},
		{in: "csv", want: CSV},
		{in: "md", want: Markdown},
		{in: "markdown", want: Markdown},
		{in: "text", want: Text},
		{in: "txt", want: Text},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestFilename(t *testing.T) {
	tc := []struct {
		base string
		f    Format
		want string
	}{
		{base: "Night Drive", f: CSV, want: "Night_Drive.csv"},
		{base: "a/b\\c", f: JSON, want: "a_b_c.json"},
		{base: "晴天", f: Markdown, want: "晴天.md"},
		{base: "  ", f: Text, want: "playlist.txt"},
	}

	for _, tt := range tc {
		if got := Filename(tt.base, tt.f); got != tt.want {
			t.Errorf("Filename(%q, %q) = %q, want %q", tt.base, tt.f, got, tt.want)
		}
	}
}

func TestExportPlaylist(t *testing.T) {
	pl := samplePlaylist()

	t.Run("JSON", func(t *testing.T) {
		data, err := ExportPlaylist(pl, JSON)
		if err != nil {
			t.Fatalf("ExportPlaylist failed: %v", err)
		}

		var decoded struct {
			Title string           `json:"playlist_title"`
			Songs []models.SongRef `json:"songs"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Title != "Night Drive" || len(decoded.Songs) != 2 {
			t.Errorf("unexpected payload %+v", decoded)
		}
	})

	t.Run("CSV", func(t *testing.T) {
		data, err := ExportPlaylist(pl, CSV)
		if err != nil {
			t.Fatalf("ExportPlaylist failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "#,Title,Artist\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,晴天,周杰伦") {
			t.Errorf("CSV missing first song, got: %s", output)
		}
		if !strings.Contains(output, `2,"Song, With Comma",`) {
			t.Errorf("CSV should quote commas, got: %s", output)
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		data, err := ExportPlaylist(pl, Markdown)
		if err != nil {
			t.Fatalf("ExportPlaylist failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"# Night Drive", "**Source**: NetEase Cloud Music", "**Songs**: 2", "1. 周杰伦 - 晴天", "2. Song, With Comma"} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("Text", func(t *testing.T) {
		data, err := ExportPlaylist(pl, Text)
		if err != nil {
			t.Fatalf("ExportPlaylist failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Playlist: Night Drive") || !strings.Contains(output, "Songs: 2") {
			t.Errorf("unexpected text output: %s", output)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := ExportPlaylist(pl, Format("xml")); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestExportReport(t *testing.T) {
	result := sampleResult()

	t.Run("JSON", func(t *testing.T) {
		data, err := ExportReport(result, JSON)
		if err != nil {
			t.Fatalf("ExportReport failed: %v", err)
		}

		var decoded models.ImportResult
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.MatchedCount != 3 || len(decoded.UnmatchedSongs) != 1 {
			t.Errorf("unexpected payload %+v", decoded)
		}
	})

	t.Run("CSV lists unmatched songs", func(t *testing.T) {
		data, err := ExportReport(result, CSV)
		if err != nil {
			t.Fatalf("ExportReport failed: %v", err)
		}
		if want := "#,Title,Artist\n1,Lost,Nobody\n"; string(data) != want {
			t.Errorf("CSV = %q, want %q", data, want)
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		data, err := ExportReport(result, Markdown)
		if err != nil {
			t.Fatalf("ExportReport failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"# My Mix", "**Status**: completed", "**Matched**: 3", "**Not found**: 1", "## Not found", "1. Nobody - Lost"} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("Text for a failed import", func(t *testing.T) {
		failed := models.FailedResult("Could not connect to the media server", nil)

		data, err := ExportReport(failed, Text)
		if err != nil {
			t.Fatalf("ExportReport failed: %v", err)
		}

		output := string(data)
		if strings.Contains(output, "Playlist:") {
			t.Errorf("failed import without playlist should omit it: %s", output)
		}
		if !strings.Contains(output, "Status: failed") || !strings.Contains(output, "Could not connect") {
			t.Errorf("unexpected text output: %s", output)
		}
	})
}

func TestWriteFile(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports", "mix.txt")

		if err := WriteFile(path, []byte("hello\n")); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if got := tu.MustReadFile(t, path); got != "hello\n" {
			t.Errorf("file content = %q", got)
		}
	})

	t.Run("fails on unwritable path", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		if err := WriteFile(blocker, []byte("x")); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		if err := WriteFile(filepath.Join(blocker, "child.txt"), []byte("x")); err == nil {
			t.Error("expected error when parent is a file")
		}
	})
}
