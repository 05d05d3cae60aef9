// package formatter renders source playlists and import reports as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/shared"
)

// Format is an export format name.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// ParseFormat accepts a format name or a common alias ("md", "text").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want json, csv, markdown or txt)", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case CSV:
		return ".csv"
	case Markdown:
		return ".md"
	case Text:
		return ".txt"
	default:
		return ".json"
	}
}

// Filename turns base into a safe file name with f's extension.
func Filename(base string, f Format) string {
	name := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(base), "_"), "_")
	if name == "" {
		name = "playlist"
	}
	return name + f.Extension()
}

// ExportPlaylist renders a fetched source playlist in the given format.
func ExportPlaylist(pl *models.SourcePlaylist, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(pl)
	case CSV:
		return songsToCSV(pl.Songs)
	case Markdown:
		return PlaylistToMarkdown(pl), nil
	case Text:
		return PlaylistToText(pl), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// ExportReport renders an import result in the given format.
//
// CSV holds only the unmatched songs, ready to be searched for by hand.
func ExportReport(result *models.ImportResult, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(result)
	case CSV:
		return songsToCSV(result.UnmatchedSongs)
	case Markdown:
		return ReportToMarkdown(result), nil
	case Text:
		return ReportToText(result), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// songsToCSV writes songs with columns: #, Title, Artist
func songsToCSV(songs []models.SongRef) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"#", "Title", "Artist"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, song := range songs {
		if err := writer.Write([]string{strconv.Itoa(i + 1), song.Title, song.Artist}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// PlaylistToMarkdown renders a source playlist as a numbered Markdown list
func PlaylistToMarkdown(pl *models.SourcePlaylist) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", pl.Title)
	if pl.Platform != "" {
		fmt.Fprintf(&buf, "**Source**: %s\n", pl.Platform)
	}
	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(pl.Songs))

	buf.WriteString("## Songs\n\n")
	for i, song := range pl.Songs {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, song)
	}
	return buf.Bytes()
}

// PlaylistToText renders a source playlist as plain text
func PlaylistToText(pl *models.SourcePlaylist) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", pl.Title)
	if pl.Platform != "" {
		fmt.Fprintf(&buf, "Source: %s\n", pl.Platform)
	}
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(pl.Songs))

	for i, song := range pl.Songs {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, song)
	}
	return buf.Bytes()
}

// ReportToMarkdown renders an import result with its unmatched songs
func ReportToMarkdown(result *models.ImportResult) []byte {
	var buf bytes.Buffer

	title := result.FinalPlaylistName
	if title == "" {
		title = "Import"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Status**: %s\n", statusString(result.Success))
	fmt.Fprintf(&buf, "**Matched**: %d\n", result.MatchedCount)
	fmt.Fprintf(&buf, "**Not found**: %d\n\n", len(result.UnmatchedSongs))
	fmt.Fprintf(&buf, "%s\n", result.Message)

	if len(result.UnmatchedSongs) > 0 {
		buf.WriteString("\n## Not found\n\n")
		for i, song := range result.UnmatchedSongs {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, song)
		}
	}
	return buf.Bytes()
}

// ReportToText renders an import result as plain text
func ReportToText(result *models.ImportResult) []byte {
	var buf bytes.Buffer

	if result.FinalPlaylistName != "" {
		fmt.Fprintf(&buf, "Playlist: %s\n", result.FinalPlaylistName)
	}
	fmt.Fprintf(&buf, "Status: %s\n", statusString(result.Success))
	fmt.Fprintf(&buf, "Matched: %d\n", result.MatchedCount)
	fmt.Fprintf(&buf, "Not found: %d\n", len(result.UnmatchedSongs))
	fmt.Fprintf(&buf, "%s\n", result.Message)

	if len(result.UnmatchedSongs) > 0 {
		buf.WriteString("\nNot found:\n")
		for i, song := range result.UnmatchedSongs {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, song)
		}
	}
	return buf.Bytes()
}

func statusString(success bool) string {
	if success {
		return "completed"
	}
	return "failed"
}

// WriteFile writes data to path, creating parent directories as needed
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
