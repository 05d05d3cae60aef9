package models

import (
	"fmt"
	"strings"
)

// ImportMode selects how the destination playlist is established.
type ImportMode string

const (
	// CreateNew always creates a new, uniquely named playlist.
	CreateNew ImportMode = "create_new"
	// UpdateExisting empties and reuses the named playlist, creating it if absent.
	UpdateExisting ImportMode = "update_existing"
)

// ParseImportMode accepts the mode names used in config files, flags and request bodies.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case CreateNew, "":
		return CreateNew, nil
	case UpdateExisting:
		return UpdateExisting, nil
	default:
		return "", fmt.Errorf("unknown import mode %q", s)
	}
}

// Valid reports whether m is a known mode.
func (m ImportMode) Valid() bool {
	return m == CreateNew || m == UpdateExisting
}

func (m ImportMode) String() string {
	return string(m)
}

// ImportTarget describes the destination playlist of an import.
//
// RequestedName is only meaningful for [UpdateExisting].
type ImportTarget struct {
	Mode          ImportMode `json:"mode"`
	RequestedName string     `json:"playlist_name,omitempty"`
}

// ImportResult is the terminal outcome of an import run.
//
// Unless the run failed before matching, MatchedCount + len(UnmatchedSongs) equals the number of input songs.
type ImportResult struct {
	Success           bool      `json:"success"`
	FinalPlaylistName string    `json:"final_playlist_name,omitempty"`
	MatchedCount      int       `json:"matched_count"`
	UnmatchedSongs    []SongRef `json:"unmatched_songs"`
	Message           string    `json:"message"`
}

// FailedResult builds an unsuccessful result with the given message.
func FailedResult(message string, unmatched []SongRef) *ImportResult {
	if unmatched == nil {
		unmatched = []SongRef{}
	}
	return &ImportResult{Success: false, UnmatchedSongs: unmatched, Message: message}
}

// CompletionMessage formats the summary line of a successful import.
func CompletionMessage(name string, matched, unmatched int) string {
	return fmt.Sprintf("Import to '%s' complete. Matched and added: %d. Not found: %d.", name, matched, unmatched)
}
