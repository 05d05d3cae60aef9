package tasks

import (
	"fmt"

	"github.com/desertthunder/plexlist/internal/matcher"
	"github.com/desertthunder/plexlist/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Connect Phase = iota
	CreatePlaylist
	ClearPlaylist
	MatchSongs
	AddTracks
	Complete
)

func (p Phase) String() string {
	switch p {
	case Connect:
		return "connect"
	case CreatePlaylist:
		return "create_playlist"
	case ClearPlaylist:
		return "clear_playlist"
	case MatchSongs:
		return "match_songs"
	case AddTracks:
		return "add_tracks"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func connectingUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Connect, Step: 0, Total: 1, Message: "Connecting to the media server..."}
}

func connectedUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Connect, Step: 1, Total: 1, Message: "Connected to the media server"}
}

func creatingPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist '%s'...", name),
	}
}

func playlistCreatedUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Title, pl.ID),
		Data:    pl,
	}
}

func clearingPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClearPlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Found playlist '%s', removing its tracks...", pl.Title),
	}
}

func playlistClearedUpdate(pl *models.Playlist, removed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClearPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Removed %d tracks from '%s'", removed, pl.Title),
		Data:    pl,
	}
}

func matchingUpdate(step, total int, res matcher.MatchResult) ProgressUpdate {
	status := "not found"
	if res.Found() {
		status = "→ " + res.Matched.Title
	}
	return ProgressUpdate{
		Phase:   MatchSongs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, res.Input, status),
		Data:    res,
	}
}

func addingTracksUpdate(n int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    0,
		Total:   n,
		Message: fmt.Sprintf("Adding %d tracks to '%s'...", n, name),
	}
}

func tracksAddedUpdate(n int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    n,
		Total:   n,
		Message: fmt.Sprintf("Added %d tracks to '%s'", n, name),
	}
}

func completeUpdate(result *models.ImportResult) ProgressUpdate {
	return ProgressUpdate{Phase: Complete, Step: 1, Total: 1, Message: result.Message, Data: result}
}
