package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistFetched MsgKind = iota
	MsgProgressUpdate
	MsgImportComplete
)

type fetchedData struct {
	playlist *models.SourcePlaylist
	err      error
}

type completeData struct {
	result *models.ImportResult
	err    error
}

// playlistFetchedMsg is the constructor for [MsgPlaylistFetched]
func playlistFetchedMsg(playlist *models.SourcePlaylist, err error) Msg {
	return Msg{kind: MsgPlaylistFetched, data: fetchedData{playlist, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// importCompleteMsg is the constructor for [MsgImportComplete]
func importCompleteMsg(result *models.ImportResult, err error) Msg {
	return Msg{kind: MsgImportComplete, data: completeData{result, err}}
}
