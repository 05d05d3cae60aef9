package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/plexlist/internal/models"
)

var (
	_ list.Item = songItem{}
)

// songItem wraps [models.SongRef] to implement [list.Item].
type songItem struct {
	pos  int
	song models.SongRef
}

func (i songItem) FilterValue() string { return i.song.Title + " " + i.song.Artist }
func (i songItem) Title() string       { return fmt.Sprintf("%d. %s", i.pos, i.song.Title) }
func (i songItem) Description() string {
	if i.song.Artist == "" {
		return "unknown artist"
	}
	return i.song.Artist
}

func songItems(songs []models.SongRef) []list.Item {
	items := make([]list.Item, len(songs))
	for i, s := range songs {
		items[i] = songItem{pos: i + 1, song: s}
	}
	return items
}
