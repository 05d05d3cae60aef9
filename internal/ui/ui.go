package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/services"
	"github.com/desertthunder/plexlist/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SourceView ViewState = iota
	PreviewView
	ConfirmView
	ImportView
	ResultView
)

// Fetcher reads the playlist behind a share link or id.
type Fetcher func(ctx context.Context, urlOrID string) (*models.SourcePlaylist, error)

// Options wires the model to the source fetchers, the import engine and the media library.
type Options struct {
	Fetch   Fetcher
	Engine  *tasks.ImportEngine
	Library services.Library
	// Target holds the configured defaults; the mode can be toggled before confirming.
	Target models.ImportTarget
}

// importRun carries one engine run's progress stream and final outcome.
type importRun struct {
	updates chan tasks.ProgressUpdate
	done    chan completeData
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	opts     Options
	target   models.ImportTarget
	width    int
	height   int
	input    textinput.Model
	songList list.Model
	playlist *models.SourcePlaylist
	fetching bool
	spinner  spinner.Model
	bar      progress.Model
	progress tasks.ProgressUpdate
	run      *importRun
	result   *models.ImportResult
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "https://music.163.com/playlist?id=..."
	input.CharLimit = 512
	input.Width = 60
	input.Focus()

	return &Model{
		ctx:     ctx,
		view:    SourceView,
		opts:    opts,
		target:  opts.Target,
		input:   input,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.warn)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the cursor blink in the source input.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlist != nil {
			m.songList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.fetching && m.view != ImportView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case SourceView:
			return m.handleSourceKeys(msg)
		case PreviewView:
			return m.handlePreviewKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ImportView:
			if key.Matches(msg, m.keys.cancel) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistFetched:
		data := msg.data.(fetchedData)
		m.fetching = false
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.playlist = data.playlist
		m.songList = list.New(songItems(data.playlist.Songs), list.NewDefaultDelegate(), 0, 0)
		m.songList.Title = fmt.Sprintf("%s (%s, %d songs)", data.playlist.Title, data.playlist.Platform, len(data.playlist.Songs))
		m.songList.SetSize(m.width-4, m.height-8)
		m.view = PreviewView
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.run)

	case MsgImportComplete:
		data := msg.data.(completeData)
		m.result = data.result
		m.err = data.err
		m.run = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSourceKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.back):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		value := strings.TrimSpace(m.input.Value())
		if value == "" || m.fetching {
			return m, nil
		}
		m.fetching = true
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.fetchPlaylist(value))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handlePreviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.songList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.songList, cmd = m.songList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = SourceView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		return m, tea.Quit
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = PreviewView
		return m, nil
	case key.Matches(msg, m.keys.mode):
		if m.target.Mode == models.UpdateExisting {
			m.target.Mode = models.CreateNew
		} else {
			m.target.Mode = models.UpdateExisting
		}
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = ImportView
		m.progress = tasks.ProgressUpdate{}
		return m, tea.Batch(m.spinner.Tick, m.startImport())
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = SourceView
		m.playlist = nil
		m.result = nil
		m.err = nil
		m.target = m.opts.Target
		m.input.Reset()
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *Model) fetchPlaylist(urlOrID string) tea.Cmd {
	ctx, fetch := m.ctx, m.opts.Fetch
	return func() tea.Msg {
		pl, err := fetch(ctx, urlOrID)
		return playlistFetchedMsg(pl, err)
	}
}

// request builds the engine input for the previewed playlist.
func (m *Model) request() tasks.ImportRequest {
	target := m.target
	if target.Mode == models.UpdateExisting && strings.TrimSpace(target.RequestedName) == "" {
		target.RequestedName = m.playlist.Title
	}
	return tasks.ImportRequest{
		Songs:          m.playlist.Songs,
		Target:         target,
		SourcePlatform: m.playlist.Platform,
		OriginalTitle:  m.playlist.Title,
	}
}

func (m *Model) startImport() tea.Cmd {
	run := &importRun{
		updates: make(chan tasks.ProgressUpdate, 50),
		done:    make(chan completeData, 1),
	}
	m.run = run

	ctx, engine, library, req := m.ctx, m.opts.Engine, m.opts.Library, m.request()
	go func() {
		result, err := engine.Run(ctx, req, library, run.updates)
		close(run.updates)
		run.done <- completeData{result, err}
	}()

	return waitForProgress(run)
}

// waitForProgress blocks until the next update, or the outcome once the stream closes.
func waitForProgress(run *importRun) tea.Cmd {
	return func() tea.Msg {
		if run == nil {
			return nil
		}
		update, ok := <-run.updates
		if !ok {
			out := <-run.done
			return importCompleteMsg(out.result, out.err)
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SourceView:
		return m.renderSource()
	case PreviewView:
		return m.renderPreview()
	case ConfirmView:
		return m.renderConfirm()
	case ImportView:
		return m.renderImport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderSource() string {
	title := styles.title.Render("Import a playlist into Plex")
	body := "Paste a NetEase Cloud Music or QQ Music playlist link:\n\n" + m.input.View()

	switch {
	case m.fetching:
		body += "\n\n" + m.spinner.View() + " Fetching playlist..."
	case m.err != nil:
		body += "\n\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}

	fetchKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "fetch"))
	helpView := m.help.ShortHelpView([]key.Binding{fetchKey, m.keys.cancel})
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderPreview() string {
	importKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "import"))
	helpView := m.help.ShortHelpView([]key.Binding{importKey, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.songList.View(), helpView)
}

// destination describes where the import will write.
func (m *Model) destination() string {
	req := m.request()
	if req.Target.Mode == models.UpdateExisting {
		return fmt.Sprintf("replace the contents of '%s' (created if missing)", req.Target.RequestedName)
	}
	return fmt.Sprintf("create '%s'", tasks.GeneratedName(req.SourcePlatform, req.OriginalTitle, time.Now()))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Import '%s' into Plex?", m.playlist.Title))
	info := fmt.Sprintf(
		"\nSource: %s\nSongs: %d\nMode: %s\nThis will %s\n",
		m.playlist.Platform,
		len(m.playlist.Songs),
		m.target.Mode,
		m.destination(),
	)

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.mode, m.keys.cancel})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderImport() string {
	title := styles.title.Render("Importing Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.Connect:
		phase = "Connecting to Plex..."
	case tasks.CreatePlaylist:
		phase = "Creating playlist..."
	case tasks.ClearPlaylist:
		phase = "Clearing existing playlist..."
	case tasks.MatchSongs:
		phase = fmt.Sprintf("Matching songs (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.AddTracks:
		phase = "Adding matched tracks..."
	default:
		phase = "Finishing..."
	}

	var percent float64
	if m.progress.Phase == tasks.MatchSongs && m.progress.Total > 0 {
		percent = float64(m.progress.Step) / float64(m.progress.Total)
	} else if m.progress.Phase > tasks.MatchSongs {
		percent = 1
	}

	return fmt.Sprintf(
		"%s\n\n%s %s\n\n%s\n%s",
		title, m.spinner.View(), phase, m.bar.ViewAs(percent), styles.help.Render(m.progress.Message),
	)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.result == nil {
		msg := "No result available"
		if m.err != nil {
			msg = fmt.Sprintf("Import failed: %v", m.err)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}

	var title string
	if m.result.Success {
		title = styles.ok.Render("✓ Import Complete!")
	} else {
		title = styles.err.Render("✗ Import Failed")
	}

	info := "\n" + m.result.Message
	if m.result.FinalPlaylistName != "" {
		info += fmt.Sprintf("\nPlaylist: %s", m.result.FinalPlaylistName)
	}
	info += fmt.Sprintf("\nMatched: %d", m.result.MatchedCount)

	var unmatched string
	if n := len(m.result.UnmatchedSongs); n > 0 {
		unmatched = "\n\n" + styles.warn.Render(fmt.Sprintf("Not found in the library (%d):", n))
		for _, song := range m.result.UnmatchedSongs {
			unmatched += "\n  • " + song.String()
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, unmatched, helpView)
}
