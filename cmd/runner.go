package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plexlist/internal/matcher"
	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/repositories"
	"github.com/desertthunder/plexlist/internal/services"
	"github.com/desertthunder/plexlist/internal/shared"
	"github.com/desertthunder/plexlist/internal/tasks"
)

// LibraryFactory connects to the media server described by cfg.
type LibraryFactory func(cfg shared.PlexConfig) (services.Library, error)

// SourceResolver picks the playlist source for a share link or source name.
type SourceResolver func(urlOrName string) (services.Source, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	library    LibraryFactory
	sources    SourceResolver
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Library and Sources default to the Plex client and the NetEase/QQ fetchers.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Library    LibraryFactory
	Sources    SourceResolver
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		library:    opts.Library,
		sources:    opts.Sources,
	}
	if r.library == nil {
		r.library = r.plexLibrary
	}
	if r.sources == nil {
		r.sources = r.resolveSource
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, playlistCommand, plexCommand, historyCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// LoadConfig reads the config at path when it exists and keeps the defaults otherwise.
//
// Used as the root command's Before hook so every subcommand sees the same settings.
func (r *Runner) LoadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	r.configPath = path

	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

func (r *Runner) plexLibrary(cfg shared.PlexConfig) (services.Library, error) {
	lib, err := services.NewPlexLibraryFromConfig(cfg, r.logger)
	if err != nil {
		return nil, err
	}
	return lib, nil
}

func (r *Runner) resolveSource(urlOrName string) (services.Source, error) {
	return services.ResolveSource(urlOrName, services.SourceOptionsFromConfig(r.config.Sources, r.logger))
}

// fetchPlaylist resolves the source for urlOrID and reads its playlist.
func (r *Runner) fetchPlaylist(ctx context.Context, sourceHint, urlOrID string) (*models.SourcePlaylist, error) {
	src, err := r.sources(sourceHint)
	if err != nil {
		return nil, err
	}
	id, err := services.ExtractPlaylistID(urlOrID)
	if err != nil {
		return nil, err
	}

	r.logger.Info("fetching playlist", "source", src.Name(), "id", id)
	return src.FetchPlaylist(ctx, id)
}

func (r *Runner) engine(matchWorkers int) *tasks.ImportEngine {
	m := matcher.New(matcher.FuzzScorer{}, r.logger)
	return tasks.NewImportEngine(m, r.logger, tasks.EngineOptions{MatchWorkers: matchWorkers})
}

// openHistory opens the job history database, running pending migrations.
func (r *Runner) openHistory() (*repositories.ImportJobRepository, *sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return repositories.NewImportJobRepository(db), db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
