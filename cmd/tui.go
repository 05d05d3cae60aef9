package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/shared"
	"github.com/desertthunder/plexlist/internal/ui"
)

// TUI launches the interactive terminal UI for playlist imports.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	target, err := r.importTarget(cmd.String("mode"), cmd.String("name"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, f, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	lib, err := r.library(r.config.Plex)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Options{
		Fetch: func(ctx context.Context, urlOrID string) (*models.SourcePlaylist, error) {
			return r.fetchPlaylist(ctx, urlOrID, urlOrID)
		},
		Engine:  r.engine(r.config.Import.MatchWorkers),
		Library: lib,
		Target:  target,
	})
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
