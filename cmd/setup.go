package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/shared"
)

// SetupDatabase creates the config file when missing, then initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", r.configPath)
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	_, db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	return nil
}

// SetupPlex saves the given Plex settings to the config file, leaving unset flags untouched.
func (r *Runner) SetupPlex(ctx context.Context, cmd *cli.Command) error {
	if !cmd.IsSet("url") && !cmd.IsSet("token") && !cmd.IsSet("name") && !cmd.IsSet("mode") {
		return fmt.Errorf("%w: at least one of --url, --token, --name or --mode is required", shared.ErrMissingArgument)
	}

	updated := *r.config
	if cmd.IsSet("url") {
		updated.Plex.URL = strings.TrimSpace(cmd.String("url"))
	}
	if cmd.IsSet("token") {
		updated.Plex.Token = strings.TrimSpace(cmd.String("token"))
	}
	if cmd.IsSet("name") {
		updated.Plex.PlaylistName = cmd.String("name")
	}
	if cmd.IsSet("mode") {
		mode, err := models.ParseImportMode(cmd.String("mode"))
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		updated.Plex.ImportMode = mode.String()
	}

	if err := shared.SaveConfig(r.configPath, &updated); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.config = &updated
	r.logger.Info("plex settings saved", "path", r.configPath)

	r.writePlain("✓ Plex settings saved to %s\n", r.configPath)

	if !cmd.Bool("check") {
		return nil
	}

	lib, err := r.library(updated.Plex)
	if err != nil {
		return err
	}
	if err := lib.Ping(ctx); err != nil {
		return fmt.Errorf("settings saved but the server did not respond: %w", err)
	}
	r.writePlain("✓ Connected to %s\n", updated.Plex.URL)
	return nil
}
