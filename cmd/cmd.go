// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database and the media server.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "plex",
				Usage: "Save Plex connection settings to the config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "Plex server URL, e.g. http://127.0.0.1:32400",
					},
					&cli.StringFlag{
						Name:  "token",
						Usage: "Plex token (X-Plex-Token)",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Default playlist name for update_existing imports",
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Default import mode (create_new or update_existing)",
					},
					&cli.BoolFlag{
						Name:  "check",
						Usage: "Connect to the server after saving",
					},
				},
				Action: r.SetupPlex,
			},
		},
	}
}

// playlistCommand handles source playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "NetEase Cloud Music and QQ Music playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "extract",
				Usage: "Fetch a playlist's songs from its share link or id",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Aliases:  []string{"u"},
						Usage:    "Playlist share link, or a bare id together with --source",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source for bare ids (netease or qq)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (json, csv, markdown, txt)",
						Value:   "txt",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to this file instead of stdout",
					},
				},
				Action: r.PlaylistExtract,
			},
		},
	}
}

// plexCommand handles imports and media server queries
func plexCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "plex",
		Usage: "Plex import operations",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import a source playlist into Plex",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Aliases:  []string{"u"},
						Usage:    "Playlist share link, or a bare id together with --source",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source for bare ids (netease or qq)",
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Import mode (create_new or update_existing); defaults to the configured mode",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Playlist to replace in update_existing mode; defaults to the configured name, then the source title",
					},
					&cli.IntFlag{
						Name:  "match-workers",
						Usage: "Songs matched in parallel; defaults to the configured value",
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "Write an import report to this path",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Report format (json, csv, markdown, txt)",
						Value:   "markdown",
					},
					&cli.BoolFlag{
						Name:  "no-history",
						Usage: "Do not record the run in the job history database",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the result as JSON",
					},
				},
				Action: r.PlexImport,
			},
			{
				Name:  "playlists",
				Usage: "List audio playlists on the Plex server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.PlexPlaylists,
			},
		},
	}
}

// historyCommand shows recorded import runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect past import runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List import runs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show runs with this status (pending, processing, completed, failed)",
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Only show runs with this import mode",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show one run and the songs it could not match",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Job id",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Remove a run from the history",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Job id",
						Required: true,
					},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host; defaults to the configured host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port; defaults to the configured port",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive imports.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for playlist imports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Initial import mode; can be toggled in the TUI",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Playlist to replace in update_existing mode",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where TUI logs are written",
				Value: "plexlist-tui.log",
			},
		},
		Action: r.TUI,
	}
}
