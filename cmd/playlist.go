package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plexlist/internal/formatter"
)

// sourceHint prefers an explicit --source over sniffing the link.
func sourceHint(cmd *cli.Command) string {
	if s := cmd.String("source"); s != "" {
		return s
	}
	return cmd.String("url")
}

// outputPath returns path, or a file named after base inside path when path is a directory.
func outputPath(path, base string, f formatter.Format) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, formatter.Filename(base, f))
	}
	return path
}

// PlaylistExtract fetches a source playlist and prints or saves its songs.
func (r *Runner) PlaylistExtract(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	pl, err := r.fetchPlaylist(ctx, sourceHint(cmd), cmd.String("url"))
	if err != nil {
		return err
	}
	r.logger.Info("playlist fetched", "title", pl.Title, "songs", len(pl.Songs))

	data, err := formatter.ExportPlaylist(pl, format)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		return r.writePlain("%s", data)
	}

	path := outputPath(output, pl.Title, format)
	if err := formatter.WriteFile(path, data); err != nil {
		return err
	}
	r.writePlain("✓ Saved %d songs from '%s' to %s\n", len(pl.Songs), pl.Title, path)
	return nil
}
