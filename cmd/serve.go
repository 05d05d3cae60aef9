package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plexlist/internal/server"
	"github.com/desertthunder/plexlist/internal/shared"
	"github.com/desertthunder/plexlist/internal/tasks"
)

const poolShutdownTimeout = 30 * time.Second

// Serve runs the HTTP API until ctx is canceled, then drains running imports.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host, port := r.config.Server.Host, r.config.Server.Port
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		port = int(cmd.Int("port"))
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", shared.ErrInvalidFlag, port)
	}

	repo, db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	pool := tasks.NewPool(r.engine(r.config.Import.MatchWorkers), tasks.PoolOptions{
		Workers:       r.config.Import.Workers,
		RunsPerSecond: r.config.Import.RunsPerSecond,
		Store:         repo,
		Logger:        shared.WithLogger(r.logger, "component", "pool"),
	})

	api := server.NewAPI(server.Options{
		Config:     r.config,
		ConfigPath: r.configPath,
		Pool:       pool,
		Library:    server.LibraryFactory(r.library),
		Sources:    server.SourceResolver(r.sources),
		Logger:     shared.WithLogger(r.logger, "component", "api"),
	})

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	srv := server.New(addr, server.NewHandler(api), r.logger)
	runErr := srv.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("import runs canceled during shutdown", "error", err)
	}

	return runErr
}
