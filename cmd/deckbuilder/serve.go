package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/koustreak/deckbuilder/internal/auth"
	"github.com/koustreak/deckbuilder/internal/config"
	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/koustreak/deckbuilder/internal/database/connect"
	"github.com/koustreak/deckbuilder/internal/filestore"
	"github.com/koustreak/deckbuilder/internal/filestore/minio"
	"github.com/koustreak/deckbuilder/internal/health"
	"github.com/koustreak/deckbuilder/internal/logger"
	"github.com/koustreak/deckbuilder/internal/metrics"
	"github.com/koustreak/deckbuilder/internal/schema"
	"github.com/koustreak/deckbuilder/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const poolStatsInterval = time.Minute

func newServeCmd(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API on BIND_ADDRESS.

DATABASE_URL and BIND_ADDRESS are required. The process exits before
binding a socket if either is missing or if the connection pool cannot
open its minimum number of idle connections.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *opts)
		},
	}
}

func serve(ctx context.Context, opts config.Options) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	log := logger.New(&cfg.Log)
	ctx = log.WithContext(ctx)

	pool, err := openPool(ctx, &cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	warnMissingTables(ctx, pool, log)

	checks := []health.Checker{health.NewPoolChecker(pool)}
	var files filestore.Store
	if cfg.Storage.Enabled() {
		d, err := minio.New(&cfg.Storage)
		if err != nil {
			return err
		}
		defer d.Close()
		files = d
		checks = append(checks, health.NewStoreChecker(d))
		log.InfoWith("card art storage enabled", map[string]any{"endpoint": cfg.Storage.Endpoint, "bucket": d.Bucket()})
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		if secret, err = auth.RandomSecret(); err != nil {
			return err
		}
		log.Warn("JWT_SECRET is not set; using a random secret, tokens will not survive a restart")
	}
	issuer, err := auth.NewIssuer(secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Metrics, nil)
	}

	prober := health.NewProber(cfg.Health.DeepTimeout, log, checks...)
	log.With().Str("component", "health").Any("checks", checkNames(checks)).Logger().
		Infof("readiness checks bounded by %s", prober.Timeout())

	srv, err := server.New(server.Options{
		Config:     &cfg.Server,
		Pool:       pool,
		Prober:     prober,
		Issuer:     issuer,
		Files:      files,
		PresignTTL: cfg.Storage.PresignTTL,
		Metrics:    collector,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		logPoolStats(gctx, pool, log)
		return nil
	})
	if err := g.Wait(); err != nil {
		log.ErrorWith("server stopped", err, map[string]any{"address": cfg.Server.BindAddress})
		return err
	}
	return nil
}

func checkNames(checks []health.Checker) []string {
	names := make([]string, len(checks))
	for i, c := range checks {
		names[i] = c.Name()
	}
	return names
}

// openPool picks the driver from the DSN scheme and builds the pool.
func openPool(ctx context.Context, cfg *database.Config, log *logger.Logger) (*database.Pool, error) {
	connector, err := connect.Connector(cfg)
	if err != nil {
		return nil, err
	}
	drv, _ := database.DriverFromDSN(cfg.DSN)
	log.Infof("connecting to %s", drv)
	return database.NewPool(ctx, cfg, connector, log)
}

// warnMissingTables logs tables the migrate command would create. The API
// still starts; requests touching a missing table fail individually.
func warnMissingTables(ctx context.Context, pool *database.Pool, log *logger.Logger) {
	var missing []string
	err := pool.WithConn(ctx, func(c database.Conn) (err error) {
		missing, err = schema.Verify(ctx, c)
		return err
	})
	switch {
	case err != nil:
		log.WarnWith("could not verify database schema", err, nil)
	case len(missing) > 0:
		log.WarnWith("database schema incomplete, run `deckbuilder migrate`", nil,
			map[string]any{"missing_tables": strings.Join(missing, ",")})
	}
}

func logPoolStats(ctx context.Context, pool *database.Pool, log *logger.Logger) {
	t := time.NewTicker(poolStatsInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := pool.Stat()
			log.With().Str("component", "pool").Logger().Debugf(
				"total=%d idle=%d leased=%d timeouts=%d recycled=%d discarded=%d",
				st.Total, st.Idle, st.Leased, st.Timeouts, st.Recycled, st.Discarded)
		}
	}
}
