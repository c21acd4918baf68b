package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/koustreak/deckbuilder/internal/config"
	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/koustreak/deckbuilder/internal/logger"
	"github.com/koustreak/deckbuilder/internal/schema"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users, cards, decks and deck_cards tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*opts)
			if err != nil {
				return err
			}
			log := logger.New(&cfg.Log)

			cfg.Database.MinIdle = 1
			cfg.Database.MaxSize = 1
			pool, err := openPool(cmd.Context(), &cfg.Database, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := cmd.Context()
			err = pool.WithConn(ctx, func(c database.Conn) error {
				return schema.Migrate(ctx, c)
			})
			if err != nil {
				return err
			}
			log.InfoWith("schema up to date", map[string]any{"tables": schema.Tables})
			return nil
		},
	}
}

func newHealthcheckCmd(opts *config.Options) *cobra.Command {
	var (
		deep    bool
		url     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe a running instance; exits non-zero unless it answers 2xx",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				// The env file is optional here; container probes often
				// run without it.
				if opts.EnvFile != "" {
					_ = godotenv.Load(opts.EnvFile)
				}
				base, err := localURL(os.Getenv("BIND_ADDRESS"))
				if err != nil {
					return err
				}
				url = base
			}
			path := "/health"
			if deep {
				path = "/health/deep"
			}
			return probe(cmd.Context(), cmd.OutOrStdout(), url+path, timeout)
		},
	}
	cmd.Flags().BoolVar(&deep, "deep", false, "run the readiness probe instead of liveness")
	cmd.Flags().StringVar(&url, "url", "", "base URL of the instance (default derived from BIND_ADDRESS)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

// localURL turns a bind address into a URL reachable from the same host.
func localURL(bind string) (string, error) {
	if bind == "" {
		return "", fmt.Errorf("BIND_ADDRESS is not set; pass --url")
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "", fmt.Errorf("invalid BIND_ADDRESS %q: %w", bind, err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}

func probe(ctx context.Context, out io.Writer, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	fmt.Fprintf(out, "%d %s\n", resp.StatusCode, body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}
	return nil
}
