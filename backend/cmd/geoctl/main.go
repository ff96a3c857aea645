// Package main provides geoctl, the administration CLI for the location graph.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"bookmap/backend/internal/graph"
	"bookmap/backend/pkg/config"
	"bookmap/backend/pkg/logger"
)

var version = "dev"

func main() {
	err := newApp().Run(context.Background(), os.Args)
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "geoctl",
		Version: version,
		Usage:   "Manage the author birthplace graph",
		Commands: []*cli.Command{
			schemaCommand(),
			seedCommand(),
			ancestorCommand(),
		},
	}
}

// openRepository loads configuration, initialises logging and connects to Neo4j
func openRepository(ctx context.Context, opts ...graph.Option) (*graph.Repository, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	repo, err := graph.Open(ctx, cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	logger.Get().Debug("Connected to Neo4j", zap.String("uri", cfg.Neo4jURI))
	return repo, cfg, nil
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Declare uniqueness constraints and indexes (idempotent)",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			repo, _, err := openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close(ctx)

			if err := repo.EnsureSchema(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.Root().Writer, "schema ready")
			return nil
		},
	}
}
