package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"bookmap/backend/internal/ingest"
)

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Attach the authors listed in a YAML fixtures file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "fixtures file to load",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "concurrent attachments (defaults to INGEST_WORKERS)",
			},
			&cli.BoolFlag{
				Name:  "schema",
				Usage: "ensure the schema before seeding",
				Value: true,
			},
		},
		Action: runSeed,
	}
}

func runSeed(ctx context.Context, cmd *cli.Command) error {
	records, err := ingest.LoadFixtures(cmd.String("file"))
	if err != nil {
		return err
	}

	repo, cfg, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	if cmd.Bool("schema") {
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	workers := cfg.IngestWorkers
	if cmd.IsSet("workers") {
		workers = int(cmd.Int("workers"))
	}

	report, err := ingest.NewPipeline(repo, workers, nil).Run(ctx, records)
	if err != nil {
		return err
	}

	printReport(cmd.Root().Writer, report)
	if failed := len(report.Failed()); failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d records failed", failed, len(report.Outcomes)), 1)
	}
	return nil
}

func printReport(w io.Writer, report *ingest.Report) {
	for _, o := range report.Outcomes {
		switch {
		case o.Err != nil:
			_, _ = fmt.Fprintf(w, "FAIL  %s: %v\n", o.GoodreadsID, o.Err)
		case o.Country != nil:
			_, _ = fmt.Fprintf(w, "ok    %s -> %s\n", o.GoodreadsID, o.Country.Name)
		default:
			_, _ = fmt.Fprintf(w, "ok    %s (no birthplace)\n", o.GoodreadsID)
		}
	}
	_, _ = fmt.Fprintf(w, "%d/%d attached in %s\n", report.Succeeded(), len(report.Outcomes), report.Duration)
}
