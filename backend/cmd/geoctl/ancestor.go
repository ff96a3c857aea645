package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/urfave/cli/v3"

	"bookmap/backend/internal/geo"
)

func ancestorCommand() *cli.Command {
	return &cli.Command{
		Name:  "ancestor",
		Usage: "Print the region or country an author was born in",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "goodreads id of the author",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "region or country",
				Value: "country",
			},
		},
		Action: runAncestor,
	}
}

func runAncestor(ctx context.Context, cmd *cli.Command) error {
	kind, err := geo.ParseKind(cmd.String("kind"))
	if err != nil {
		return err
	}
	if kind == geo.KindCity {
		return errors.New("kind must be region or country")
	}

	repo, _, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	node, err := repo.AncestorOf(ctx, cmd.String("id"), kind)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(node)
}
