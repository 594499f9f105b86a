package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/theflywheel/rehash/internal/benchcmp"
)

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "Compare two benchmark result files and fail on significant regressions",
		UsageText: "rehash compare [options] <base.json> <current.json>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "as-json",
				Usage: "Print the comparison as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("expected a base and a current result file, got %d arguments", cmd.Args().Len())
			}
			base, err := benchcmp.Load(cmd.Args().Get(0))
			if err != nil {
				return err
			}
			current, err := benchcmp.Load(cmd.Args().Get(1))
			if err != nil {
				return err
			}

			c := benchcmp.Compare(base, current)
			out := cmd.Root().Writer
			if cmd.Bool("as-json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(c); err != nil {
					return fmt.Errorf("error marshaling comparison: %w", err)
				}
			} else {
				benchcmp.Print(out, c)
			}

			if c.SignificantRegressions > 0 {
				return fmt.Errorf("%d significant regressions", c.SignificantRegressions)
			}
			return nil
		},
	}
}
