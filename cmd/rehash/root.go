package main

import (
	"context"
	"fmt"
	"io"
	"os"

	isatty "github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/theflywheel/rehash/internal/logger"
	"github.com/theflywheel/rehash/internal/report"
)

// globalFlags are the flags that should be available on all commands
var globalFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "json",
		Usage: "Output logs as JSON.  Set to true if stdout is not a TTY.",
	},
	&cli.BoolFlag{
		Name:  "verbose",
		Usage: "Enable verbose logging.",
	},
	&cli.StringFlag{
		Name:    "log-level",
		Aliases: []string{"l"},
		Value:   "info",
		Usage:   "Set the log level.  One of: trace, debug, info, warn, error.",
	},
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a YAML or JSON trial configuration file",
	},
}

func newApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "rehash",
		Usage: report.TitleStyle.Render(fmt.Sprintf(
			"%s %s\n\n%s",
			"rehash",
			Version,
			"Measures Put latency of chained hash tables that resize all at once or incrementally.",
		)),
		Version: Version,
		Writer:  stdout,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			// Set LOG_HANDLER so the logger respects the JSON output setting
			if cmd.Bool("json") {
				os.Setenv("LOG_HANDLER", "json")
			}

			if os.Getenv("LOG_LEVEL") == "" {
				if cmd.IsSet("log-level") {
					os.Setenv("LOG_LEVEL", cmd.String("log-level"))
				} else if cmd.Bool("verbose") {
					os.Setenv("LOG_LEVEL", "debug")
				} else {
					os.Setenv("LOG_LEVEL", "info")
				}
			}

			return logger.WithContext(ctx, logger.New()), nil
		},

		Flags: globalFlags,
		Commands: []*cli.Command{
			trialCommand(),
			chainsCommand(),
			compareCommand(),
			versionCommand(),
		},
	}
}

func execute() {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		// Always use JSON when not in a terminal
		os.Setenv("LOG_HANDLER", "json")
	}

	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// styled reports whether tables written to w should carry terminal styling.
func styled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
