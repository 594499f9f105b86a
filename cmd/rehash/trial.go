package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/theflywheel/rehash"
	"github.com/theflywheel/rehash/internal/config"
	"github.com/theflywheel/rehash/internal/corpus"
	"github.com/theflywheel/rehash/internal/logger"
	"github.com/theflywheel/rehash/internal/metrics"
	"github.com/theflywheel/rehash/internal/report"
	"github.com/theflywheel/rehash/internal/trial"
)

// trialFlags override the matching config keys when set.
func trialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "corpus",
			Usage: "Word list file, one word per line. Defaults to a synthetic corpus",
		},
		&cli.IntFlag{
			Name:  "words",
			Usage: "Size of the synthetic corpus",
		},
		&cli.IntFlag{
			Name:  "seed",
			Usage: "Seed of the synthetic corpus",
		},
		&cli.IntFlag{
			Name:    "initial-buckets",
			Aliases: []string{"m"},
			Usage:   "Bucket count every table starts with",
		},
		&cli.IntSliceFlag{
			Name:    "batch-size",
			Aliases: []string{"b"},
			Usage:   "Migration budget per Put of the incremental table. Repeat for one trial per size",
		},
		&cli.StringSliceFlag{
			Name:    "table",
			Aliases: []string{"t"},
			Usage:   "Table kind to run: chained, dynamic, incremental or flat. Repeatable",
		},
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "Trials to run at the same time",
		},
		&cli.BoolFlag{
			Name:  "bad-hash",
			Usage: "Use a hash with only four distinct values for the chained tables",
		},
		&cli.StringFlag{
			Name:  "metrics-out",
			Usage: "Write table statistics in the Prometheus text format to this file",
		},
	}
}

func trialCommand() *cli.Command {
	return &cli.Command{
		Name:        "trial",
		Usage:       "Insert a corpus one word at a time and report Put latency per table",
		UsageText:   "rehash trial [options]",
		Description: "Example: rehash trial -t dynamic -t incremental -b 1 -b 10 --words 100000",
		Flags: append(trialFlags(), &cli.BoolFlag{
			Name:  "records",
			Usage: "Also list every Put that was slower than all Puts before it",
		}),
		Action: runTrial,
	}
}

// loadConfig merges the config file, REHASH_ variables and command flags.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return cfg, err
	}
	if cmd.IsSet("corpus") {
		cfg.Corpus = cmd.String("corpus")
	}
	if cmd.IsSet("words") {
		cfg.Words = cmd.Int("words")
	}
	if cmd.IsSet("seed") {
		cfg.Seed = uint64(cmd.Int("seed"))
	}
	if cmd.IsSet("initial-buckets") {
		cfg.InitialBuckets = cmd.Int("initial-buckets")
	}
	if cmd.IsSet("batch-size") {
		cfg.BatchSizes = cmd.IntSlice("batch-size")
	}
	if cmd.IsSet("table") {
		cfg.Tables = cmd.StringSlice("table")
	}
	if cmd.IsSet("parallel") {
		cfg.Parallel = cmd.Int("parallel")
	}
	if cmd.IsSet("bad-hash") {
		cfg.BadHash = cmd.Bool("bad-hash")
	}
	if cmd.IsSet("metrics-out") {
		cfg.MetricsOut = cmd.String("metrics-out")
	}
	return cfg, cfg.Validate()
}

func loadWords(cfg config.Config) ([]string, error) {
	if cfg.Corpus != "" {
		return corpus.Load(cfg.Corpus)
	}
	return corpus.Synthetic(cfg.Words, cfg.Seed), nil
}

func runTrial(ctx context.Context, cmd *cli.Command) error {
	log := logger.From(ctx)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	words, err := loadWords(cfg)
	if err != nil {
		return err
	}
	factories, err := trial.Factories(cfg, log)
	if err != nil {
		return err
	}

	log.Info("running trials", "tables", len(factories), "words", len(words), "initial_buckets", cfg.InitialBuckets)
	results, err := trial.RunAll(ctx, factories, words, cfg.Parallel)
	if err != nil {
		return fmt.Errorf("trial failed: %w", err)
	}

	out := cmd.Root().Writer
	w := report.New(out, styled(out))
	if err := w.Results(results); err != nil {
		return err
	}
	if cmd.Bool("records") {
		for _, r := range results {
			if err := w.Records(r); err != nil {
				return err
			}
		}
	}

	if cfg.MetricsOut != "" {
		if err := writeMetrics(cfg.MetricsOut, results); err != nil {
			return err
		}
		log.Info("wrote metrics", "path", cfg.MetricsOut)
	}
	return nil
}

// snapshot serves a finished trial's statistics to the collector.
type snapshot rehash.Stats

func (s snapshot) Stats() rehash.Stats { return rehash.Stats(s) }

func writeMetrics(path string, results []trial.Result) error {
	c := metrics.NewCollector()
	for _, r := range results {
		if r.Stats != nil {
			c.Add(r.Name, snapshot(*r.Stats))
		}
	}
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := metrics.WriteText(f, reg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
