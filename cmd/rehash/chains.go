package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/theflywheel/rehash"
	"github.com/theflywheel/rehash/internal/config"
	"github.com/theflywheel/rehash/internal/logger"
	"github.com/theflywheel/rehash/internal/report"
	"github.com/theflywheel/rehash/internal/trial"
)

func chainsCommand() *cli.Command {
	return &cli.Command{
		Name:      "chains",
		Usage:     "Show chain length distributions with the default and a degraded hash",
		UsageText: "rehash chains [options]",
		Flags:     trialFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			words, err := loadWords(cfg)
			if err != nil {
				return err
			}

			out := cmd.Root().Writer
			w := report.New(out, styled(out))
			log := logger.From(ctx)
			for _, hashed := range []struct {
				name string
				opts []rehash.Option
			}{
				{name: "xxhash"},
				{name: "degraded", opts: []rehash.Option{rehash.WithHasher(trial.DegradedHasher)}},
			} {
				cs, err := chains(cfg, words, append(hashed.opts, rehash.WithLogger(log)))
				if err != nil {
					return err
				}
				if err := w.Chains(hashed.name, cs); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// chains fills the first chained table kind in cfg with words. Tables
// default to incremental when cfg names none that chains.
func chains(cfg config.Config, words []string, opts []rehash.Option) (rehash.ChainStats, error) {
	kind := config.KindIncremental
	for _, k := range cfg.Tables {
		if k != config.KindFlat {
			kind = k
			break
		}
	}

	var t interface {
		rehash.Map[string, string]
		Chains() rehash.ChainStats
	}
	var err error
	switch kind {
	case config.KindChained:
		t, err = rehash.NewTable[string, string](cfg.InitialBuckets, opts...)
	case config.KindDynamic:
		t, err = rehash.NewDynamicTable[string, string](cfg.InitialBuckets, opts...)
	case config.KindIncremental:
		t, err = rehash.NewIncrementalTable[string, string](cfg.InitialBuckets, cfg.BatchSizes[0], opts...)
	default:
		return rehash.ChainStats{}, fmt.Errorf("unknown table kind %q", kind)
	}
	if err != nil {
		return rehash.ChainStats{}, err
	}
	for _, word := range words {
		t.Put(word, word)
	}
	return t.Chains(), nil
}
