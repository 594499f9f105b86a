// Package trial times Put against the rehash tables, one word at a time,
// to expose the latency spikes a full rehash causes and the incremental
// table avoids.
package trial

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/theflywheel/rehash"
	"github.com/theflywheel/rehash/internal/config"
)

// Table is what a trial drives.
type Table = rehash.Map[string, string]

type bucketer interface{ Buckets() int }

type statser interface{ Stats() rehash.Stats }

type chainer interface{ Chains() rehash.ChainStats }

type totaler interface{ Total() int }

// Factory builds a fresh table for one trial.
type Factory struct {
	Name string
	New  func() (Table, error)
}

// Record is a Put that took longer than every Put before it.
type Record struct {
	Index      int
	Word       string
	Latency    time.Duration
	OldBuckets int
	NewBuckets int
}

type Result struct {
	Name    string
	Puts    int
	Entries int
	Total   time.Duration
	Average time.Duration
	StdDev  time.Duration
	P50     time.Duration
	P99     time.Duration
	Max     time.Duration
	Records []Record

	// Stats and Chains are set when the table reports them.
	Stats  *rehash.Stats
	Chains *rehash.ChainStats
}

// DegradedHasher keeps only four distinct hash values, forcing long chains.
func DegradedHasher(s string) uint64 {
	return rehash.StringHasher(s) % 4
}

// Factories returns one factory per table kind in cfg, and one incremental
// factory per batch size.
func Factories(cfg config.Config, log *slog.Logger) ([]Factory, error) {
	opts := []rehash.Option{rehash.WithLogger(log)}
	if cfg.BadHash {
		opts = append(opts, rehash.WithHasher(DegradedHasher))
	}
	m := cfg.InitialBuckets

	var out []Factory
	for _, kind := range cfg.Tables {
		switch kind {
		case config.KindChained:
			out = append(out, Factory{Name: kind, New: func() (Table, error) {
				return rehash.NewTable[string, string](m, opts...)
			}})
		case config.KindDynamic:
			out = append(out, Factory{Name: kind, New: func() (Table, error) {
				return rehash.NewDynamicTable[string, string](m, opts...)
			}})
		case config.KindIncremental:
			for _, batch := range cfg.BatchSizes {
				out = append(out, Factory{
					Name: fmt.Sprintf("%s/batch=%d", kind, batch),
					New: func() (Table, error) {
						return rehash.NewIncrementalTable[string, string](m, batch, opts...)
					},
				})
			}
		case config.KindFlat:
			out = append(out, Factory{Name: kind, New: func() (Table, error) {
				return NewFlatMap(), nil
			}})
		default:
			return nil, fmt.Errorf("unknown table kind %q", kind)
		}
	}
	return out, nil
}

// Entries counts every entry in t, including those an incremental table
// has not migrated yet.
func Entries(t Table) int {
	if c, ok := t.(totaler); ok {
		return c.Total()
	}
	return t.Len()
}

func buckets(t Table) int {
	if b, ok := t.(bucketer); ok {
		return b.Buckets()
	}
	return 0
}

// Run puts every word as its own value, timing each Put, then checks that
// every word can be read back.
func Run(ctx context.Context, f Factory, words []string) (Result, error) {
	res := Result{Name: f.Name, Puts: len(words)}
	t, err := f.New()
	if err != nil {
		return res, fmt.Errorf("%s: failed to create table: %w", f.Name, err)
	}

	samples := make([]float64, len(words))
	var longest time.Duration
	for i, w := range words {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}

		before := buckets(t)
		start := time.Now()
		t.Put(w, w)
		elapsed := time.Since(start)

		samples[i] = float64(elapsed)
		res.Total += elapsed
		if i == 0 || elapsed > longest {
			longest = elapsed
			res.Records = append(res.Records, Record{
				Index:      i,
				Word:       w,
				Latency:    elapsed,
				OldBuckets: before,
				NewBuckets: buckets(t),
			})
		}
	}

	for _, w := range words {
		if v, ok := t.Get(w); !ok || v != w {
			return res, fmt.Errorf("%s: word %q missing after trial", f.Name, w)
		}
	}

	res.Entries = Entries(t)
	if s, ok := t.(statser); ok {
		st := s.Stats()
		res.Stats = &st
	}
	if c, ok := t.(chainer); ok {
		cs := c.Chains()
		res.Chains = &cs
	}
	if len(samples) == 0 {
		return res, nil
	}

	res.Max = longest
	res.Average = time.Duration(stat.Mean(samples, nil))
	res.StdDev = time.Duration(stat.StdDev(samples, nil))
	slices.Sort(samples)
	res.P50 = time.Duration(stat.Quantile(0.5, stat.Empirical, samples, nil))
	res.P99 = time.Duration(stat.Quantile(0.99, stat.Empirical, samples, nil))
	return res, nil
}

// RunAll runs every factory over words, at most parallel at a time. Each
// trial owns its table, so the tables are never shared between goroutines.
// Results are returned in factory order.
func RunAll(ctx context.Context, factories []Factory, words []string, parallel int) ([]Result, error) {
	results := make([]Result, len(factories))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i, f := range factories {
		g.Go(func() error {
			r, err := Run(ctx, f, words)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
