// Package config loads trial settings from a config file, REHASH_
// environment variables and command-line overrides, in that priority order.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "REHASH_"

// Table kinds understood by the trial harness.
const (
	KindChained     = "chained"
	KindDynamic     = "dynamic"
	KindIncremental = "incremental"
	KindFlat        = "flat"
)

var ErrInvalid = errors.New("invalid config")

// Config describes a set of resize trials.
type Config struct {
	// Corpus is a word list file, one word per line. Empty means a
	// synthetic corpus of Words words.
	Corpus string `koanf:"corpus"`
	Words  int    `koanf:"words"`
	Seed   uint64 `koanf:"seed"`

	InitialBuckets int      `koanf:"initial-buckets"`
	BatchSizes     []int    `koanf:"batch-sizes"`
	Tables         []string `koanf:"tables"`
	Parallel       int      `koanf:"parallel"`
	BadHash        bool     `koanf:"bad-hash"`

	MetricsOut string `koanf:"metrics-out"`
}

func Default() Config {
	return Config{
		Words:          50_000,
		Seed:           1,
		InitialBuckets: 1023,
		BatchSizes:     []int{10},
		Tables:         []string{KindDynamic, KindIncremental},
		Parallel:       1,
	}
}

// Load reads path (if not empty) and REHASH_ variables on top of Default.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	var cfg Config

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return cfg, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}
	if err := loadEnv(k); err != nil {
		return cfg, fmt.Errorf("error loading environment variables: %w", err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults fills every unset field from Default.
func (c Config) withDefaults() Config {
	d := Default()
	if c.Words == 0 {
		c.Words = d.Words
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	if c.InitialBuckets == 0 {
		c.InitialBuckets = d.InitialBuckets
	}
	if len(c.BatchSizes) == 0 {
		c.BatchSizes = d.BatchSizes
	}
	if len(c.Tables) == 0 {
		c.Tables = d.Tables
	}
	if c.Parallel == 0 {
		c.Parallel = d.Parallel
	}
	return c
}

func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch filepath.Ext(path) {
	case ".json":
		parser = json.Parser()
	default:
		parser = yaml.Parser()
	}
	return k.Load(file.Provider(path), parser)
}

// loadEnv maps REHASH_BATCH_SIZES=1,5 to batch-sizes: [1, 5].
func loadEnv(k *koanf.Koanf) error {
	return k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		configKey := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, EnvPrefix), "_", "-"))
		switch configKey {
		case "batch-sizes", "tables":
			return configKey, strings.Split(value, ",")
		}
		return configKey, value
	}), nil)
}

// Validate rejects settings no trial can run with.
func (c Config) Validate() error {
	if c.InitialBuckets < 1 {
		return fmt.Errorf("%w: initial-buckets must be at least 1, got %d", ErrInvalid, c.InitialBuckets)
	}
	if len(c.BatchSizes) == 0 {
		return fmt.Errorf("%w: batch-sizes is empty", ErrInvalid)
	}
	for _, b := range c.BatchSizes {
		if b < 1 {
			return fmt.Errorf("%w: batch size must be at least 1, got %d", ErrInvalid, b)
		}
	}
	if c.Corpus == "" && c.Words < 1 {
		return fmt.Errorf("%w: words must be at least 1, got %d", ErrInvalid, c.Words)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("%w: parallel must be at least 1, got %d", ErrInvalid, c.Parallel)
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("%w: tables is empty", ErrInvalid)
	}
	for _, kind := range c.Tables {
		switch kind {
		case KindChained, KindDynamic, KindIncremental, KindFlat:
		default:
			return fmt.Errorf("%w: unknown table kind %q", ErrInvalid, kind)
		}
	}
	return nil
}
