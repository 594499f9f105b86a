package bench_test

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/theflywheel/rehash/internal/benchcmp"
	"github.com/theflywheel/rehash/internal/config"
	"github.com/theflywheel/rehash/internal/logger"
	"github.com/theflywheel/rehash/internal/trial"
)

// getMemoryUsage returns the current memory stats as a formatted string
func getMemoryUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return fmt.Sprintf("Memory: Alloc=%.1fMB Sys=%.1fMB",
		float64(m.Alloc)/1024/1024,
		float64(m.Sys)/1024/1024)
}

func heapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

// benchTables returns one factory per table under benchmark. The chained
// table is left out since it never grows and would dominate every run.
func benchTables(b *testing.B) []trial.Factory {
	b.Helper()
	cfg := config.Default()
	cfg.Tables = []string{config.KindDynamic, config.KindIncremental, config.KindFlat}
	cfg.BatchSizes = []int{1, 10, 100}
	fs, err := trial.Factories(cfg, logger.Void())
	if err != nil {
		b.Fatalf("Failed to build tables: %v", err)
	}
	return fs
}

// metricName turns "incremental/batch=10" into "incremental_batch_10".
func metricName(name string) string {
	return strings.NewReplacer("/", "_", "=", "_").Replace(name)
}

// scale inserts keys with progress reporting, then checks a sample and the
// full key set, storing rates and latency spikes in metrics.
func scale(b *testing.B, f trial.Factory, keys []string, progressInterval int, metrics map[string]float64) {
	b.Helper()
	prefix := metricName(f.Name) + "_"

	runtime.GC()
	before := heapAlloc()
	t, err := f.New()
	if err != nil {
		b.Fatalf("Failed to create %s: %v", f.Name, err)
	}

	b.Logf("%s: inserting %d keys...", f.Name, len(keys))
	var maxPut time.Duration
	writeStart := time.Now()
	for i, k := range keys {
		start := time.Now()
		t.Put(k, k)
		if d := time.Since(start); d > maxPut {
			maxPut = d
		}

		if (i+1)%progressInterval == 0 {
			elapsed := time.Since(writeStart)
			b.Logf("%s: inserted %d keys... (%.2f keys/sec) %s",
				f.Name, i+1, float64(i+1)/elapsed.Seconds(), getMemoryUsage())
		}
	}
	writeTime := time.Since(writeStart)
	insertionRate := float64(len(keys)) / writeTime.Seconds()
	b.Logf("%s: time to insert %d keys: %v (%.2f keys/sec, slowest Put %v)",
		f.Name, len(keys), writeTime, insertionRate, maxPut)

	metrics[prefix+"insertion_rate"] = insertionRate
	metrics[prefix+"max_put_ns"] = float64(maxPut.Nanoseconds())
	if after := heapAlloc(); after > before {
		metrics[prefix+"bytes_per_key"] = float64(after-before) / float64(len(keys))
	}

	sample := min(len(keys), 1_000)
	randomStart := time.Now()
	for i := 0; i < sample; i++ {
		k := keys[(i*31+17)%len(keys)]
		if v, found := t.Get(k); !found || v != k {
			b.Fatalf("%s: random key %q not found", f.Name, k)
		}
	}
	metrics[prefix+"random_lookup_rate"] = float64(sample) / time.Since(randomStart).Seconds()

	seqStart := time.Now()
	for _, k := range keys {
		if _, found := t.Get(k); !found {
			b.Fatalf("%s: key %q not found", f.Name, k)
		}
	}
	seqLookupRate := float64(len(keys)) / time.Since(seqStart).Seconds()
	metrics[prefix+"sequential_lookup_rate"] = seqLookupRate
	b.Logf("%s: verified all %d keys (%.2f lookups/sec)", f.Name, len(keys), seqLookupRate)

	if n := trial.Entries(t); n != len(keys) {
		b.Fatalf("%s: expected %d entries, got %d", f.Name, len(keys), n)
	}
}

// saveBenchmarkResult appends a result to benchmark_history/<resultsFile>
// in the repository root.
func saveBenchmarkResult(r benchcmp.Result, resultsFile string) error {
	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	// the repository root is one level up from bench
	repoRoot := filepath.Dir(currentDir)
	path := filepath.Join(repoRoot, "benchmark_history", resultsFile)

	if err := benchcmp.Append(path, repoRoot, r); err != nil {
		return err
	}
	fmt.Printf("Benchmark results saved to: %s\n", path)
	return nil
}

// keysOf returns n distinct numeric keys.
func keysOf(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}
	return keys
}
