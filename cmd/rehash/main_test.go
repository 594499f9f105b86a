package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theflywheel/rehash/internal/benchcmp"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"rehash"}, args...))
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestTrial(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "trial.prom")
	out, err := run(t, "trial",
		"--words", "2000",
		"-m", "7",
		"-t", "dynamic", "-t", "incremental", "-t", "flat",
		"-b", "1", "-b", "8",
		"--parallel", "2",
		"--metrics-out", metricsPath,
		"--records",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Put latency")
	assert.Contains(t, out, "incremental/batch=1")
	assert.Contains(t, out, "incremental/batch=8")
	assert.Contains(t, out, "Latency records: dynamic")

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `rehash_resizes_total{table="dynamic"}`)
	assert.Contains(t, string(data), `rehash_migrating{table="incremental/batch=8"}`)
	assert.NotContains(t, string(data), `table="flat"`)
}

func TestTrialConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("words: 300\ntables: [chained]\ninitial-buckets: 31\n"), 0644))

	out, err := run(t, "--config", path, "trial")
	require.NoError(t, err)
	assert.Contains(t, out, "chained")
	assert.NotContains(t, out, "incremental")
}

func TestTrialInvalid(t *testing.T) {
	_, err := run(t, "trial", "-b", "0")
	assert.Error(t, err)

	_, err = run(t, "trial", "-t", "cuckoo", "--words", "10")
	assert.ErrorContains(t, err, "cuckoo")
}

func TestChains(t *testing.T) {
	out, err := run(t, "chains", "--words", "3", "-m", "7", "-t", "chained")
	require.NoError(t, err)
	assert.Contains(t, out, "Chain lengths: xxhash")
	assert.Contains(t, out, "Chain lengths: degraded")
	assert.Contains(t, out, "entries in 7 buckets")
}

func writeSummary(t *testing.T, path string, rate float64) {
	t.Helper()
	require.NoError(t, benchcmp.Append(path, t.TempDir(), benchcmp.Result{
		Name:     "IncrementalPut",
		Category: "scale",
		Metrics:  map[string]float64{"insertion_rate": rate},
	}))
}

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.json")
	better := filepath.Join(dir, "better.json")
	worse := filepath.Join(dir, "worse.json")
	writeSummary(t, base, 100)
	writeSummary(t, better, 150)
	writeSummary(t, worse, 50)

	out, err := run(t, "compare", base, better)
	require.NoError(t, err)
	assert.Contains(t, out, "IMPROVEMENT IncrementalPut (scale):")

	_, err = run(t, "compare", base, worse)
	assert.ErrorContains(t, err, "1 significant regressions")

	_, err = run(t, "compare", base)
	assert.Error(t, err)
}
