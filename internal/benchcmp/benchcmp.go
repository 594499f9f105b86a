// Package benchcmp stores benchmark summaries as JSON and compares two of
// them metric by metric.
package benchcmp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// SignificanceThreshold is the percent change at which a difference counts.
const SignificanceThreshold = 5.0

// Result represents one benchmark with its named metrics.
type Result struct {
	Name     string             `json:"name"`
	Category string             `json:"category"`
	Metrics  map[string]float64 `json:"metrics"`
}

// Summary represents a benchmark run.
type Summary struct {
	Timestamp string   `json:"timestamp"`
	CommitID  string   `json:"commit_id"`
	Branch    string   `json:"branch"`
	GoVersion string   `json:"go_version"`
	Results   []Result `json:"results"`
}

type MetricComparison struct {
	Name          string  `json:"name"`
	BaseValue     float64 `json:"base_value"`
	CurrentValue  float64 `json:"current_value"`
	PercentChange float64 `json:"percent_change"`
	IsRegression  bool    `json:"is_regression"`
	IsImprovement bool    `json:"is_improvement"`
	IsSignificant bool    `json:"is_significant"`
}

type BenchmarkComparison struct {
	Name              string             `json:"name"`
	Category          string             `json:"category"`
	MetricComparisons []MetricComparison `json:"metric_comparisons"`
	OverallAssessment string             `json:"overall_assessment"`
	HasRegressions    bool               `json:"has_regressions"`
	Score             float64            `json:"score"`
}

type Comparison struct {
	BaseCommit             string                `json:"base_commit"`
	CurrentCommit          string                `json:"current_commit"`
	TotalBenchmarks        int                   `json:"total_benchmarks"`
	ImprovedBenchmarks     int                   `json:"improved_benchmarks"`
	RegressionBenchmarks   int                   `json:"regression_benchmarks"`
	SignificantRegressions int                   `json:"significant_regressions"`
	BenchmarkComparisons   []BenchmarkComparison `json:"benchmark_comparisons"`
}

func Load(path string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return s, nil
}

// Append adds r to the summary stored at path, creating the file and its
// directory if needed. Git commit and branch are read from repoRoot/.git
// when present.
func Append(path, repoRoot string, r Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	commitID, branch := gitInfo(repoRoot)
	summary := Summary{
		Timestamp: time.Now().Format(time.RFC3339),
		CommitID:  commitID,
		Branch:    branch,
		GoVersion: runtime.Version(),
	}
	existing, err := Load(path)
	switch {
	case err == nil:
		summary.Results = existing.Results
	case !errors.Is(err, os.ErrNotExist):
		return err
	}
	summary.Results = append(summary.Results, r)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}
	return nil
}

func gitInfo(repoRoot string) (commitID, branch string) {
	commitID, branch = "local", "dev"
	head, err := os.ReadFile(filepath.Join(repoRoot, ".git", "HEAD"))
	if err != nil {
		return
	}
	content := strings.TrimSpace(string(head))
	if !strings.HasPrefix(content, "ref: ") {
		// detached HEAD holds the commit itself
		return truncate(content, 8), branch
	}
	ref := strings.TrimPrefix(content, "ref: ")
	branch = strings.TrimPrefix(ref, "refs/heads/")
	if data, err := os.ReadFile(filepath.Join(repoRoot, ".git", ref)); err == nil {
		commitID = truncate(strings.TrimSpace(string(data)), 8)
	}
	return
}

// Compare matches current results to base results by name. Benchmarks
// missing from base are skipped. The most severe comparisons come first.
func Compare(base, current Summary) Comparison {
	baseResults := make(map[string]Result, len(base.Results))
	for _, r := range base.Results {
		baseResults[r.Name] = r
	}

	out := Comparison{
		BaseCommit:           base.CommitID,
		CurrentCommit:        current.CommitID,
		BenchmarkComparisons: []BenchmarkComparison{},
	}
	for _, cur := range current.Results {
		b, found := baseResults[cur.Name]
		if !found {
			continue
		}
		bc := compareResult(b, cur)
		switch bc.OverallAssessment {
		case "REGRESSION":
			out.RegressionBenchmarks++
			out.SignificantRegressions++
		case "IMPROVEMENT":
			out.ImprovedBenchmarks++
		}
		out.BenchmarkComparisons = append(out.BenchmarkComparisons, bc)
	}
	out.TotalBenchmarks = len(out.BenchmarkComparisons)

	sort.SliceStable(out.BenchmarkComparisons, func(i, j int) bool {
		a, b := out.BenchmarkComparisons[i], out.BenchmarkComparisons[j]
		if a.HasRegressions != b.HasRegressions {
			return a.HasRegressions
		}
		return a.Score < b.Score
	})
	return out
}

func compareResult(base, cur Result) BenchmarkComparison {
	bc := BenchmarkComparison{
		Name:              cur.Name,
		Category:          cur.Category,
		MetricComparisons: []MetricComparison{},
	}

	names := make([]string, 0, len(cur.Metrics))
	for name := range cur.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	score := 0.0
	for _, name := range names {
		baseValue, found := base.Metrics[name]
		if !found {
			continue
		}
		mc := compareMetric(name, baseValue, cur.Metrics[name])
		if mc.IsRegression && mc.IsSignificant {
			bc.HasRegressions = true
		}
		switch {
		case mc.IsImprovement:
			score += abs(mc.PercentChange)
		case mc.IsRegression:
			score -= abs(mc.PercentChange)
		}
		bc.MetricComparisons = append(bc.MetricComparisons, mc)
	}
	if n := len(bc.MetricComparisons); n > 0 {
		bc.Score = score / float64(n)
	}

	switch {
	case bc.HasRegressions:
		bc.OverallAssessment = "REGRESSION"
	case bc.Score > 0:
		bc.OverallAssessment = "IMPROVEMENT"
	default:
		bc.OverallAssessment = "NEUTRAL"
	}
	return bc
}

func compareMetric(name string, base, cur float64) MetricComparison {
	mc := MetricComparison{Name: name, BaseValue: base, CurrentValue: cur}
	if base != 0 {
		mc.PercentChange = (cur - base) / base * 100
	}
	if HigherIsBetter(name) {
		mc.IsRegression = mc.PercentChange < 0
		mc.IsImprovement = mc.PercentChange > 0
	} else {
		mc.IsRegression = mc.PercentChange > 0
		mc.IsImprovement = mc.PercentChange < 0
	}
	mc.IsSignificant = abs(mc.PercentChange) >= SignificanceThreshold
	return mc
}

// HigherIsBetter reports whether a larger value of the metric is an
// improvement. Rates are; latencies, sizes and allocations are not.
func HigherIsBetter(metric string) bool {
	for _, pattern := range []string{
		"ops_per_sec", "operations", "insertion_rate", "lookup_rate",
		"rate_", "_rate", "throughput",
	} {
		if strings.Contains(metric, pattern) {
			return true
		}
	}
	return false
}

// Print writes a human-readable report of c.
func Print(w io.Writer, c Comparison) {
	fmt.Fprintf(w, "Benchmark Comparison: %s vs %s\n\n", truncate(c.BaseCommit, 8), truncate(c.CurrentCommit, 8))
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "- Total benchmarks compared: %d\n", c.TotalBenchmarks)
	fmt.Fprintf(w, "- Improvements: %d\n", c.ImprovedBenchmarks)
	fmt.Fprintf(w, "- Regressions: %d (significant: %d)\n\n", c.RegressionBenchmarks, c.SignificantRegressions)

	if c.TotalBenchmarks == 0 {
		fmt.Fprintln(w, "No matching benchmarks found for comparison")
		return
	}

	for _, bc := range c.BenchmarkComparisons {
		fmt.Fprintf(w, "%s %s (%s):\n", bc.OverallAssessment, bc.Name, bc.Category)

		metrics := append([]MetricComparison(nil), bc.MetricComparisons...)
		sort.SliceStable(metrics, func(i, j int) bool {
			return abs(metrics[i].PercentChange) > abs(metrics[j].PercentChange)
		})
		for _, m := range metrics {
			if m.PercentChange == 0 {
				continue
			}
			indicator := " "
			if m.IsRegression && m.IsSignificant {
				indicator = "v"
			} else if m.IsImprovement && m.IsSignificant {
				indicator = "^"
			}
			fmt.Fprintf(w, "  %s %-24s: %+8.2f%% (%g -> %g)\n", indicator, m.Name, m.PercentChange, m.BaseValue, m.CurrentValue)
		}
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
