// Package metrics exposes table snapshots as Prometheus metrics.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/theflywheel/rehash"
)

// Source is anything that can report a table snapshot.
type Source interface {
	Stats() rehash.Stats
}

// Collector reports one or more named tables. Each scrape reads a fresh
// snapshot, so callers must not scrape while a table is being modified.
type Collector struct {
	sources map[string]Source

	entries     *prometheus.Desc
	buckets     *prometheus.Desc
	threshold   *prometheus.Desc
	resizes     *prometheus.Desc
	migrated    *prometheus.Desc
	migrating   *prometheus.Desc
	prevEntries *prometheus.Desc
	prevBuckets *prometheus.Desc
}

func NewCollector() *Collector {
	labels := []string{"table"}
	return &Collector{
		sources:     make(map[string]Source),
		entries:     prometheus.NewDesc("rehash_entries", "Entries in the current generation", labels, nil),
		buckets:     prometheus.NewDesc("rehash_buckets", "Buckets in the current generation", labels, nil),
		threshold:   prometheus.NewDesc("rehash_threshold", "Entry count that triggers the next resize", labels, nil),
		resizes:     prometheus.NewDesc("rehash_resizes_total", "Resizes performed", labels, nil),
		migrated:    prometheus.NewDesc("rehash_migrated_entries_total", "Entries relinked into a larger generation", labels, nil),
		migrating:   prometheus.NewDesc("rehash_migrating", "1 while a migration window is open", labels, nil),
		prevEntries: prometheus.NewDesc("rehash_previous_entries", "Entries waiting in the previous generation", labels, nil),
		prevBuckets: prometheus.NewDesc("rehash_previous_buckets", "Buckets of the previous generation", labels, nil),
	}
}

// Add registers a table under name, replacing any table already there.
func (c *Collector) Add(name string, s Source) {
	c.sources[name] = s
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.entries, c.buckets, c.threshold, c.resizes,
		c.migrated, c.migrating, c.prevEntries, c.prevBuckets,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for name, s := range c.sources {
		st := s.Stats()
		migrating := 0.0
		if st.Migrating {
			migrating = 1
		}
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Entries), name)
		ch <- prometheus.MustNewConstMetric(c.buckets, prometheus.GaugeValue, float64(st.Buckets), name)
		ch <- prometheus.MustNewConstMetric(c.threshold, prometheus.GaugeValue, st.Threshold, name)
		ch <- prometheus.MustNewConstMetric(c.resizes, prometheus.CounterValue, float64(st.Resizes), name)
		ch <- prometheus.MustNewConstMetric(c.migrated, prometheus.CounterValue, float64(st.Migrated), name)
		ch <- prometheus.MustNewConstMetric(c.migrating, prometheus.GaugeValue, migrating, name)
		ch <- prometheus.MustNewConstMetric(c.prevEntries, prometheus.GaugeValue, float64(st.PrevEntries), name)
		ch <- prometheus.MustNewConstMetric(c.prevBuckets, prometheus.GaugeValue, float64(st.PrevBuckets), name)
	}
}

// WriteText gathers reg and writes it in the Prometheus text format.
func WriteText(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}
