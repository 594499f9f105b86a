package rehash

import (
	"iter"
	"log/slog"
)

// DynamicTable is a chained hash table that grows to 2M+1 buckets once the
// entry count reaches its threshold. Growth rehashes every entry before the
// triggering Put returns, so that Put costs O(M).
//
// A DynamicTable is not safe for concurrent use.
type DynamicTable[K comparable, V any] struct {
	gen        *generation[K, V]
	hash       Hasher[K]
	loadFactor float64
	log        *slog.Logger

	resizes  uint64
	migrated uint64
}

// NewDynamicTable creates a table with m initial buckets. m must be at
// least 1. The first resize fires at min(loadFactor*m, m-1) entries.
func NewDynamicTable[K comparable, V any](m int, opts ...Option) (*DynamicTable[K, V], error) {
	if err := checkBuckets(m); err != nil {
		return nil, err
	}
	s, err := buildSettings[K](opts)
	if err != nil {
		return nil, err
	}
	g := newGeneration[K, V](m)
	g.threshold = initialThreshold(s.loadFactor, m)
	return &DynamicTable[K, V]{
		gen:        g,
		hash:       s.hash,
		loadFactor: s.loadFactor,
		log:        s.log,
	}, nil
}

func (t *DynamicTable[K, V]) Get(k K) (V, bool) {
	if e := t.gen.find(t.gen.slot(t.hash(k)), k); e != nil {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Put stores v for k. Adding a new key may trigger a full rehash.
func (t *DynamicTable[K, V]) Put(k K, v V) {
	idx := t.gen.slot(t.hash(k))
	if e := t.gen.find(idx, k); e != nil {
		e.value = v
		return
	}
	t.gen.insert(idx, k, v)
	if float64(t.gen.count) >= t.gen.threshold {
		t.resize(nextSize(len(t.gen.buckets)))
	}
}

// resize relinks every entry into a fresh generation of m buckets and
// drops the old one.
func (t *DynamicTable[K, V]) resize(m int) {
	old := t.gen
	g := newGeneration[K, V](m)
	g.threshold = t.loadFactor * float64(m)
	for i := range old.buckets {
		for e := old.pop(i); e != nil; e = old.pop(i) {
			g.link(g.slot(t.hash(e.key)), e)
		}
	}
	t.gen = g
	t.resizes++
	t.migrated += uint64(g.count)
	t.log.Debug("table resized",
		"old_buckets", len(old.buckets),
		"new_buckets", m,
		"entries", g.count,
	)
}

func (t *DynamicTable[K, V]) Remove(k K) (V, bool) {
	if e := t.gen.unlink(t.gen.slot(t.hash(k)), k); e != nil {
		return e.value, true
	}
	var zero V
	return zero, false
}

func (t *DynamicTable[K, V]) Len() int { return t.gen.count }

func (t *DynamicTable[K, V]) Buckets() int { return len(t.gen.buckets) }

// All yields every entry in bucket order. The table must not be modified
// during iteration.
func (t *DynamicTable[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		t.gen.all(yield)
	}
}

func (t *DynamicTable[K, V]) Chains() ChainStats { return chainStats(t.gen) }

func (t *DynamicTable[K, V]) Stats() Stats {
	return Stats{
		Entries:   t.gen.count,
		Buckets:   len(t.gen.buckets),
		Threshold: t.gen.threshold,
		Resizes:   t.resizes,
		Migrated:  t.migrated,
	}
}
