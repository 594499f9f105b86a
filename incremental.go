package rehash

import (
	"fmt"
	"iter"
	"log/slog"
)

// IncrementalTable is a chained hash table that grows without a full
// rehash. When the entry count reaches the threshold the bucket array is
// retired to a previous generation and a new one of 2M+1 buckets takes its
// place. Every later Put that adds a key relinks up to batch entries from
// the previous generation into the current one, and the previous generation
// is dropped once it is drained.
//
// While a migration window is open, lookups may consult both generations.
// A key is always stored in exactly one of them.
//
// An IncrementalTable is not safe for concurrent use. Callers sharing one
// across goroutines must serialize every call, since Put also runs the
// migration step.
type IncrementalTable[K comparable, V any] struct {
	cur  *generation[K, V]
	prev *generation[K, V]
	// cursor is the next bucket of prev to drain.
	cursor int
	batch  int

	hash       Hasher[K]
	loadFactor float64
	log        *slog.Logger

	resizes  uint64
	migrated uint64
}

// Migration describes the open migration window, if any.
type Migration struct {
	Active      bool
	PrevBuckets int
	PrevEntries int
	Cursor      int
	// Remaining is the number of previous-generation buckets not yet drained.
	Remaining int
}

// NewIncrementalTable creates a table with m initial buckets that migrates
// up to batch entries per Put while resizing. Both must be at least 1.
func NewIncrementalTable[K comparable, V any](m, batch int, opts ...Option) (*IncrementalTable[K, V], error) {
	if err := checkBuckets(m); err != nil {
		return nil, err
	}
	if batch < 1 {
		return nil, fmt.Errorf("%w: batch size must be at least 1, got %d", ErrInvalidConfiguration, batch)
	}
	s, err := buildSettings[K](opts)
	if err != nil {
		return nil, err
	}
	g := newGeneration[K, V](m)
	g.threshold = initialThreshold(s.loadFactor, m)
	return &IncrementalTable[K, V]{
		cur:        g,
		batch:      batch,
		hash:       s.hash,
		loadFactor: s.loadFactor,
		log:        s.log,
	}, nil
}

// Get returns the value stored for k in either generation.
func (t *IncrementalTable[K, V]) Get(k K) (V, bool) {
	h := t.hash(k)
	if e := t.cur.find(t.cur.slot(h), k); e != nil {
		return e.value, true
	}
	if t.prev != nil {
		if e := t.prev.find(t.prev.slot(h), k); e != nil {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// Put stores v for k. Overwrites happen in place in whichever generation
// holds k and do no migration work. A new key is prepended to the current
// generation, after which the table either opens a migration window (count
// reached threshold, no window open) or drains up to batch entries.
func (t *IncrementalTable[K, V]) Put(k K, v V) {
	h := t.hash(k)
	idx := t.cur.slot(h)
	if e := t.cur.find(idx, k); e != nil {
		e.value = v
		return
	}
	if t.prev != nil {
		if e := t.prev.find(t.prev.slot(h), k); e != nil {
			e.value = v
			return
		}
	}

	t.cur.insert(idx, k, v)
	switch {
	case t.prev == nil && float64(t.cur.count) >= t.cur.threshold:
		t.grow()
	case t.prev != nil:
		t.drain()
	}
}

// grow retires the current generation and installs an empty one of 2M+1
// buckets. No entries move here.
func (t *IncrementalTable[K, V]) grow() {
	old := t.cur
	m := nextSize(len(old.buckets))
	t.prev = old
	t.cursor = 0
	t.cur = newGeneration[K, V](m)
	t.cur.threshold = t.loadFactor * float64(m)
	t.resizes++
	t.log.Debug("migration window opened",
		"old_buckets", len(old.buckets),
		"new_buckets", m,
		"entries", old.count,
	)
}

// drain relinks up to batch entries from prev into cur, starting at the
// cursor. Empty buckets are skipped free of charge.
func (t *IncrementalTable[K, V]) drain() {
	p := t.prev
	budget := t.batch
	for budget > 0 && t.cursor < len(p.buckets) {
		for budget > 0 {
			e := p.pop(t.cursor)
			if e == nil {
				break
			}
			t.cur.link(t.cur.slot(t.hash(e.key)), e)
			t.migrated++
			budget--
		}
		if p.buckets[t.cursor] == nil {
			t.cursor++
		}
	}
	if t.cursor == len(p.buckets) || p.count == 0 {
		t.release()
	}
}

func (t *IncrementalTable[K, V]) release() {
	t.log.Debug("migration window closed",
		"old_buckets", len(t.prev.buckets),
		"new_buckets", len(t.cur.buckets),
		"entries", t.cur.count,
	)
	t.prev = nil
	t.cursor = 0
}

// Remove deletes k from whichever generation holds it and returns the
// value it held. A key still waiting in the previous generation is
// removable; if that empties the previous generation the window closes.
func (t *IncrementalTable[K, V]) Remove(k K) (V, bool) {
	h := t.hash(k)
	if e := t.cur.unlink(t.cur.slot(h), k); e != nil {
		return e.value, true
	}
	if t.prev != nil {
		if e := t.prev.unlink(t.prev.slot(h), k); e != nil {
			if t.prev.count == 0 {
				t.release()
			}
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// Len returns the number of entries in the current generation. Entries not
// yet migrated out of the previous generation are not counted; see Total.
func (t *IncrementalTable[K, V]) Len() int { return t.cur.count }

// Total returns the number of entries across both generations.
func (t *IncrementalTable[K, V]) Total() int {
	if t.prev == nil {
		return t.cur.count
	}
	return t.cur.count + t.prev.count
}

// Buckets returns the bucket count of the current generation.
func (t *IncrementalTable[K, V]) Buckets() int { return len(t.cur.buckets) }

func (t *IncrementalTable[K, V]) Migration() Migration {
	if t.prev == nil {
		return Migration{}
	}
	return Migration{
		Active:      true,
		PrevBuckets: len(t.prev.buckets),
		PrevEntries: t.prev.count,
		Cursor:      t.cursor,
		Remaining:   len(t.prev.buckets) - t.cursor,
	}
}

// All yields every entry of the current generation, then every entry still
// in the previous one. The table must not be modified during iteration.
func (t *IncrementalTable[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if !t.cur.all(yield) || t.prev == nil {
			return
		}
		t.prev.all(yield)
	}
}

// Chains reports the chain length distribution over both generations.
func (t *IncrementalTable[K, V]) Chains() ChainStats { return chainStats(t.cur, t.prev) }

func (t *IncrementalTable[K, V]) Stats() Stats {
	m := t.Migration()
	return Stats{
		Entries:     t.cur.count,
		Buckets:     len(t.cur.buckets),
		Threshold:   t.cur.threshold,
		Resizes:     t.resizes,
		Migrated:    t.migrated,
		Migrating:   m.Active,
		PrevBuckets: m.PrevBuckets,
		PrevEntries: m.PrevEntries,
		Cursor:      m.Cursor,
	}
}
