package rehash

import "iter"

// Table is a fixed-size separate-chaining hash table. It never resizes, so
// chains grow without bound as entries are added; lookups degrade linearly
// in exchange for the simplest possible insert path.
//
// A Table is not safe for concurrent use.
type Table[K comparable, V any] struct {
	gen  *generation[K, V]
	hash Hasher[K]
}

// NewTable creates a table with m buckets. m must be at least 1.
func NewTable[K comparable, V any](m int, opts ...Option) (*Table[K, V], error) {
	if err := checkBuckets(m); err != nil {
		return nil, err
	}
	s, err := buildSettings[K](opts)
	if err != nil {
		return nil, err
	}
	return &Table[K, V]{gen: newGeneration[K, V](m), hash: s.hash}, nil
}

// Get returns the value stored for k.
func (t *Table[K, V]) Get(k K) (V, bool) {
	if e := t.gen.find(t.gen.slot(t.hash(k)), k); e != nil {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Put stores v for k, overwriting in place when k is already present.
func (t *Table[K, V]) Put(k K, v V) {
	idx := t.gen.slot(t.hash(k))
	if e := t.gen.find(idx, k); e != nil {
		e.value = v
		return
	}
	t.gen.insert(idx, k, v)
}

// Remove deletes k and returns the value it held.
func (t *Table[K, V]) Remove(k K) (V, bool) {
	if e := t.gen.unlink(t.gen.slot(t.hash(k)), k); e != nil {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Len returns the number of stored entries.
func (t *Table[K, V]) Len() int { return t.gen.count }

// Buckets returns the bucket count.
func (t *Table[K, V]) Buckets() int { return len(t.gen.buckets) }

// All yields every entry in bucket order. The table must not be modified
// during iteration.
func (t *Table[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		t.gen.all(yield)
	}
}

// Chains reports the chain length distribution.
func (t *Table[K, V]) Chains() ChainStats { return chainStats(t.gen) }

func (t *Table[K, V]) Stats() Stats {
	return Stats{Entries: t.gen.count, Buckets: len(t.gen.buckets)}
}
