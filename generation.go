package rehash

// generation is one bucket array with its entry count and growth threshold.
type generation[K comparable, V any] struct {
	buckets   []*entry[K, V]
	count     int
	threshold float64
}

func newGeneration[K comparable, V any](m int) *generation[K, V] {
	return &generation[K, V]{buckets: make([]*entry[K, V], m)}
}

// slot is hash mod M for this generation's size.
func (g *generation[K, V]) slot(h uint64) int {
	return int(h % uint64(len(g.buckets)))
}

func (g *generation[K, V]) find(idx int, k K) *entry[K, V] {
	for e := g.buckets[idx]; e != nil; e = e.next {
		if e.key == k {
			return e
		}
	}
	return nil
}

// insert prepends a new entry, so the most recent key is found first.
func (g *generation[K, V]) insert(idx int, k K, v V) {
	g.buckets[idx] = &entry[K, V]{key: k, value: v, next: g.buckets[idx]}
	g.count++
}

// link prepends an entry that was unlinked from another chain.
func (g *generation[K, V]) link(idx int, e *entry[K, V]) {
	e.next = g.buckets[idx]
	g.buckets[idx] = e
	g.count++
}

// unlink removes the entry for k from its chain and returns it, or nil.
func (g *generation[K, V]) unlink(idx int, k K) *entry[K, V] {
	var prev *entry[K, V]
	for e := g.buckets[idx]; e != nil; prev, e = e, e.next {
		if e.key != k {
			continue
		}
		if prev == nil {
			g.buckets[idx] = e.next
		} else {
			prev.next = e.next
		}
		e.next = nil
		g.count--
		return e
	}
	return nil
}

// pop unlinks the head of bucket idx.
func (g *generation[K, V]) pop(idx int) *entry[K, V] {
	e := g.buckets[idx]
	if e == nil {
		return nil
	}
	g.buckets[idx] = e.next
	e.next = nil
	g.count--
	return e
}

func (g *generation[K, V]) all(yield func(K, V) bool) bool {
	for _, e := range g.buckets {
		for ; e != nil; e = e.next {
			if !yield(e.key, e.value) {
				return false
			}
		}
	}
	return true
}

// initialThreshold caps the threshold at M-1 so a freshly built table grows
// no later than full saturation.
func initialThreshold(loadFactor float64, m int) float64 {
	return min(loadFactor*float64(m), float64(m-1))
}

// nextSize is 2M+1: odd and strictly larger than M.
func nextSize(m int) int {
	return 2*m + 1
}
