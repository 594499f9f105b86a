package rehash

// Map is the get/put/remove/len surface shared by every table in this
// package. Trial harnesses and baselines are written against it.
type Map[K comparable, V any] interface {
	Get(k K) (V, bool)
	Put(k K, v V)
	Remove(k K) (V, bool)
	Len() int
}

// ChainStats describes how entries are distributed over bucket chains.
type ChainStats struct {
	Buckets   int
	Entries   int
	MaxLength int
	// AverageSearch is the mean number of entries inspected to find a
	// stored key: an entry at chain position p costs p.
	AverageSearch float64
	// Lengths maps a chain length to the number of buckets with that
	// length, empty buckets included.
	Lengths map[int]int
}

// Stats is a point-in-time snapshot of a table.
type Stats struct {
	Entries   int
	Buckets   int
	Threshold float64
	// Resizes counts full rehashes or migration windows opened.
	Resizes uint64
	// Migrated counts entries relinked into a larger generation.
	Migrated uint64

	Migrating   bool
	PrevBuckets int
	PrevEntries int
	Cursor      int
}

func chainStats[K comparable, V any](gens ...*generation[K, V]) ChainStats {
	cs := ChainStats{Lengths: make(map[int]int)}
	search := 0
	for _, g := range gens {
		if g == nil {
			continue
		}
		cs.Buckets += len(g.buckets)
		for _, e := range g.buckets {
			n := 0
			for ; e != nil; e = e.next {
				n++
				search += n
			}
			cs.Entries += n
			cs.Lengths[n]++
			cs.MaxLength = max(cs.MaxLength, n)
		}
	}
	if cs.Entries > 0 {
		cs.AverageSearch = float64(search) / float64(cs.Entries)
	}
	return cs
}
