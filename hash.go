package rehash

import (
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
)

// Hasher maps a key to a 64-bit hash. It must return the same value for a
// key for as long as that key is stored in a table.
type Hasher[K comparable] func(K) uint64

// StringHasher hashes strings with xxhash.
func StringHasher(s string) uint64 {
	return xxhash.Sum64String(s)
}

// DefaultHasher returns xxhash for string keys and a seeded maphash for any
// other comparable key type. Each call draws a fresh maphash seed.
func DefaultHasher[K comparable]() Hasher[K] {
	var zero K
	if _, ok := any(zero).(string); ok {
		return func(k K) uint64 {
			return xxhash.Sum64String(any(k).(string))
		}
	}
	seed := maphash.MakeSeed()
	return func(k K) uint64 {
		return maphash.Comparable(seed, k)
	}
}
