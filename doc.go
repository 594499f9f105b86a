/*
Package rehash provides separate-chaining hash tables, ending in one that
resizes incrementally so that no single insert pays for a full rehash.

Three tables share the same Get/Put/Remove/Len surface:

  - Table: a fixed array of M bucket chains. It never resizes.
  - DynamicTable: grows to 2M+1 buckets once the entry count reaches its
    threshold, rehashing every entry inside the Put that crossed it.
  - IncrementalTable: grows to 2M+1 buckets but moves entries lazily. The
    old bucket array stays around as a previous generation and each later
    Put that adds a key relinks a fixed batch of its entries.

Basic usage:

	import "github.com/theflywheel/rehash"

	t, err := rehash.NewIncrementalTable[string, int](1023, 10)
	if err != nil {
		log.Fatal(err)
	}

	t.Put("apple", 1)
	t.Put("apple", 2) // overwrite in place

	if v, ok := t.Get("apple"); ok {
		fmt.Println("Value:", v)
	}

	v, ok := t.Remove("apple")

Features:

  - Generic keys and values; any comparable key type
  - xxhash for string keys, seeded maphash for everything else, or a
    caller-supplied Hasher via WithHasher
  - Growth at a load factor of 0.75 (WithLoadFactor), to 2M+1 buckets
  - Bounded migration work per Put for IncrementalTable
  - Chain length statistics and runtime snapshots for reporting

Implementation Details:

Buckets hold singly linked chains. New keys are prepended, so the most
recently inserted key in a bucket is found first, and overwrites change
the value without reordering the chain.

The first resize threshold is min(loadFactor*M, M-1), which guarantees a
resize no later than full saturation. Thresholds set at resize time are
loadFactor*M without that cap.

During an IncrementalTable migration window the previous generation is
drained from bucket 0 upwards. Each drain step skips empty buckets at no
cost and relinks at most batch entries, recomputing each key's bucket
against the new size. When the cursor passes the last bucket, or nothing
is left to move, the previous generation is released. A window lasts at
most ceil(M/batch) inserting Puts and a second window never opens until
the first has closed.

None of the tables are safe for concurrent use.
*/
package rehash
