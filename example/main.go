package main

import (
	"fmt"
	"log"
	"os"

	"github.com/theflywheel/rehash"
	"github.com/theflywheel/rehash/internal/logger"
)

func main() {
	// Log every migration window as it opens and closes
	l := logger.New(logger.WithLevel(logger.LevelDebug), logger.WithWriter(os.Stdout), logger.WithHandler(logger.TextHandler))

	// Start small so the first resize comes quickly
	t, err := rehash.NewIncrementalTable[int, int](3, 1, rehash.WithLogger(l))
	if err != nil {
		log.Fatalf("Failed to create table: %v", err)
	}

	fmt.Println("Incremental table created with 3 buckets")

	// Insert some data, watching the migration window
	for i := 0; i < 10; i++ {
		t.Put(i, i*100)

		m := t.Migration()
		if m.Active {
			fmt.Printf("Put %d: %d buckets, %d entries still in the old %d buckets\n", i, t.Buckets(), m.PrevEntries, m.PrevBuckets)
		} else {
			fmt.Printf("Put %d: %d buckets\n", i, t.Buckets())
		}
	}

	// Retrieve and display some values
	for i := 0; i < 15; i += 2 {
		if v, found := t.Get(i); found {
			fmt.Printf("Key %d => Value %d\n", i, v)
		} else {
			fmt.Printf("Key %d not found\n", i)
		}
	}

	// Update a value
	t.Put(2, 999)
	if v, found := t.Get(2); found {
		fmt.Printf("Updated key 2 => Value %d\n", v)
	}

	// Remove a value
	if v, found := t.Remove(4); found {
		fmt.Printf("Removed key 4 (was %d)\n", v)
	}

	st := t.Stats()
	fmt.Printf("Entries: %d, buckets: %d, resizes: %d, migrated: %d\n", st.Entries, st.Buckets, st.Resizes, st.Migrated)
	fmt.Println("Example completed successfully")
}
