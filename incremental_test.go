package rehash

import (
	"bytes"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityHash(k int) uint64 { return uint64(k) }

// checkInvariants walks both generations and verifies the bookkeeping the
// table relies on.
func checkInvariants[V any](t *testing.T, tbl *IncrementalTable[int, V]) map[int]V {
	t.Helper()

	seen := make(map[int]V)
	walk := func(g *generation[int, V], name string) {
		n := 0
		for i, e := range g.buckets {
			for ; e != nil; e = e.next {
				n++
				require.Equal(t, i, g.slot(tbl.hash(e.key)), "%s: key %d in wrong bucket", name, e.key)
				_, dup := seen[e.key]
				require.False(t, dup, "key %d stored twice", e.key)
				seen[e.key] = e.value
			}
		}
		require.Equal(t, g.count, n, "%s count", name)
	}

	walk(tbl.cur, "current")
	if tbl.prev != nil {
		walk(tbl.prev, "previous")
		require.GreaterOrEqual(t, tbl.cursor, 0)
		require.Less(t, tbl.cursor, len(tbl.prev.buckets))
		require.Positive(t, tbl.prev.count)
		for i := 0; i < tbl.cursor; i++ {
			require.Nil(t, tbl.prev.buckets[i], "bucket %d behind cursor not drained", i)
		}
	}
	return seen
}

func TestIncrementalInvalidConfiguration(t *testing.T) {
	testCases := []struct {
		name           string
		buckets, batch int
	}{
		{"Zero_Buckets", 0, 1},
		{"Negative_Buckets", -3, 1},
		{"Zero_Batch", 3, 0},
		{"Negative_Batch", 3, -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewIncrementalTable[int, int](tc.buckets, tc.batch)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

// TestIncrementalMigrationScenario walks a three-bucket table with a batch
// of one through a full migration window.
func TestIncrementalMigrationScenario(t *testing.T) {
	tbl, err := NewIncrementalTable[int, string](3, 1, WithHasher(identityHash))
	require.NoError(t, err)
	assert.Equal(t, 2.0, tbl.cur.threshold)

	// 0 and 3 collide in bucket 0; the second insert reaches the threshold.
	tbl.Put(0, "zero")
	assert.Nil(t, tbl.prev)
	tbl.Put(3, "three")

	m := tbl.Migration()
	require.True(t, m.Active)
	assert.Equal(t, 3, m.PrevBuckets)
	assert.Equal(t, 2, m.PrevEntries)
	assert.Equal(t, 0, m.Cursor)
	assert.Equal(t, 7, tbl.Buckets())
	assert.InDelta(t, 0.75*7, tbl.cur.threshold, 1e-9)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, 2, tbl.Total())

	for k, want := range map[int]string{0: "zero", 3: "three"} {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		assert.Equal(t, want, v)
	}

	// One entry moves per insert. 3 was prepended, so it leaves first.
	tbl.Put(1, "one")
	m = tbl.Migration()
	require.True(t, m.Active)
	assert.Equal(t, 0, m.Cursor)
	assert.Equal(t, 1, m.PrevEntries)
	assert.NotNil(t, tbl.cur.find(3, 3))

	tbl.Put(2, "two")
	assert.False(t, tbl.Migration().Active)
	assert.Nil(t, tbl.prev)
	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, 4, tbl.Total())

	for k, want := range map[int]string{0: "zero", 1: "one", 2: "two", 3: "three"} {
		e := tbl.cur.find(tbl.cur.slot(uint64(k)), k)
		require.NotNil(t, e, "key %d not in current generation", k)
		assert.Equal(t, want, e.value)
	}
	assert.Equal(t, uint64(1), tbl.Stats().Resizes)
	assert.Equal(t, uint64(2), tbl.Stats().Migrated)
}

func TestIncrementalOverwriteInPrevious(t *testing.T) {
	tbl, err := NewIncrementalTable[int, string](3, 1, WithHasher(identityHash))
	require.NoError(t, err)
	tbl.Put(0, "zero")
	tbl.Put(3, "three")
	require.NotNil(t, tbl.prev)

	// Overwrites stay where the key lives and do no migration work.
	tbl.Put(0, "ZERO")
	assert.Equal(t, 0, tbl.cursor)
	assert.Equal(t, 2, tbl.prev.count)
	assert.NotNil(t, tbl.prev.find(0, 0))
	assert.Equal(t, 0, tbl.Len())

	v, ok := tbl.Get(0)
	require.True(t, ok)
	assert.Equal(t, "ZERO", v)
	checkInvariants(t, tbl)
}

// TestIncrementalRemoveFromPrevious covers keys that have not been migrated
// yet: Get sees them and Remove deletes them.
func TestIncrementalRemoveFromPrevious(t *testing.T) {
	tbl, err := NewIncrementalTable[int, string](3, 1, WithHasher(identityHash))
	require.NoError(t, err)
	tbl.Put(0, "zero")
	tbl.Put(3, "three")
	require.NotNil(t, tbl.prev)
	require.Nil(t, tbl.cur.find(0, 0))

	v, ok := tbl.Get(0)
	require.True(t, ok)
	assert.Equal(t, "zero", v)

	v, ok = tbl.Remove(0)
	require.True(t, ok)
	assert.Equal(t, "zero", v)
	assert.Equal(t, 1, tbl.Total())

	_, ok = tbl.Get(0)
	assert.False(t, ok)
	_, ok = tbl.Remove(0)
	assert.False(t, ok)

	// Removing the last unmigrated key closes the window.
	_, ok = tbl.Remove(3)
	require.True(t, ok)
	assert.Nil(t, tbl.prev)
	assert.Equal(t, 0, tbl.Total())
}

func TestIncrementalThresholdWhileMigrating(t *testing.T) {
	tbl, err := NewIncrementalTable[int, int](3, 1, WithHasher(identityHash))
	require.NoError(t, err)

	deferred := 0
	for k := 0; k < 200; k++ {
		hadWindow := tbl.prev != nil
		reached := float64(tbl.cur.count+1) >= tbl.cur.threshold
		resizes := tbl.resizes

		tbl.Put(k, k)
		if hadWindow {
			require.Equal(t, resizes, tbl.resizes, "window opened while another was active")
			if reached {
				deferred++
			}
		}
		checkInvariants(t, tbl)
	}
	require.Positive(t, deferred, "threshold never reached during a window")

	for k := 0; k < 200; k++ {
		v, ok := tbl.Get(k)
		require.True(t, ok, "key %d", k)
		assert.Equal(t, k, v)
	}
}

func TestIncrementalLogsWindow(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tbl, err := NewIncrementalTable[int, int](3, 8, WithHasher(identityHash), WithLogger(l))
	require.NoError(t, err)
	tbl.Put(0, 0)
	tbl.Put(1, 1)
	assert.Contains(t, buf.String(), `"msg":"migration window opened"`)

	tbl.Put(2, 2)
	assert.Contains(t, buf.String(), `"msg":"migration window closed"`)
}

func TestIncrementalAllAndChains(t *testing.T) {
	tbl, err := NewIncrementalTable[int, int](3, 1, WithHasher(identityHash))
	require.NoError(t, err)
	tbl.Put(0, 0)
	tbl.Put(3, 3)
	tbl.Put(1, 1)
	require.NotNil(t, tbl.prev)

	got := make(map[int]int)
	for k, v := range tbl.All() {
		got[k] = v
	}
	assert.Equal(t, map[int]int{0: 0, 1: 1, 3: 3}, got)

	cs := tbl.Chains()
	assert.Equal(t, 10, cs.Buckets)
	assert.Equal(t, 3, cs.Entries)
	assert.Equal(t, 1, cs.MaxLength)
}

// TestIncrementalRandomOperations runs a random workload against a map and
// checks the table's invariants after every step.
func TestIncrementalRandomOperations(t *testing.T) {
	for _, batch := range []int{1, 2, 5, 10} {
		rng := rand.New(rand.NewPCG(42, uint64(batch)))
		hash := func(k int) uint64 { return uint64(k % 97) }
		tbl, err := NewIncrementalTable[int, int](5, batch, WithHasher(hash))
		require.NoError(t, err)

		want := make(map[int]int)
		lastCursor := 0
		windowPuts := 0
		windowBuckets := 0

		for step := 0; step < 5000; step++ {
			k := rng.IntN(400)
			switch op := rng.IntN(10); {
			case op < 6:
				before := tbl.Total()
				hadWindow := tbl.prev != nil
				resizes := tbl.resizes
				oldBuckets := tbl.Buckets()

				tbl.Put(k, step)
				want[k] = step

				if tbl.resizes != resizes {
					require.Equal(t, 2*oldBuckets+1, tbl.Buckets())
					require.InDelta(t, tbl.loadFactor*float64(tbl.Buckets()), tbl.cur.threshold, 1e-9)
					windowPuts = 0
					windowBuckets = oldBuckets
					lastCursor = 0
				} else if hadWindow && tbl.Total() > before {
					windowPuts++
				}
				if tbl.prev != nil {
					limit := (windowBuckets + batch - 1) / batch
					require.Less(t, windowPuts, limit, "window outlived its bound")
				}
			case op < 9:
				v, ok := tbl.Get(k)
				wv, wok := want[k]
				require.Equal(t, wok, ok, "get %d", k)
				require.Equal(t, wv, v)
			default:
				v, ok := tbl.Remove(k)
				wv, wok := want[k]
				require.Equal(t, wok, ok, "remove %d", k)
				require.Equal(t, wv, v)
				delete(want, k)
			}

			if tbl.prev != nil {
				require.GreaterOrEqual(t, tbl.cursor, lastCursor, "cursor moved backwards")
				lastCursor = tbl.cursor
			}
			got := checkInvariants(t, tbl)
			require.Equal(t, want, got)
			require.Equal(t, len(want), tbl.Total())
		}
		require.Positive(t, tbl.resizes)
	}
}
