// Package corpus supplies key lists for resize trials.
package corpus

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"lukechampine.com/frand"
)

// Load reads one word per line from path. Blank lines are skipped and
// surrounding whitespace is trimmed. Duplicates are kept in file order.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	words, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
	}
	return words, nil
}

func Read(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" {
			continue
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

const (
	minWordLen = 3
	maxWordLen = 12
	letters    = "abcdefghijklmnopqrstuvwxyz"
)

// Synthetic returns n lowercase words drawn from a ChaCha stream seeded
// with seed. The same seed always yields the same list.
func Synthetic(n int, seed uint64) []string {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	rng := frand.NewCustom(key[:], 1024, 12)

	words := make([]string, n)
	buf := make([]byte, maxWordLen)
	for i := range words {
		l := minWordLen + rng.Intn(maxWordLen-minWordLen+1)
		for j := 0; j < l; j++ {
			buf[j] = letters[rng.Intn(len(letters))]
		}
		words[i] = string(buf[:l])
	}
	return words
}

// UUIDs returns n random version 4 UUID strings.
func UUIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids
}
