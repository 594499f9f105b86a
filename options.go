package rehash

import (
	"fmt"
	"log/slog"
)

// DefaultLoadFactor is the ratio of entries to buckets at which the
// resizing tables grow.
const DefaultLoadFactor = 0.75

// Config holds the settings shared by every table constructor.
type Config struct {
	// hasher is a Hasher[K] stored untyped so options need no type parameter.
	hasher     any
	loadFactor float64
	logger     *slog.Logger
}

// Option configures a table.
type Option func(*Config)

// WithHasher replaces the default key hash function.
//
//	t, err := rehash.NewIncrementalTable[string, int](1023, 10,
//		rehash.WithHasher(func(s string) uint64 { return uint64(len(s)) }))
func WithHasher[K comparable](h func(K) uint64) Option {
	return func(c *Config) {
		if h != nil {
			c.hasher = Hasher[K](h)
		}
	}
}

// WithLoadFactor sets the ratio of entries to buckets that triggers growth.
// It must be in (0, 1].
func WithLoadFactor(lf float64) Option {
	return func(c *Config) {
		c.loadFactor = lf
	}
}

// WithLogger sets the logger that receives resize events at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.logger = l
		}
	}
}

type settings[K comparable] struct {
	hash       Hasher[K]
	loadFactor float64
	log        *slog.Logger
}

func buildSettings[K comparable](opts []Option) (settings[K], error) {
	c := Config{loadFactor: DefaultLoadFactor}
	for _, apply := range opts {
		apply(&c)
	}

	s := settings[K]{loadFactor: c.loadFactor, log: c.logger}
	if !(s.loadFactor > 0 && s.loadFactor <= 1) {
		return s, fmt.Errorf("%w: load factor must be in (0, 1], got %g", ErrInvalidConfiguration, s.loadFactor)
	}
	if c.hasher == nil {
		s.hash = DefaultHasher[K]()
	} else {
		h, ok := c.hasher.(Hasher[K])
		if !ok {
			return s, fmt.Errorf("%w: hasher %T does not match key type", ErrInvalidConfiguration, c.hasher)
		}
		s.hash = h
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

func checkBuckets(m int) error {
	if m < 1 {
		return fmt.Errorf("%w: bucket count must be at least 1, got %d", ErrInvalidConfiguration, m)
	}
	return nil
}
