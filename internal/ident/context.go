package ident

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Observer receives intern table events. Implemented by metrics.Metrics.
type Observer interface {
	StaticHit()
	StaticMiss()
}

// Config configures a Context.
type Config struct {
	// StrictBounds makes out-of-bounds GetName/GetSubname panic instead of
	// returning the empty Name.
	StrictBounds bool

	// Logger receives bounds warnings and lifecycle messages. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Observer is notified of static table hits and misses. Optional.
	Observer Observer
}

// Stats is a snapshot of the static intern table.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Context owns process-level string state: the static literal table and
// the bounds policy.
//
// Thread-safety: all methods are safe for concurrent use. Static lookups
// take a read lock; inserts double-check under the write lock so a race to
// intern one literal stores a single entry.
type Context struct {
	mu     sync.RWMutex
	static map[staticKey]Name

	hits   atomic.Int64
	misses atomic.Int64

	bounds   BoundsPolicy
	logger   *slog.Logger
	observer Observer
}

// NewContext creates a Context.
func NewContext(cfg Config) *Context {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		static:   make(map[staticKey]Name),
		bounds:   BoundsPolicy{Strict: cfg.StrictBounds, Logger: logger},
		logger:   logger,
		observer: cfg.Observer,
	}
}

var (
	defaultOnce sync.Once
	defaultCtx  *Context
)

// Default returns the process Context, creating it on first use with
// relaxed bounds.
func Default() *Context {
	defaultOnce.Do(func() {
		defaultCtx = NewContext(Config{})
	})
	return defaultCtx
}

// DiscardLogger returns a logger that drops everything. Useful for tests
// that exercise relaxed bounds.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staticKey keys the static table. C-string and Go-string literals with the
// same bytes decode differently, so they are cached apart.
type staticKey struct {
	cstr bool
	lit  string
}

// Static returns the Name for a C-string literal (Latin-1, null-terminated).
//
// The decoded Name is cached by the literal's raw bytes, so repeated calls
// with the same literal skip decoding. The result is indistinguishable from
// NameFromCStr(lit).
func (c *Context) Static(lit []byte) Name {
	return c.intern(staticKey{cstr: true, lit: string(lit)}, func() Name { return NameFromCStr(lit) })
}

// StaticString is Static for a UTF-8 Go string literal. The result is
// indistinguishable from NewName(lit).
func (c *Context) StaticString(lit string) Name {
	return c.intern(staticKey{lit: lit}, func() Name { return NewName(lit) })
}

func (c *Context) intern(key staticKey, build func() Name) Name {
	c.mu.RLock()
	n, ok := c.static[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		if c.observer != nil {
			c.observer.StaticHit()
		}
		return n
	}

	n = build()

	c.mu.Lock()
	if existing, ok := c.static[key]; ok {
		n = existing
	} else {
		c.static[key] = n
	}
	c.mu.Unlock()

	c.misses.Add(1)
	if c.observer != nil {
		c.observer.StaticMiss()
	}
	return n
}

// Bounds returns the Context's bounds policy.
func (c *Context) Bounds() BoundsPolicy {
	return c.bounds
}

// GetName returns p's i-th name under the Context's bounds policy.
func (c *Context) GetName(p NodePath, i int) Name {
	return c.bounds.GetName(p, i)
}

// GetSubname returns p's i-th subname under the Context's bounds policy.
func (c *Context) GetSubname(p NodePath, i int) Name {
	return c.bounds.GetSubname(p, i)
}

// Stats returns a snapshot of the static table counters.
func (c *Context) Stats() Stats {
	c.mu.RLock()
	entries := len(c.static)
	c.mu.RUnlock()
	return Stats{
		Entries: entries,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// Close drops the static table. Names already handed out stay valid, and
// later Static calls repopulate the table. Safe to call more than once.
func (c *Context) Close() error {
	c.mu.Lock()
	dropped := len(c.static)
	c.static = make(map[staticKey]Name)
	c.mu.Unlock()

	c.logger.Debug("string context closed", "dropped_entries", dropped)
	return nil
}
