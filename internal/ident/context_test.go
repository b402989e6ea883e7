package ident

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	hits, misses atomic.Int64
}

func (o *countingObserver) StaticHit()  { o.hits.Add(1) }
func (o *countingObserver) StaticMiss() { o.misses.Add(1) }

func newTestContext(strict bool) *Context {
	return NewContext(Config{StrictBounds: strict, Logger: DiscardLogger()})
}

func TestContext_Static(t *testing.T) {
	c := newTestContext(false)

	a := c.Static([]byte("pure ASCII\t[~]\x00"))
	b := NewName("pure ASCII\t[~]")
	assert.Equal(t, a, b)

	a1 := a.Clone()
	a2 := c.Static([]byte("pure ASCII\t[~]\x00")).Clone()
	assert.Equal(t, a, a1)
	assert.Equal(t, a1, a2)

	assert.Equal(t, NewName("±"), c.Static([]byte("\xB1\x00")))
	assert.Equal(t, NewName("Latin-1 £ ± text ¾"), c.Static([]byte("Latin-1 \xA3 \xB1 text \xBE\x00")))
}

func TestContext_StaticMatchesNonStaticPath(t *testing.T) {
	c := newTestContext(false)
	lit := []byte("Latin-1 \xA3 \xB1 text \xBE\x00")

	s := c.Static(lit)
	n := NameFromCStr(lit)

	assert.Equal(t, n, s)
	assert.Equal(t, n.Hash(), s.Hash())
	assert.Equal(t, n.String(), s.String())
	assert.True(t, n.TransientOrd().Equal(s.TransientOrd()))
}

func TestContext_StaticStringMatchesNewName(t *testing.T) {
	c := newTestContext(false)

	tests := []string{"±", "température", "🌍 emoji", "kept\x00dropped", ""}
	for _, lit := range tests {
		t.Run(lit, func(t *testing.T) {
			s := c.StaticString(lit)
			n := NewName(lit)

			assert.Equal(t, n, s)
			assert.Equal(t, n.Hash(), s.Hash())
			assert.Equal(t, n.String(), s.String())
			assert.Equal(t, s, c.StaticString(lit))
		})
	}
}

func TestContext_StaticStringAndCStrCachedApart(t *testing.T) {
	c := newTestContext(false)

	// "\xC2\xB1" is "±" as UTF-8 and "Â±" as Latin-1.
	utf8Name := c.StaticString("\xC2\xB1")
	cstrName := c.Static([]byte("\xC2\xB1"))

	assert.Equal(t, NewName("±"), utf8Name)
	assert.Equal(t, NewName("Â±"), cstrName)
	assert.Equal(t, 2, c.Stats().Entries)
}

func TestContext_StaticStats(t *testing.T) {
	obs := &countingObserver{}
	c := NewContext(Config{Logger: DiscardLogger(), Observer: obs})

	c.StaticString("position")
	c.StaticString("position")
	c.StaticString("rotation")

	stats := c.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(1), obs.hits.Load())
	assert.Equal(t, int64(2), obs.misses.Load())
}

func TestContext_StaticConcurrent(t *testing.T) {
	c := newTestContext(false)
	const goroutines = 32

	results := make([]Name, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				results[i] = c.StaticString("shared_literal")
				c.StaticString("other_literal")
			}
		}(i)
	}
	wg.Wait()

	for _, n := range results {
		assert.Equal(t, NewName("shared_literal"), n)
	}
	assert.Equal(t, 2, c.Stats().Entries, "racing inserts must not duplicate entries")
}

func TestContext_Close(t *testing.T) {
	c := newTestContext(false)
	before := c.StaticString("kept")

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Stats().Entries)
	assert.Equal(t, "kept", before.String(), "handed-out names survive close")

	after := c.StaticString("kept")
	assert.Equal(t, before, after)
	assert.Equal(t, 1, c.Stats().Entries)

	require.NoError(t, c.Close())
}

func TestContext_GetName_Relaxed(t *testing.T) {
	c := newTestContext(false)
	path := NewNodePath("../RigidBody2D/Sprite2D")

	assert.Equal(t, NewName(".."), c.GetName(path, 0))
	assert.Equal(t, NewName("RigidBody2D"), c.GetName(path, 1))
	assert.Equal(t, NewName("Sprite2D"), c.GetName(path, 2))
	assert.Equal(t, NewName(""), c.GetName(path, 3))
}

func TestContext_GetName_Strict(t *testing.T) {
	c := newTestContext(true)
	path := NewNodePath("../RigidBody2D/Sprite2D")

	assert.Equal(t, NewName("Sprite2D"), c.GetName(path, 2))
	assert.PanicsWithError(t, (&BoundsError{Op: "NodePath.Name", Index: 3, Len: 3, Path: path.String()}).Error(), func() {
		c.GetName(path, 3)
	})
}

func TestContext_GetSubname(t *testing.T) {
	path := NewNodePath("Sprite2D:texture:resource_name")

	relaxed := newTestContext(false)
	assert.Equal(t, NewName("texture"), relaxed.GetSubname(path, 0))
	assert.Equal(t, NewName("resource_name"), relaxed.GetSubname(path, 1))
	assert.Equal(t, NewName(""), relaxed.GetSubname(path, 2))

	strict := newTestContext(true)
	assert.Panics(t, func() { strict.GetSubname(path, 2) })
}

func TestDefault_IsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.False(t, Default().Bounds().Strict)
}
