package ident

import (
	"hash/maphash"
	"strings"
)

// ordSeed is drawn once per process, so transient orders differ between runs.
var ordSeed = maphash.MakeSeed()

// TransientOrd is a totally ordered key for a Name, usable for sorted sets
// and maps within one process.
//
// The order agrees with Name equality but is neither lexicographic nor
// stable across runs. Do not persist it.
type TransientOrd struct {
	key  uint64
	name Name
}

func newTransientOrd(n Name) TransientOrd {
	return TransientOrd{key: maphash.String(ordSeed, n.String()), name: n}
}

// Name returns the Name this key was derived from.
func (o TransientOrd) Name() Name {
	return o.name
}

// Compare returns -1, 0 or +1. It returns 0 iff both keys came from equal Names.
func (o TransientOrd) Compare(other TransientOrd) int {
	switch {
	case o.key < other.key:
		return -1
	case o.key > other.key:
		return 1
	case o.name == other.name:
		return 0
	default:
		// seeded hash collision
		return strings.Compare(o.name.String(), other.name.String())
	}
}

// Equal reports o == other under the order.
func (o TransientOrd) Equal(other TransientOrd) bool { return o.Compare(other) == 0 }

// Less reports o < other.
func (o TransientOrd) Less(other TransientOrd) bool { return o.Compare(other) < 0 }

// LessEq reports o <= other.
func (o TransientOrd) LessEq(other TransientOrd) bool { return o.Compare(other) <= 0 }

// Greater reports o > other.
func (o TransientOrd) Greater(other TransientOrd) bool { return o.Compare(other) > 0 }

// GreaterEq reports o >= other.
func (o TransientOrd) GreaterEq(other TransientOrd) bool { return o.Compare(other) >= 0 }

// CompareTransient is a cmp-style function over Names for slices.SortFunc.
func CompareTransient(a, b Name) int {
	return a.TransientOrd().Compare(b.TransientOrd())
}
