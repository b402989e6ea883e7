package ident

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrIndexOutOfBounds is the sentinel wrapped by every *BoundsError.
var ErrIndexOutOfBounds = errors.New("index out of bounds")

// BoundsError describes an out-of-bounds segment access.
type BoundsError struct {
	Op    string // e.g. "NodePath.Name"
	Index int
	Len   int
	Path  string
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s(%d): %v (len=%d, path=%q)", e.Op, e.Index, ErrIndexOutOfBounds, e.Len, e.Path)
}

func (e *BoundsError) Unwrap() error {
	return ErrIndexOutOfBounds
}

// BoundsPolicy decides what an out-of-bounds GetName/GetSubname does.
//
// Strict panics with the *BoundsError (a contract violation, the same class
// as a slice index panic). Relaxed logs a warning and returns the empty Name.
// Neither mode returns data from another segment.
//
// Callers that want an error value use NodePath.Name and NodePath.Subname.
type BoundsPolicy struct {
	Strict bool
	Logger *slog.Logger
}

// GetName returns p's i-th name segment under the policy.
func (b BoundsPolicy) GetName(p NodePath, i int) Name {
	n, err := p.Name(i)
	if err != nil {
		return b.violate(err)
	}
	return n
}

// GetSubname returns p's i-th subname segment under the policy.
func (b BoundsPolicy) GetSubname(p NodePath, i int) Name {
	n, err := p.Subname(i)
	if err != nil {
		return b.violate(err)
	}
	return n
}

func (b BoundsPolicy) violate(err error) Name {
	if b.Strict {
		panic(err)
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("segment access out of bounds, returning empty name", "error", err)
	return Name{}
}
