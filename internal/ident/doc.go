// Package ident provides the engine-style string values bridged across the
// foreign boundary: String (growable text), Name (interned identity) and
// NodePath (name/subname segmented path).
//
// This package imports nothing internal. All other internal packages that
// carry text across the boundary use these types.
//
// Value rules shared by every constructor:
//   - Content is truncated at the first NUL byte ("abc\x00def" == "abc")
//   - The zero value is the empty value and equals construction from ""
//   - Equality and hashing are structural over the (truncated) bytes
//   - Lengths are byte counts, never code points
//
// Name and NodePath are backed by unique.Handle, so == is a pointer compare
// and both are safe to use as map keys. Storage is reclaimed by the GC once
// the last handle is dropped.
//
// # Interning
//
// Context owns the static-literal fast path (see Context.Static) together
// with the out-of-bounds policy for segment access. Default returns a lazily
// created process context; callers that need a different policy create
// their own with NewContext.
package ident
