package ident

import (
	"unique"

	"github.com/cespare/xxhash/v2"
)

// Name is an immutable, interned text value.
//
// Two Names are == iff their bytes are equal. The zero Name is empty and is
// equal to NewName("") and NewName("\x00").
type Name struct {
	h unique.Handle[string]
}

// NewName creates a Name from s, truncated at the first NUL byte.
func NewName(s string) Name {
	return Name{h: makeHandle(truncateAtNull(s))}
}

// NameFromBytes decodes b with the given encoding into a Name.
// Decoding stops at the first NUL byte. Only EncodingASCII can fail.
func NameFromBytes(b []byte, enc Encoding) (Name, error) {
	s, err := decode(b, enc)
	if err != nil {
		return Name{}, err
	}
	return Name{h: makeHandle(s)}, nil
}

// NameFromCStr creates a Name from a C-style null-terminated byte sequence.
// Bytes are Latin-1, so "\xB1" yields "±". A missing terminator is tolerated.
func NameFromCStr(b []byte) Name {
	s, _ := decode(b, EncodingLatin1) // latin-1 maps every byte
	return Name{h: makeHandle(s)}
}

// NameFromString converts a String by content.
func NameFromString(s String) Name {
	return Name{h: makeHandle(s.s)}
}

// NameFromPath converts a NodePath by content.
func NameFromPath(p NodePath) Name {
	return Name{h: p.h}
}

// String returns the content as a Go string.
func (n Name) String() string {
	return handleValue(n.h)
}

// ToString converts to a growable String.
func (n Name) ToString() String {
	return String{s: n.String()}
}

// ToNodePath reinterprets the content as a NodePath.
func (n Name) ToNodePath() NodePath {
	return NodePath{h: n.h}
}

// Len returns the length in bytes.
func (n Name) Len() int {
	return len(n.String())
}

// IsEmpty reports whether the Name has no content.
func (n Name) IsEmpty() bool {
	return n.h == unique.Handle[string]{}
}

// Equal reports content equality. Same as ==.
func (n Name) Equal(other Name) bool {
	return n.h == other.h
}

// Clone returns a Name equal to n under == and Hash.
func (n Name) Clone() Name {
	return n
}

// Hash returns a 64-bit hash of the content. It is a pure function of the
// bytes and is stable across runs.
func (n Name) Hash() uint64 {
	return xxhash.Sum64String(n.String())
}

// TransientOrd returns an ordering key for n. See TransientOrd.
func (n Name) TransientOrd() TransientOrd {
	return newTransientOrd(n)
}

// MarshalText implements encoding.TextMarshaler.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Null truncation applies.
func (n *Name) UnmarshalText(text []byte) error {
	*n = NewName(string(text))
	return nil
}

// makeHandle interns s. The empty string maps to the zero handle so that
// the zero value of Name and NodePath stays equal to an empty construction.
func makeHandle(s string) unique.Handle[string] {
	if s == "" {
		return unique.Handle[string]{}
	}
	return unique.Make(s)
}

func handleValue(h unique.Handle[string]) string {
	if h == (unique.Handle[string]{}) {
		return ""
	}
	return h.Value()
}
