package ident

// String is growable engine text. Unlike Name it is not interned; it is a
// plain value and copies never alias each other.
//
// The zero String is empty.
type String struct {
	s string
}

// NewString creates a String from s, truncated at the first NUL byte.
func NewString(s string) String {
	return String{s: truncateAtNull(s)}
}

// StringFromBytes decodes b with the given encoding. Decoding stops at the
// first NUL byte.
func StringFromBytes(b []byte, enc Encoding) (String, error) {
	s, err := decode(b, enc)
	if err != nil {
		return String{}, err
	}
	return String{s: s}, nil
}

// StringFromName converts a Name by content.
func StringFromName(n Name) String {
	return n.ToString()
}

// StringFromPath converts a NodePath by content.
func StringFromPath(p NodePath) String {
	return String{s: p.String()}
}

// String returns the content as a Go string.
func (s String) String() string {
	return s.s
}

// Len returns the length in bytes.
func (s String) Len() int {
	return len(s.s)
}

// IsEmpty reports whether s has no content.
func (s String) IsEmpty() bool {
	return s.s == ""
}

// Append appends text, truncated at its first NUL byte.
func (s *String) Append(text string) {
	s.s += truncateAtNull(text)
}

// AppendName appends the content of n.
func (s *String) AppendName(n Name) {
	s.s += n.String()
}

// Reset empties s.
func (s *String) Reset() {
	s.s = ""
}

// ToName interns the content.
func (s String) ToName() Name {
	return NameFromString(s)
}

// ToNodePath reinterprets the content as a NodePath.
func (s String) ToNodePath() NodePath {
	return PathFromString(s)
}

// MarshalText implements encoding.TextMarshaler.
func (s String) MarshalText() ([]byte, error) {
	return []byte(s.s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Null truncation applies.
func (s *String) UnmarshalText(text []byte) error {
	*s = NewString(string(text))
	return nil
}
