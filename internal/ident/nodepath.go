package ident

import (
	"strings"
	"unique"

	"github.com/cespare/xxhash/v2"
)

// Path delimiters.
const (
	PathDelimiter     = '/'
	PropertyDelimiter = ':'
)

// NodePath is text interpreted as name segments followed by subname
// segments, e.g. "path/to/Node:with:props" has names [path to Node] and
// subnames [with props]. A leading '/' marks an absolute path and is not a
// segment.
//
// Parsing is delimiter scanning only. Empty segments ("a//b") are skipped.
// Equality is by content, so "a//b" and "a/b" are different paths.
type NodePath struct {
	h unique.Handle[string]
}

// segments is the parsed form of a NodePath.
type segments struct {
	absolute bool
	names    []string
	subnames []string
}

// NewNodePath creates a NodePath from s, truncated at the first NUL byte.
func NewNodePath(s string) NodePath {
	return NodePath{h: makeHandle(truncateAtNull(s))}
}

// PathFromName converts a Name by content.
func PathFromName(n Name) NodePath {
	return n.ToNodePath()
}

// PathFromString converts a String by content.
func PathFromString(s String) NodePath {
	return NodePath{h: makeHandle(s.s)}
}

// String returns the content as a Go string.
func (p NodePath) String() string {
	return handleValue(p.h)
}

// ToString converts to a growable String.
func (p NodePath) ToString() String {
	return StringFromPath(p)
}

// ToName interns the content as a Name.
func (p NodePath) ToName() Name {
	return NameFromPath(p)
}

// IsEmpty reports whether the path has no content.
func (p NodePath) IsEmpty() bool {
	return p.h == unique.Handle[string]{}
}

// IsAbsolute reports whether the path starts with '/'.
func (p NodePath) IsAbsolute() bool {
	return strings.HasPrefix(p.String(), "/")
}

// Hash returns a 64-bit hash of the content.
func (p NodePath) Hash() uint64 {
	return xxhash.Sum64String(p.String())
}

// Clone returns a NodePath equal to p.
func (p NodePath) Clone() NodePath {
	return p
}

// NameCount returns the number of name segments.
func (p NodePath) NameCount() int {
	return len(p.parse().names)
}

// SubnameCount returns the number of subname segments.
func (p NodePath) SubnameCount() int {
	return len(p.parse().subnames)
}

// SegmentCount returns NameCount() + SubnameCount().
func (p NodePath) SegmentCount() int {
	seg := p.parse()
	return len(seg.names) + len(seg.subnames)
}

// Name returns the i-th name segment, or a *BoundsError wrapping
// ErrIndexOutOfBounds.
func (p NodePath) Name(i int) (Name, error) {
	names := p.parse().names
	if i < 0 || i >= len(names) {
		return Name{}, &BoundsError{Op: "NodePath.Name", Index: i, Len: len(names), Path: p.String()}
	}
	return NewName(names[i]), nil
}

// Subname returns the i-th subname segment, or a *BoundsError wrapping
// ErrIndexOutOfBounds.
func (p NodePath) Subname(i int) (Name, error) {
	subnames := p.parse().subnames
	if i < 0 || i >= len(subnames) {
		return Name{}, &BoundsError{Op: "NodePath.Subname", Index: i, Len: len(subnames), Path: p.String()}
	}
	return NewName(subnames[i]), nil
}

// Subpath selects segments [begin, end) over names and subnames combined
// and renders them with the delimiters of the original path.
//
// Negative indices count from the end (-1 is the last segment). Indices are
// clamped to the segment range; an empty selection yields the empty path.
// The absolute prefix is kept only when the selection starts at segment 0.
func (p NodePath) Subpath(begin, end int) NodePath {
	seg := p.parse()
	total := len(seg.names) + len(seg.subnames)

	begin = clampIndex(wrapIndex(begin, total), total)
	end = clampIndex(wrapIndex(end, total), total)
	if begin >= end {
		return NodePath{}
	}

	nameCount := len(seg.names)
	out := segments{absolute: seg.absolute && begin == 0}
	if begin < nameCount {
		out.names = seg.names[begin:min(end, nameCount)]
	}
	if end > nameCount {
		out.subnames = seg.subnames[max(begin-nameCount, 0) : end-nameCount]
	}
	return NodePath{h: makeHandle(out.render())}
}

// SubpathFrom selects segments from begin to the end. SubpathFrom(-2) is
// the last two segments.
func (p NodePath) SubpathFrom(begin int) NodePath {
	return p.Subpath(begin, p.SegmentCount())
}

// ConcatenatedNames returns the name segments joined with '/'. The absolute
// prefix is kept.
func (p NodePath) ConcatenatedNames() Name {
	seg := p.parse()
	return NewName(segments{absolute: seg.absolute, names: seg.names}.render())
}

// ConcatenatedSubnames returns the subname segments joined with ':' and no
// leading delimiter.
func (p NodePath) ConcatenatedSubnames() Name {
	return NewName(strings.Join(p.parse().subnames, string(PropertyDelimiter)))
}

// PropertyPath returns only the subname part, e.g. ":texture:resource_name".
func (p NodePath) PropertyPath() NodePath {
	seg := p.parse()
	return NodePath{h: makeHandle(segments{subnames: seg.subnames}.render())}
}

// AsPropertyPath turns every segment into a subname, e.g. "A/B:c" becomes
// ":A:B:c". Paths that are already property paths are returned as is.
func (p NodePath) AsPropertyPath() NodePath {
	seg := p.parse()
	if len(seg.names) == 0 {
		return p
	}
	all := make([]string, 0, len(seg.names)+len(seg.subnames))
	all = append(all, seg.names...)
	all = append(all, seg.subnames...)
	return NodePath{h: makeHandle(segments{subnames: all}.render())}
}

// MarshalText implements encoding.TextMarshaler.
func (p NodePath) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Null truncation applies.
func (p *NodePath) UnmarshalText(text []byte) error {
	*p = NewNodePath(string(text))
	return nil
}

// parse scans the content: tokens before the first ':' are '/'-delimited
// names, tokens after it are ':'-delimited subnames.
func (p NodePath) parse() segments {
	s := p.String()
	var seg segments
	if strings.HasPrefix(s, "/") {
		seg.absolute = true
		s = s[1:]
	}

	namePart, subPart, hasSub := strings.Cut(s, string(PropertyDelimiter))
	seg.names = splitNonEmpty(namePart, PathDelimiter)
	if hasSub {
		seg.subnames = splitNonEmpty(subPart, PropertyDelimiter)
	}
	return seg
}

func (seg segments) render() string {
	var sb strings.Builder
	if seg.absolute {
		sb.WriteByte(PathDelimiter)
	}
	for i, name := range seg.names {
		if i > 0 {
			sb.WriteByte(PathDelimiter)
		}
		sb.WriteString(name)
	}
	for _, sub := range seg.subnames {
		sb.WriteByte(PropertyDelimiter)
		sb.WriteString(sub)
	}
	return sb.String()
}

func splitNonEmpty(s string, sep byte) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, string(sep))
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func wrapIndex(i, total int) int {
	if i < 0 {
		return i + total
	}
	return i
}

func clampIndex(i, total int) int {
	return min(max(i, 0), total)
}
