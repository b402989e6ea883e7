package ffi

import (
	"fmt"

	"github.com/bondlegend4/modelica-gdext/internal/ident"
)

// Values cross the boundary as UTF-8. Null truncation is applied on the
// way in by the ident constructors.

// ReadName copies a Name in from buf.
func ReadName(buf Buffer) (ident.Name, error) {
	b, err := buf.ReadForeignBytes()
	if err != nil {
		return ident.Name{}, fmt.Errorf("read name: %w", err)
	}
	return ident.NameFromBytes(b, ident.EncodingUTF8)
}

// WriteName copies n out to buf.
func WriteName(buf Buffer, n ident.Name) error {
	if err := buf.WriteForeignBytes([]byte(n.String())); err != nil {
		return fmt.Errorf("write name: %w", err)
	}
	return nil
}

// ReadString copies a String in from buf.
func ReadString(buf Buffer) (ident.String, error) {
	b, err := buf.ReadForeignBytes()
	if err != nil {
		return ident.String{}, fmt.Errorf("read string: %w", err)
	}
	return ident.StringFromBytes(b, ident.EncodingUTF8)
}

// WriteString copies s out to buf.
func WriteString(buf Buffer, s ident.String) error {
	if err := buf.WriteForeignBytes([]byte(s.String())); err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	return nil
}

// ReadNodePath copies a NodePath in from buf.
func ReadNodePath(buf Buffer) (ident.NodePath, error) {
	s, err := ReadString(buf)
	if err != nil {
		return ident.NodePath{}, fmt.Errorf("read node path: %w", err)
	}
	return s.ToNodePath(), nil
}

// WriteNodePath copies p out to buf.
func WriteNodePath(buf Buffer, p ident.NodePath) error {
	if err := buf.WriteForeignBytes([]byte(p.String())); err != nil {
		return fmt.Errorf("write node path: %w", err)
	}
	return nil
}
