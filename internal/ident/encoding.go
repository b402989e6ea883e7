package ident

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding selects how raw bytes are decoded into text.
type Encoding int

const (
	// EncodingUTF8 decodes UTF-8. Invalid sequences become U+FFFD.
	EncodingUTF8 Encoding = iota
	// EncodingASCII accepts only bytes below 0x80.
	EncodingASCII
	// EncodingLatin1 maps every byte to the code point of the same value.
	EncodingLatin1
)

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case EncodingUTF8:
		return "utf-8"
	case EncodingASCII:
		return "ascii"
	case EncodingLatin1:
		return "latin-1"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// ErrInvalidEncoding is returned when bytes are not valid for the requested encoding.
var ErrInvalidEncoding = errors.New("invalid encoding")

// truncateAtNull drops the first NUL byte and everything after it.
func truncateAtNull(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

// truncateBytesAtNull is truncateAtNull for byte slices. It does not copy.
func truncateBytesAtNull(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

// decode converts raw bytes into a Go string (always UTF-8) after applying
// the null-truncation rule. The result never aliases b.
func decode(b []byte, enc Encoding) (string, error) {
	b = truncateBytesAtNull(b)

	switch enc {
	case EncodingUTF8:
		if utf8.Valid(b) {
			return string(b), nil
		}
		return strings.ToValidUTF8(string(b), string(utf8.RuneError)), nil

	case EncodingASCII:
		for i, c := range b {
			if c >= utf8.RuneSelf {
				return "", fmt.Errorf("%w: byte 0x%02X at offset %d is not ASCII", ErrInvalidEncoding, c, i)
			}
		}
		return string(b), nil

	case EncodingLatin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		if err != nil {
			return "", fmt.Errorf("%w: latin-1: %v", ErrInvalidEncoding, err)
		}
		return string(out), nil

	default:
		return "", fmt.Errorf("%w: unknown encoding %d", ErrInvalidEncoding, int(enc))
	}
}
