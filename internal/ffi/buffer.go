// Package ffi is the copy-in/copy-out boundary between ident values and a
// foreign runtime.
//
// The core value types never see the transport. Everything crossing the
// boundary goes through a Buffer: bytes are copied in on write and copied
// out on read, so neither side keeps a reference to the other's memory.
package ffi

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Buffer moves raw byte buffers across the foreign boundary.
type Buffer interface {
	// ReadForeignBytes returns a copy of the next buffer from the foreign side.
	ReadForeignBytes() ([]byte, error)
	// WriteForeignBytes copies b to the foreign side.
	WriteForeignBytes(b []byte) error
}

// DefaultMaxFrameSize bounds a single frame on a FrameConn.
const DefaultMaxFrameSize = 16 << 20

// ErrFrameTooLarge is returned when a frame exceeds the connection limit.
var ErrFrameTooLarge = errors.New("ffi: frame too large")

// MemBuffer is an in-process Buffer holding the last written value.
//
// Thread-safety: safe for concurrent use.
type MemBuffer struct {
	mu   sync.Mutex
	data []byte
}

// NewMemBuffer creates a MemBuffer holding a copy of initial.
func NewMemBuffer(initial []byte) *MemBuffer {
	return &MemBuffer{data: clone(initial)}
}

// ReadForeignBytes returns a copy of the stored bytes.
func (m *MemBuffer) ReadForeignBytes() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.data), nil
}

// WriteForeignBytes replaces the stored bytes with a copy of b.
func (m *MemBuffer) WriteForeignBytes(b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = clone(b)
	return nil
}

// FrameConn is a Buffer over a byte stream. Each buffer is one frame:
// a big-endian uint32 length followed by that many bytes.
//
// Thread-safety: reads and writes are serialized independently, so one
// reader and one writer goroutine may use the connection at once.
type FrameConn struct {
	rmu sync.Mutex
	r   *bufio.Reader

	wmu sync.Mutex
	w   io.Writer

	maxFrame int
}

// NewFrameConn creates a FrameConn reading from r and writing to w.
func NewFrameConn(r io.Reader, w io.Writer) *FrameConn {
	return &FrameConn{
		r:        bufio.NewReader(r),
		w:        w,
		maxFrame: DefaultMaxFrameSize,
	}
}

// SetMaxFrameSize changes the frame size limit for both directions.
func (c *FrameConn) SetMaxFrameSize(n int) {
	c.maxFrame = n
}

// ReadForeignBytes reads one frame. Returns io.EOF when the stream ends
// cleanly between frames.
func (c *FrameConn) ReadForeignBytes() ([]byte, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	var header [4]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("ffi: read frame header: %w", err)
		}
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if int64(size) > int64(c.maxFrame) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, c.maxFrame)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return nil, fmt.Errorf("ffi: read frame body: %w", err)
	}
	return body, nil
}

// WriteForeignBytes writes b as one frame.
func (c *FrameConn) WriteForeignBytes(b []byte) error {
	if len(b) > c.maxFrame {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(b), c.maxFrame)
	}

	frame := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(frame, uint32(len(b)))
	copy(frame[4:], b)

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.w.Write(frame); err != nil {
		return fmt.Errorf("ffi: write frame: %w", err)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
