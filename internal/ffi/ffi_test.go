package ffi

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondlegend4/modelica-gdext/internal/ident"
)

func TestMemBuffer_CopiesInAndOut(t *testing.T) {
	src := []byte("engine-owned")
	buf := NewMemBuffer(src)
	src[0] = 'X'

	got, err := buf.ReadForeignBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("engine-owned"), got)

	got[0] = 'Y'
	again, err := buf.ReadForeignBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("engine-owned"), again)
}

func TestValues_RoundTrip(t *testing.T) {
	buf := NewMemBuffer(nil)

	require.NoError(t, WriteName(buf, ident.NewName("emoji time: 😎")))
	name, err := ReadName(buf)
	require.NoError(t, err)
	assert.Equal(t, ident.NewName("emoji time: 😎"), name)

	require.NoError(t, WriteNodePath(buf, ident.NewNodePath("path/to/Node:with:props")))
	path, err := ReadNodePath(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, path.NameCount())
	assert.Equal(t, 2, path.SubnameCount())

	require.NoError(t, WriteString(buf, ident.NewString("plain")))
	s, err := ReadString(buf)
	require.NoError(t, err)
	assert.Equal(t, ident.NewString("plain"), s)
}

func TestValues_ReadTruncatesAtNull(t *testing.T) {
	buf := NewMemBuffer([]byte("some random string\x00 with a null byte"))

	name, err := ReadName(buf)
	require.NoError(t, err)
	assert.Equal(t, ident.NewName("some random string"), name)
}

func TestFrameConn_RoundTrip(t *testing.T) {
	var stream bytes.Buffer
	conn := NewFrameConn(&stream, &stream)

	require.NoError(t, conn.WriteForeignBytes([]byte("first")))
	require.NoError(t, conn.WriteForeignBytes(nil))
	require.NoError(t, conn.WriteForeignBytes([]byte("third")))

	for _, want := range []string{"first", "", "third"} {
		got, err := conn.ReadForeignBytes()
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	_, err := conn.ReadForeignBytes()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameConn_TruncatedFrame(t *testing.T) {
	stream := bytes.NewBuffer([]byte{0, 0, 0, 10, 'a', 'b'})
	conn := NewFrameConn(stream, io.Discard)

	_, err := conn.ReadForeignBytes()
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestFrameConn_MaxFrameSize(t *testing.T) {
	var stream bytes.Buffer
	conn := NewFrameConn(&stream, &stream)
	conn.SetMaxFrameSize(4)

	err := conn.WriteForeignBytes([]byte("too long"))
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	stream.Write([]byte{0, 0, 1, 0})
	_, err = conn.ReadForeignBytes()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDictionary_Order(t *testing.T) {
	d := NewDictionary()
	d.Set("temperature", 21.5)
	d.Set("heater_on", true)
	d.Set("temperature", 22.0)

	assert.Equal(t, []string{"temperature", "heater_on"}, d.Keys())
	assert.Equal(t, 2, d.Len())

	v, ok := d.Float("temperature")
	require.True(t, ok)
	assert.InDelta(t, 22.0, v, 1e-9)

	_, ok = d.Float("heater_on")
	assert.False(t, ok)
}

func TestDictionary_MsgpackRoundTrip(t *testing.T) {
	d := NewDictionary()
	d.Set("z_last_alphabetically", 1.25)
	d.Set("a_first", -3.5)
	d.Set("label", "ok")

	buf := NewMemBuffer(nil)
	require.NoError(t, WriteDictionary(buf, d))

	back, err := ReadDictionary(buf)
	require.NoError(t, err)
	assert.Equal(t, d.Keys(), back.Keys())

	v, ok := back.Float("a_first")
	require.True(t, ok)
	assert.InDelta(t, -3.5, v, 1e-9)

	label, ok := back.Get("label")
	require.True(t, ok)
	assert.Equal(t, "ok", label)
}

func TestDictionary_ZeroValueSet(t *testing.T) {
	var d Dictionary
	d.Set("x", 1.0)
	assert.Equal(t, 1, d.Len())
}
