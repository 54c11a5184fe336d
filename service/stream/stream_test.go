package stream

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	inputs := [][][]byte{
		{},
		{[]byte("")},
		{[]byte("a")},
		{[]byte("hello "), []byte(""), []byte("world"), []byte("!")},
		{bytes.Repeat([]byte("x"), 1000), []byte("tail"), bytes.Repeat([]byte("yz"), 333)},
	}
	for _, input := range inputs {
		expected := bytes.Join(input, nil)
		for _, size := range []int{1, 2, 3, 7, 64, 4096} {
			var actual []byte
			for chunk, err := range Chunks(NewReader(Of(input...)), size) {
				require.NoError(t, err)
				assert.LessOrEqual(t, len(chunk), size)
				actual = append(actual, chunk...)
			}
			assert.Equal(t, len(expected), len(actual), "buffer size %d", size)
			assert.True(t, bytes.Equal(expected, actual), "buffer size %d", size)
		}
	}
}

func TestReader(t *testing.T) {
	r := NewReader(Of([]byte("abc"), []byte("de")))
	buf := make([]byte, 2)

	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(buf[:n]))
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "c", string(buf[:n]), "short read at chunk boundary")
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "de", string(buf[:n]))
	n, err = r.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
	require.NoError(t, r.Close())
}

func TestReader_Error(t *testing.T) {
	boom := errors.New("boom")
	failing := func(yield func([]byte, error) bool) {
		if !yield([]byte("ok"), nil) {
			return
		}
		yield(nil, boom)
	}
	data, err := io.ReadAll(NewReader(failing))
	assert.Equal(t, "ok", string(data))
	assert.ErrorIs(t, err, boom)
}

func TestChunks_NotRestartable(t *testing.T) {
	seq := Chunks(strings.NewReader("payload"), 3)
	count := 0
	for range seq {
		count++
	}
	assert.Equal(t, 3, count)
	for range seq {
		t.Fatal("sequence must not restart")
	}
}

func TestCompress(t *testing.T) {
	payload := bytes.Repeat([]byte("advice chain "), 500)
	compressed := NewReader(Compress(Chunks(bytes.NewReader(payload), 100)))
	reader, err := gzip.NewReader(compressed)
	require.NoError(t, err)
	actual, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, payload, actual)
}
