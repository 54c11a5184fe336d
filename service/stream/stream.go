// Package stream converts between lazy sequences of byte chunks and blocking
// io.Reader streams so payloads can move without being fully buffered.
package stream

import (
	"errors"
	"io"
	"iter"
)

// DefaultBufferSize is used when a non positive buffer size is supplied.
const DefaultBufferSize = 32 * 1024

// Reader exposes a lazy sequence of chunks as an io.ReadCloser. The next chunk
// is pulled only once the current one has been fully consumed.
type Reader struct {
	next   func() ([]byte, error, bool)
	stop   func()
	chunk  []byte
	cursor int
	err    error
}

// NewReader returns a reader over chunks (GeneratorToStream).
func NewReader(chunks iter.Seq2[[]byte, error]) *Reader {
	next, stop := iter.Pull2(chunks)
	return &Reader{next: next, stop: stop}
}

// Read copies up to len(p) bytes from the current chunk, pulling the next one
// when it is exhausted. It returns io.EOF once the sequence ends.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for r.cursor >= len(r.chunk) {
		if r.err != nil {
			return 0, r.err
		}
		chunk, err, ok := r.next()
		if !ok {
			r.err = io.EOF
			r.stop()
			return 0, r.err
		}
		if err != nil {
			r.err = err
			r.stop()
			return 0, err
		}
		r.chunk, r.cursor = chunk, 0
	}
	n := copy(p, r.chunk[r.cursor:])
	r.cursor += n
	return n, nil
}

// Close releases the underlying sequence; further reads return io.ErrClosedPipe.
func (r *Reader) Close() error {
	r.stop()
	r.chunk, r.cursor = nil, 0
	if r.err == nil || errors.Is(r.err, io.EOF) {
		r.err = io.ErrClosedPipe
	}
	return nil
}

// Chunks returns a lazy, non-restartable sequence of chunks of at most
// bufferSize bytes read from r until end of stream (StreamToGenerator). Each
// yielded chunk is owned by the consumer. A read error is yielded once and
// terminates the sequence.
func Chunks(r io.Reader, bufferSize int) iter.Seq2[[]byte, error] {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	done := false
	return func(yield func([]byte, error) bool) {
		if done {
			return
		}
		defer func() { done = true }()
		buffer := make([]byte, bufferSize)
		for {
			n, err := r.Read(buffer)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buffer[:n])
				if !yield(chunk, nil) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(nil, err)
				}
				return
			}
		}
	}
}

// Of returns a sequence over the supplied chunks.
func Of(chunks ...[]byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}
