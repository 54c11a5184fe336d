package stream

import (
	"bytes"
	"compress/gzip"
	"iter"
)

// Compress gzips chunks incrementally: compressed output is yielded as soon as
// the compressor flushes it, without holding the whole payload.
func Compress(chunks iter.Seq2[[]byte, error]) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		buffer := new(bytes.Buffer)
		writer := gzip.NewWriter(buffer)
		flush := func() bool {
			if buffer.Len() == 0 {
				return true
			}
			out := make([]byte, buffer.Len())
			copy(out, buffer.Bytes())
			buffer.Reset()
			return yield(out, nil)
		}
		for chunk, err := range chunks {
			if err != nil {
				yield(nil, err)
				return
			}
			if _, err = writer.Write(chunk); err != nil {
				yield(nil, err)
				return
			}
			if !flush() {
				return
			}
		}
		if err := writer.Close(); err != nil {
			yield(nil, err)
			return
		}
		flush()
	}
}
