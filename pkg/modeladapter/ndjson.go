package modeladapter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"
)

// maxLineSize bounds a single NDJSON line.
const maxLineSize = 1 << 20

// Lines lazily decodes r as newline-delimited JSON, one T per non-blank line.
// Decoding stops at the first error, which is yielded once.
func Lines[T any](r io.Reader) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}

			var v T
			if err := json.Unmarshal(line, &v); err != nil {
				var zero T
				yield(zero, fmt.Errorf("decode stream line: %w", err))
				return
			}

			if !yield(v, nil) {
				return
			}
		}

		if err := sc.Err(); err != nil {
			var zero T
			yield(zero, fmt.Errorf("read stream: %w", err))
		}
	}
}
