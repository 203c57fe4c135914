// Package display holds the console presentation policies of a model
// stream: whether fragments are echoed verbatim or replaced by a progress
// placeholder, and how a finished answer is rendered.
package display

import (
	"io"
	"iter"
)

const (
	// ThinkingBanner is written once before a hidden stream.
	ThinkingBanner = "Thinking..."
	// Placeholder is written for every fragment of a hidden stream.
	Placeholder = "."
)

// Echo returns a stream that yields exactly what stream yields and, as a
// side effect, writes every fragment to w when visible is true, or the
// banner followed by one Placeholder per fragment when it is false. Errors
// pass through without being written.
func Echo(w io.Writer, visible bool, stream iter.Seq2[string, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !visible {
			_, _ = io.WriteString(w, ThinkingBanner)
		}

		for frag, err := range stream {
			if err == nil {
				if visible {
					_, _ = io.WriteString(w, frag)
				} else {
					_, _ = io.WriteString(w, Placeholder)
				}
			}

			if !yield(frag, err) {
				return
			}
		}
	}
}
