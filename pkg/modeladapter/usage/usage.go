// Package usage tracks token consumption across model exchanges.
package usage

import (
	"sync"
	"time"
)

// TokenCount holds the token counts and generation time of one exchange.
type TokenCount struct {
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
}

// Total returns the sum of prompt and completion tokens.
func (tc TokenCount) Total() int {
	return tc.PromptTokens + tc.CompletionTokens
}

// Tracker accumulates usage across exchanges. The zero value is ready to use
// and it is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries []TokenCount
}

// Add records one exchange.
func (t *Tracker) Add(tc TokenCount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, tc)
}

// Last returns the most recent entry.
// The bool is false when the tracker has no entries.
func (t *Tracker) Last() (TokenCount, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) == 0 {
		return TokenCount{}, false
	}

	return t.entries[len(t.entries)-1], true
}

// Total returns the aggregate across all entries.
func (t *Tracker) Total() TokenCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total TokenCount
	for _, e := range t.entries {
		total.PromptTokens += e.PromptTokens
		total.CompletionTokens += e.CompletionTokens
		total.Duration += e.Duration
	}

	return total
}

// Count returns the number of recorded exchanges.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Reset clears all recorded entries.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = nil
}
