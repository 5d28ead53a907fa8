// Package usage accumulates token counts reported by the completion API.
package usage

import (
	"fmt"
	"sync"
)

// TokenCount holds input and output token counts for one or more completions.
type TokenCount struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the sum of input and output tokens.
func (tc TokenCount) Total() int {
	return tc.InputTokens + tc.OutputTokens
}

// Add returns the element-wise sum of tc and other.
func (tc TokenCount) Add(other TokenCount) TokenCount {
	return TokenCount{
		InputTokens:  tc.InputTokens + other.InputTokens,
		OutputTokens: tc.OutputTokens + other.OutputTokens,
	}
}

func (tc TokenCount) String() string {
	return fmt.Sprintf("%d in / %d out", tc.InputTokens, tc.OutputTokens)
}

// Mark is a position in a Tracker's history, used to measure the usage of a
// span of calls such as one query.
type Mark int

// Tracker accumulates token usage across completions.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries []TokenCount
}

// Add records the usage of one completion.
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

// Total returns the aggregate token count across all entries.
func (t *Tracker) Total() TokenCount {
	return t.Since(0)
}

// Mark returns the current position in the history.
func (t *Tracker) Mark() Mark {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Mark(len(t.entries))
}

// Since aggregates the entries recorded after m. A mark taken before a Reset
// counts from the start.
func (t *Tracker) Since(m Mark) TokenCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := int(m)
	if start < 0 || start > len(t.entries) {
		start = 0
	}

	var total TokenCount
	for _, e := range t.entries[start:] {
		total = total.Add(e)
	}

	return total
}

// Count returns the number of recorded entries.
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
