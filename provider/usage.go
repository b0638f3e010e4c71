package provider

import (
	"sync"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
)

// UsageSummary aggregates usage across calls.
type UsageSummary struct {
	Calls            map[string]int `json:"calls"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	Duration         time.Duration  `json:"duration"`
}

// UsageTracker counts calls per operation and enforces an optional call
// budget. A max of 0 means unlimited.
type UsageTracker struct {
	mu      sync.Mutex
	max     int
	count   int
	summary UsageSummary
}

// NewUsageTracker creates a tracker allowing at most max calls.
func NewUsageTracker(max int) *UsageTracker {
	return &UsageTracker{max: max, summary: UsageSummary{Calls: map[string]int{}}}
}

// Reserve claims one call from the budget.
func (t *UsageTracker) Reserve(op string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.max > 0 && t.count >= t.max {
		return core.Unavailablef("call budget of %d exhausted before %s", t.max, op)
	}
	t.count++
	return nil
}

// Record adds a finished call's usage.
func (t *UsageTracker) Record(u core.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.summary.Calls[u.Operation]++
	t.summary.PromptTokens += u.PromptTokens
	t.summary.CompletionTokens += u.CompletionTokens
	t.summary.TotalTokens += u.TotalTokens
	t.summary.Duration += u.Duration
}

// Count returns the number of reserved calls.
func (t *UsageTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.count
}

// Remaining returns how many calls are left, or -1 when unlimited.
func (t *UsageTracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.max == 0 {
		return -1
	}
	return t.max - t.count
}

// Summary returns a copy of the aggregated usage.
func (t *UsageTracker) Summary() UsageSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.summary
	s.Calls = make(map[string]int, len(t.summary.Calls))
	for k, v := range t.summary.Calls {
		s.Calls[k] = v
	}
	return s
}
