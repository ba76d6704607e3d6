package ratelimit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"marketboard/internal/provider"
)

// MinInterval wraps a Fetcher and spaces calls at least Interval apart.
// Each caller reserves the next free slot, so concurrent callers queue in
// arrival order instead of all firing once the first wait ends. A caller whose
// context ends while waiting returns its error without calling the vendor.
type MinInterval struct {
	F        provider.Fetcher
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Fetch(ctx context.Context, endpoint provider.Endpoint, params map[string]string) (json.RawMessage, error) {
	if m.Interval > 0 {
		m.mu.Lock()
		now := time.Now()
		slot := m.next
		if slot.Before(now) {
			slot = now
		}
		m.next = slot.Add(m.Interval)
		m.mu.Unlock()

		if wait := time.Until(slot); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	return m.F.Fetch(ctx, endpoint, params)
}
