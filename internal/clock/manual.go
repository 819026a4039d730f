package clock

import (
	"sync"
	"time"
)

// Manual is a controllable clock for tests. Sleep returns immediately; the
// requested durations are recorded so tests can assert on backoff behaviour.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

// NewManual constructs a Manual clock starting at the supplied time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Sleep records d and advances the manual time without blocking.
func (m *Manual) Sleep(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.slept = append(m.slept, d)
	m.mu.Unlock()
}

// Advance moves time forward by d.
func (m *Manual) Advance(d time.Duration) time.Time {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now
	m.mu.Unlock()
	return now
}

// Slept returns the durations passed to Sleep, in order.
func (m *Manual) Slept() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.slept))
	copy(out, m.slept)
	return out
}
