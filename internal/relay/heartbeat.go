// ABOUTME: Periodic heartbeat timer for streaming sessions
// ABOUTME: Fires independently of upstream traffic; Stop is an idempotent no-op

package relay

import (
	"sync"
	"time"
)

// Heartbeat emits a synthetic liveness signal on a fixed interval,
// independent of upstream activity. It lets the client detect a silently
// stalled relay without a hard session timeout.
type Heartbeat struct {
	stop chan struct{}
	once sync.Once
}

// DefaultInterval is used when StartHeartbeat gets a non-positive interval.
const DefaultInterval = 30 * time.Second

// StartHeartbeat starts a background timer calling fn every interval.
// A non-positive interval falls back to DefaultInterval. The timer never
// keeps the process alive on its own and stops exactly once; calling Stop
// twice is a no-op.
func StartHeartbeat(interval time.Duration, fn func()) *Heartbeat {
	if interval <= 0 {
		interval = DefaultInterval
	}
	h := &Heartbeat{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	return h
}

// Stop halts the timer. Safe to call multiple times and from any goroutine.
func (h *Heartbeat) Stop() {
	h.once.Do(func() { close(h.stop) })
}
