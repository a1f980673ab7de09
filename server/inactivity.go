package server

import (
	"sync"
	"time"
)

// DefaultIdleLimit is how long a session may stay silent before it is
// force-disconnected.
const DefaultIdleLimit = 20 * time.Minute

// InactivityMonitor tracks one session's idle deadline. Every inbound
// frame rearms the deadline to now+limit; if it fires, onIdle runs on the
// timer goroutine. Once stopped the monitor never fires again, so a
// session closing for any other reason cannot race a late disconnect.
type InactivityMonitor struct {
	mu      sync.Mutex
	timer   *time.Timer
	limit   time.Duration
	stopped bool
}

func NewInactivityMonitor(limit time.Duration, onIdle func()) *InactivityMonitor {
	m := &InactivityMonitor{limit: limit}
	m.timer = time.AfterFunc(limit, func() {
		m.mu.Lock()
		stopped := m.stopped
		m.stopped = true
		m.mu.Unlock()
		if !stopped {
			onIdle()
		}
	})
	return m
}

// Touch rearms the deadline, canceling any pending firing.
func (m *InactivityMonitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.timer.Reset(m.limit)
}

// Stop cancels the monitor permanently.
func (m *InactivityMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.timer.Stop()
}
