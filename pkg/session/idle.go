package session

import (
	"sync"
	"time"
)

// DefaultIdleWindow is the inactivity window after which a held session is
// force-expired, independent of server-side token lifetime.
const DefaultIdleWindow = 10 * time.Minute

// IdleMonitor is a two-state machine: Disarmed, or Armed with a deadline.
// Arm starts the countdown, Activity pushes the deadline to now+window,
// Disarm cancels. The expiry callback fires at most once per arming; a
// Disarm racing the timer wins because each arming bumps a generation
// counter the timer callback checks before acting.
type IdleMonitor struct {
	mu       sync.Mutex
	window   time.Duration
	timer    *time.Timer
	armed    bool
	gen      uint64
	deadline time.Time
	onExpire func()
}

// NewIdleMonitor builds a disarmed monitor. window <= 0 uses
// DefaultIdleWindow.
func NewIdleMonitor(window time.Duration, onExpire func()) *IdleMonitor {
	if window <= 0 {
		window = DefaultIdleWindow
	}
	return &IdleMonitor{window: window, onExpire: onExpire}
}

// Arm starts the countdown. Arming an armed monitor resets the deadline,
// same as Activity.
func (m *IdleMonitor) Arm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = true
	m.resetLocked()
}

// Activity resets the deadline while armed; it is a no-op when disarmed.
func (m *IdleMonitor) Activity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.armed {
		return
	}
	m.resetLocked()
}

// Disarm cancels the countdown.
func (m *IdleMonitor) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Deadline returns the current expiry deadline and whether the monitor is
// armed.
func (m *IdleMonitor) Deadline() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadline, m.armed
}

func (m *IdleMonitor) resetLocked() {
	m.gen++
	gen := m.gen
	m.deadline = time.Now().Add(m.window)
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.window, func() {
		m.expire(gen)
	})
}

func (m *IdleMonitor) expire(gen uint64) {
	m.mu.Lock()
	if !m.armed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.armed = false
	m.timer = nil
	m.mu.Unlock()

	if m.onExpire != nil {
		m.onExpire()
	}
}
