// Package session implements the client side of the session protocol: an
// explicit session context holding the bearer token, a persistence store,
// and an inactivity monitor that force-expires the session independently
// of server-side token expiry.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EndReason says why a session was torn down.
type EndReason string

const (
	// ReasonLogout is an explicit user logout.
	ReasonLogout EndReason = "logout"
	// ReasonIdle is the inactivity window elapsing with no user activity.
	ReasonIdle EndReason = "idle"
	// ReasonUnauthorized is a 401 from any API call.
	ReasonUnauthorized EndReason = "unauthorized"
)

// IdleNoticeDuration is how long the "session expired due to inactivity"
// notice stays visible before self-dismissing. Presentation owns the actual
// dismissal; the constant lives here so every surface uses the same value.
const IdleNoticeDuration = 5 * time.Second

// State is the persisted session payload.
type State struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
	UserID   string `json:"user_id"`
}

// Session is the client session context. It is initialized from the store
// at startup, updated on login/signup, and torn down exactly once per
// session on logout, idle expiry or a 401 — concurrent teardown triggers
// collapse into a single end notification.
type Session struct {
	mu      sync.Mutex
	state   *State
	cached  map[string]interface{}
	store   Store
	monitor *IdleMonitor
	onEnd   func(EndReason)
	logger  *zap.Logger
}

// New builds a Session backed by the given store. idleWindow <= 0 uses
// DefaultIdleWindow. onEnd is invoked once per teardown with the reason;
// it may be nil. Any state persisted in the store is restored and, when it
// carries a token, the idle monitor is armed immediately.
func New(store Store, idleWindow time.Duration, onEnd func(EndReason), logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryStore()
	}

	s := &Session{
		cached: make(map[string]interface{}),
		store:  store,
		onEnd:  onEnd,
		logger: logger,
	}
	s.monitor = NewIdleMonitor(idleWindow, func() {
		s.end(ReasonIdle)
	})

	if state, err := store.Load(); err == nil && state != nil && state.Token != "" {
		s.state = state
		s.monitor.Arm()
	}

	return s
}

// Begin installs a freshly authenticated state, persists it and arms the
// idle monitor.
func (s *Session) Begin(state State) {
	s.mu.Lock()
	s.state = &state
	s.cached = make(map[string]interface{})
	s.mu.Unlock()

	if err := s.store.Save(&state); err != nil {
		s.logger.Warn("failed to persist session", zap.Error(err))
	}
	s.monitor.Arm()
}

// Token returns the held bearer token, or "" when no session is active.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ""
	}
	return s.state.Token
}

// Current returns a copy of the session state, or nil when logged out.
func (s *Session) Current() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	copy := *s.state
	return &copy
}

// Activity records a qualifying user-activity signal, pushing the idle
// deadline out to now plus the window.
func (s *Session) Activity() {
	s.monitor.Activity()
}

// SetCached stores resource data scoped to the session lifetime.
func (s *Session) SetCached(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached[key] = value
}

// Cached returns session-scoped resource data.
func (s *Session) Cached(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cached[key]
	return v, ok
}

// Logout tears the session down as an explicit user action.
func (s *Session) Logout() {
	s.end(ReasonLogout)
}

// Expire tears the session down for the given reason. Used by the API
// client on 401 responses.
func (s *Session) Expire(reason EndReason) {
	s.end(reason)
}

// end performs the idempotent teardown: discard token and cached data,
// clear persisted state, disarm the timer, notify once.
func (s *Session) end(reason EndReason) {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return
	}
	s.state = nil
	s.cached = make(map[string]interface{})
	s.mu.Unlock()

	s.monitor.Disarm()
	if err := s.store.Clear(); err != nil {
		s.logger.Warn("failed to clear persisted session", zap.Error(err))
	}
	s.logger.Info("session ended", zap.String("reason", string(reason)))

	if s.onEnd != nil {
		s.onEnd(reason)
	}
}
