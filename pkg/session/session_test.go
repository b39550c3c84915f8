package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionBeginAndCurrent(t *testing.T) {
	store := NewMemoryStore()
	s := New(store, time.Minute, nil, nil)

	s.Begin(State{Token: "tok", Username: "alice", Role: "user", UserID: "u1"})

	assert.Equal(t, "tok", s.Token())
	current := s.Current()
	require.NotNil(t, current)
	assert.Equal(t, "alice", current.Username)

	persisted, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "tok", persisted.Token)
}

func TestSessionRestoredFromStore(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(&State{Token: "tok", Username: "alice", UserID: "u1"}))

	s := New(store, time.Minute, nil, nil)
	assert.Equal(t, "tok", s.Token())

	_, armed := s.monitor.Deadline()
	assert.True(t, armed)
}

func TestSessionLogout(t *testing.T) {
	store := NewMemoryStore()
	var reasons []EndReason
	s := New(store, time.Minute, func(r EndReason) { reasons = append(reasons, r) }, nil)

	s.Begin(State{Token: "tok", Username: "alice"})
	s.SetCached("students", []string{"Ana"})
	s.Logout()

	assert.Empty(t, s.Token())
	assert.Nil(t, s.Current())
	_, ok := s.Cached("students")
	assert.False(t, ok)
	assert.Equal(t, []EndReason{ReasonLogout}, reasons)

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, persisted)
}

func TestSessionTeardownIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	var reasons []EndReason
	s := New(NewMemoryStore(), time.Minute, func(r EndReason) {
		mu.Lock()
		reasons = append(reasons, r)
		mu.Unlock()
	}, nil)

	s.Begin(State{Token: "tok"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Expire(ReasonUnauthorized)
		}()
	}
	wg.Wait()
	s.Logout()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reasons, 1)
	assert.Equal(t, ReasonUnauthorized, reasons[0])
}

func TestSessionIdleExpiry(t *testing.T) {
	done := make(chan EndReason, 1)
	s := New(NewMemoryStore(), 30*time.Millisecond, func(r EndReason) { done <- r }, nil)

	s.Begin(State{Token: "tok", Username: "alice"})

	select {
	case reason := <-done:
		assert.Equal(t, ReasonIdle, reason)
	case <-time.After(time.Second):
		t.Fatal("idle expiry never fired")
	}
	assert.Empty(t, s.Token())
}

func TestSessionActivityKeepsSessionAlive(t *testing.T) {
	done := make(chan EndReason, 1)
	s := New(NewMemoryStore(), 60*time.Millisecond, func(r EndReason) { done <- r }, nil)

	s.Begin(State{Token: "tok"})
	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		s.Activity()
	}
	assert.Equal(t, "tok", s.Token())

	select {
	case reason := <-done:
		assert.Equal(t, ReasonIdle, reason)
	case <-time.After(time.Second):
		t.Fatal("idle expiry never fired after activity stopped")
	}
}

func TestSessionBeginAfterExpiryStartsFresh(t *testing.T) {
	s := New(NewMemoryStore(), time.Minute, nil, nil)

	s.Begin(State{Token: "tok1", Username: "alice"})
	s.Logout()

	s.Begin(State{Token: "tok2", Username: "bob"})
	assert.Equal(t, "tok2", s.Token())

	_, armed := s.monitor.Deadline()
	assert.True(t, armed)
}
