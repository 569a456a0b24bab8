package handler

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// oauthState tracks one in-flight authorization round trip. Mode is "login"
// or "merge"; for merge the state also pins which provider the follow-up
// callback must come from.
type oauthState struct {
	Provider  string
	Mode      string
	ReturnTo  string
	ExpiresAt time.Time
}

type oauthStateStore struct {
	mu    sync.Mutex
	items map[string]oauthState
}

func newOAuthStateStore() *oauthStateStore {
	return &oauthStateStore{items: make(map[string]oauthState)}
}

func (s *oauthStateStore) Create(provider, mode, returnTo string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	state := randomState()
	s.items[state] = oauthState{
		Provider:  provider,
		Mode:      mode,
		ReturnTo:  returnTo,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	return state
}

func (s *oauthStateStore) Consume(state string) (oauthState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	item, ok := s.items[state]
	if !ok {
		return oauthState{}, false
	}
	delete(s.items, state)
	if time.Now().After(item.ExpiresAt) {
		return oauthState{}, false
	}
	return item, true
}

func (s *oauthStateStore) cleanupLocked() {
	if len(s.items) == 0 {
		return
	}
	now := time.Now()
	for key, item := range s.items {
		if now.After(item.ExpiresAt) {
			delete(s.items, key)
		}
	}
}

func randomState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
