// Package session models the client-held authentication state: the opaque
// bearer token and the cached user record. The pair has an explicit
// lifecycle — established at login, read by the HTTP client, and torn down
// exactly once per generation on logout or a 401.
package session

import (
	"encoding/json"
	"sync"

	"github.com/rockwatchstack/rockwatch/internal/models"
)

const (
	tokenKey = "rockwatch.token"
	userKey  = "rockwatch.user"
)

// Storage is the key/value store persisting the session between runs.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// Manager owns the session pair and its lifecycle.
type Manager struct {
	mu        sync.Mutex
	storage   Storage
	onExpired func()

	token  string
	user   models.User
	hasU   bool
	active bool
}

// NewManager restores any persisted session from storage. onExpired is the
// navigation-to-login side effect; it fires at most once per established
// session, no matter how many triggers race.
func NewManager(storage Storage, onExpired func()) *Manager {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	m := &Manager{storage: storage, onExpired: onExpired}

	if token, ok := storage.Get(tokenKey); ok && token != "" {
		m.token = token
		m.active = true
	}
	if raw, ok := storage.Get(userKey); ok && raw != "" {
		var u models.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			m.user = u
			m.hasU = true
		}
	}
	return m
}

// Set establishes a new session generation.
func (m *Manager) Set(token string, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.storage.Set(tokenKey, token); err != nil {
		return err
	}
	if err := m.storage.Set(userKey, string(raw)); err != nil {
		return err
	}
	m.token = token
	m.user = user
	m.hasU = true
	m.active = true
	return nil
}

// Token returns the current token, or "" when no session is established.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// User returns the cached user record, if present.
func (m *Manager) User() (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.hasU
}

// Active reports whether a session is currently established.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Invalidate tears the session down in response to an authentication failure.
// It is idempotent; the expiry hook fires only for the call that actually
// transitions an active session to cleared.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	wasActive := m.active
	m.clearLocked()
	hook := m.onExpired
	m.mu.Unlock()

	if wasActive && hook != nil {
		hook()
	}
}

// Clear tears the session down without the expiry side effect (explicit
// logout). Safe to call any number of times.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

func (m *Manager) clearLocked() {
	_ = m.storage.Delete(tokenKey)
	_ = m.storage.Delete(userKey)
	m.token = ""
	m.user = models.User{}
	m.hasU = false
	m.active = false
}

// MemoryStorage is an in-process Storage implementation.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

// Get returns the value for key.
func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores a value.
func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
