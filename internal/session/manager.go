// Package session keeps one submission orchestrator per browser session.
//
// Sessions live in a bounded LRU with an idle TTL. Every access pushes the
// expiry forward; eviction (by TTL, by capacity or on shutdown) closes the
// orchestrator, which releases the session's preview and discards any
// classifier answer still in flight.
package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/JonMunkholm/RareDx/internal/config"
	"github.com/JonMunkholm/RareDx/internal/core"
)

// Session binds an id to its orchestrator.
type Session struct {
	ID           string
	Orchestrator *core.Orchestrator
	CreatedAt    time.Time
}

// Factory builds the orchestrator for a new session.
type Factory func(id string) *core.Orchestrator

// Manager is safe for concurrent use.
type Manager struct {
	cache   *expirable.LRU[string, *Session]
	factory Factory
	logger  *slog.Logger
}

// NewManager creates a manager bounded by cfg.MaxSessions and cfg.IdleTTL.
func NewManager(cfg config.SessionConfig, factory Factory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{factory: factory, logger: logger}
	m.cache = expirable.NewLRU[string, *Session](cfg.MaxSessions, m.onEvict, cfg.IdleTTL)
	return m
}

func (m *Manager) onEvict(id string, s *Session) {
	s.Orchestrator.Close()
	m.logger.Debug("session evicted",
		"session_id", id,
		"age", time.Since(s.CreatedAt).Round(time.Second).String(),
	)
}

// Get returns a live session and refreshes its idle deadline.
func (m *Manager) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, false
	}
	m.cache.Add(id, s)
	return s, true
}

// Create starts a new session with a fresh id.
func (m *Manager) Create() *Session {
	id := uuid.New().String()
	s := &Session{
		ID:           id,
		Orchestrator: m.factory(id),
		CreatedAt:    time.Now(),
	}
	m.cache.Add(id, s)
	m.logger.Debug("session created", "session_id", id)
	return s
}

// GetOrCreate returns the session for id, creating one when id is unknown
// or expired. created reports whether a new session was made.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := m.Get(id); ok {
		return s, false
	}
	return m.Create(), true
}

// Remove ends a session immediately.
func (m *Manager) Remove(id string) {
	m.cache.Remove(id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.cache.Len()
}

// Close ends every session.
func (m *Manager) Close() {
	m.cache.Purge()
}
