package core

// preview.go implements the scoped preview resource attached to a selected file.
//
// A Preview is an opaque, revocable reference to the selected image bytes
// (the web surface serves it at /preview/{token}). Every Preview is released
// exactly once: when a new selection replaces it or when the owning
// controller is closed. Release is idempotent so teardown paths can overlap.

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrPreviewNotFound is returned when a preview token is unknown or released.
var ErrPreviewNotFound = errors.New("preview not found")

// Preview is a handle to an acquired preview resource.
type Preview struct {
	token   string
	release func()
	once    sync.Once
}

// NewPreview wraps a token and its release function. release runs at most once.
func NewPreview(token string, release func()) *Preview {
	return &Preview{token: token, release: release}
}

// Token identifies the preview within its store.
func (p *Preview) Token() string {
	if p == nil {
		return ""
	}
	return p.token
}

// Release frees the underlying resource. Calls after the first are no-ops.
func (p *Preview) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		if p.release != nil {
			p.release()
		}
	})
}

// PreviewStore hands out preview resources for selected files.
type PreviewStore interface {
	Acquire(data []byte, mimeType string) (*Preview, error)
}

// PreviewData is the content behind a preview token.
type PreviewData struct {
	Data     []byte
	MIMEType string
}

// MemoryPreviewStore keeps previews in memory keyed by a random token.
// It is safe for concurrent use and shared by all sessions.
type MemoryPreviewStore struct {
	mu      sync.RWMutex
	entries map[string]PreviewData
}

// NewMemoryPreviewStore creates an empty store.
func NewMemoryPreviewStore() *MemoryPreviewStore {
	return &MemoryPreviewStore{entries: make(map[string]PreviewData)}
}

// Acquire registers data and returns a handle whose Release deletes it.
func (s *MemoryPreviewStore) Acquire(data []byte, mimeType string) (*Preview, error) {
	token := uuid.New().String()

	s.mu.Lock()
	s.entries[token] = PreviewData{Data: data, MIMEType: mimeType}
	s.mu.Unlock()

	return NewPreview(token, func() {
		s.mu.Lock()
		delete(s.entries, token)
		s.mu.Unlock()
	}), nil
}

// Open returns the content for a live token.
func (s *MemoryPreviewStore) Open(token string) (PreviewData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.entries[token]
	if !ok {
		return PreviewData{}, ErrPreviewNotFound
	}
	return data, nil
}

// Len returns the number of live previews.
func (s *MemoryPreviewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
