package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/RareDx/internal/config"
	"github.com/JonMunkholm/RareDx/internal/core"
)

type stubClassifier struct{}

func (stubClassifier) Classify(context.Context, core.ClassificationRequest) (core.ClassificationResult, error) {
	return core.ClassificationResult{{DiseaseName: "X", Confidence: 82}}, nil
}

func newTestManager(t *testing.T, cfg config.SessionConfig) (*Manager, *core.MemoryPreviewStore) {
	t.Helper()
	store := core.NewMemoryPreviewStore()
	m := NewManager(cfg, func(string) *core.Orchestrator {
		return core.NewOrchestrator(stubClassifier{}, store)
	}, nil)
	t.Cleanup(m.Close)
	return m, store
}

func selectImage(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.Orchestrator.SelectFile(&core.RawFile{
		Name:     "scan.png",
		MIMEType: "image/png",
		Data:     []byte("png"),
	}))
}

func TestManager_GetOrCreate(t *testing.T) {
	m, _ := newTestManager(t, config.SessionConfig{MaxSessions: 10, IdleTTL: time.Minute})

	s, created := m.GetOrCreate("")
	require.True(t, created)
	assert.NotEmpty(t, s.ID)

	again, created := m.GetOrCreate(s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)

	other, created := m.GetOrCreate("unknown-id")
	assert.True(t, created)
	assert.NotEqual(t, s.ID, other.ID)
	assert.Equal(t, 2, m.Len())
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	m, _ := newTestManager(t, config.SessionConfig{MaxSessions: 10, IdleTTL: time.Minute})

	a := m.Create()
	b := m.Create()
	selectImage(t, a)

	a.Orchestrator.Submit(context.Background())

	assert.True(t, a.Orchestrator.Outcome().IsSuccess())
	assert.True(t, b.Orchestrator.Outcome().IsIdle())
	_, ok := b.Orchestrator.SelectedFile()
	assert.False(t, ok)
}

func TestManager_RemoveReleasesPreview(t *testing.T) {
	m, store := newTestManager(t, config.SessionConfig{MaxSessions: 10, IdleTTL: time.Minute})

	s := m.Create()
	selectImage(t, s)
	require.Equal(t, 1, store.Len())

	m.Remove(s.ID)

	assert.Equal(t, 0, store.Len())
	_, ok := m.Get(s.ID)
	assert.False(t, ok)
}

func TestManager_CapacityEvictionReleasesPreview(t *testing.T) {
	m, store := newTestManager(t, config.SessionConfig{MaxSessions: 1, IdleTTL: time.Minute})

	first := m.Create()
	selectImage(t, first)
	require.Equal(t, 1, store.Len())

	m.Create()

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 0, store.Len())
	assert.ErrorIs(t, first.Orchestrator.SelectFile(&core.RawFile{Name: "x", Data: []byte("x")}), core.ErrControllerClosed)
}

func TestManager_IdleExpiryReleasesPreview(t *testing.T) {
	m, store := newTestManager(t, config.SessionConfig{MaxSessions: 10, IdleTTL: 50 * time.Millisecond})

	s := m.Create()
	selectImage(t, s)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	_, ok := m.Get(s.ID)
	assert.False(t, ok)
}

func TestManager_CloseEndsAllSessions(t *testing.T) {
	m, store := newTestManager(t, config.SessionConfig{MaxSessions: 10, IdleTTL: time.Minute})

	for i := 0; i < 3; i++ {
		selectImage(t, m.Create())
	}
	require.Equal(t, 3, store.Len())

	m.Close()

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, store.Len())
}
