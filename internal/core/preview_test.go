package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview_ReleaseOnce(t *testing.T) {
	calls := 0
	p := NewPreview("tok", func() { calls++ })

	p.Release()
	p.Release()
	p.Release()

	assert.Equal(t, 1, calls)
	assert.Equal(t, "tok", p.Token())
}

func TestPreview_NilSafe(t *testing.T) {
	var p *Preview
	assert.Equal(t, "", p.Token())
	assert.NotPanics(t, p.Release)
}

func TestMemoryPreviewStore(t *testing.T) {
	store := NewMemoryPreviewStore()

	p, err := store.Acquire([]byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.NotEmpty(t, p.Token())
	assert.Equal(t, 1, store.Len())

	data, err := store.Open(p.Token())
	require.NoError(t, err)
	assert.Equal(t, "image/png", data.MIMEType)
	assert.Equal(t, []byte("png-bytes"), data.Data)

	p.Release()
	assert.Equal(t, 0, store.Len())

	_, err = store.Open(p.Token())
	assert.ErrorIs(t, err, ErrPreviewNotFound)
}

func TestMemoryPreviewStore_DistinctTokens(t *testing.T) {
	store := NewMemoryPreviewStore()

	a, err := store.Acquire([]byte("a"), "image/png")
	require.NoError(t, err)
	b, err := store.Acquire([]byte("b"), "image/png")
	require.NoError(t, err)

	assert.NotEqual(t, a.Token(), b.Token())
	assert.Equal(t, 2, store.Len())
}
