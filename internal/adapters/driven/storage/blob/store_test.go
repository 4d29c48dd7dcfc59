package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

func TestStore_PutGet(t *testing.T) {
	dataDir := t.TempDir()
	store, err := NewStore(dataDir)
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Put(ctx, "abc123", []byte("%PDF-1.4 bytes"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, DirName, "abc123.pdf"), path)

	data, err := store.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 bytes"), data)
}

func TestStore_PutIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := store.Put(ctx, "same", []byte("content"))
	require.NoError(t, err)
	info1, err := os.Stat(first)
	require.NoError(t, err)

	second, err := store.Put(ctx, "same", []byte("content"))
	require.NoError(t, err)
	info2, err := os.Stat(second)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestStore_GetMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_RejectsPathKeys(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		_, err := store.Put(context.Background(), key, []byte("x"))
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), key)
	}
}

func TestStore_PutRefusesDifferentContent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "0123456789abcdef", []byte("%PDF-A"))
	require.NoError(t, err)

	_, err = store.Put(ctx, "0123456789abcdef", []byte("%PDF-B"))
	assert.ErrorIs(t, err, domain.ErrIDConflict)

	data, err := store.Get(ctx, "0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-A"), data)
}
