package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLocalStorePutAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	content := "quarterly report contents"
	err := store.Put(ctx, "ab12cd.pdf", strings.NewReader(content), int64(len(content)), "application/pdf")
	require.NoError(t, err)

	rc, err := store.Get(ctx, "ab12cd.pdf")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestLocalStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStoreOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k.txt", strings.NewReader("v1"), 2, "text/plain"))
	require.NoError(t, store.Put(ctx, "k.txt", strings.NewReader("v2"), 2, "text/plain"))

	rc, err := store.Get(ctx, "k.txt")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestLocalStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "gone.txt", strings.NewReader("x"), 1, "text/plain"))

	removed, err := store.Delete(ctx, "gone.txt")
	require.NoError(t, err)
	assert.True(t, removed)

	// Second delete reports absence without failing
	removed, err = store.Delete(ctx, "gone.txt")
	require.NoError(t, err)
	assert.False(t, removed)

	exists, err := store.Exists(ctx, "gone.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Put(ctx, "../escape.txt", strings.NewReader("x"), 1, "text/plain")
	assert.Error(t, err)

	_, err = store.Get(ctx, "../../etc/passwd")
	assert.Error(t, err)

	_, err = store.Delete(ctx, "")
	assert.Error(t, err)
}
