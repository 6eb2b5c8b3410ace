package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	info, err := store.Put(ctx, "license.pdf", "application/pdf",
		strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	require.NotEmpty(t, info.ID)
	assert.Equal(t, int64(9), info.ByteSize)

	data, err := store.Download(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))

	r, err := store.Open(ctx, info.ID)
	require.NoError(t, err)
	streamed, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, data, streamed)

	stat, err := store.Stat(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "license.pdf", stat.Filename)
	assert.Equal(t, "application/pdf", stat.ContentType)
	assert.Equal(t, int64(9), stat.ByteSize)
}

func TestDiskStoreLocalPath(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	info, err := store.Put(context.Background(), "x.txt", "text/plain",
		strings.NewReader("x"))
	require.NoError(t, err)

	path, ok := store.LocalPath(info.ID)
	require.True(t, ok)
	assert.NotEmpty(t, path)

	_, ok = store.LocalPath("no-such-blob")
	assert.False(t, ok)
}

func TestDiskStoreMissingBlob(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "missing")
	require.Error(t, err)

	_, err = store.Stat(context.Background(), "missing")
	require.Error(t, err)
}

func TestNewDiskStoreRequiresRoot(t *testing.T) {
	_, err := NewDiskStore("")
	require.Error(t, err)
}
