package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdirect/farmdirect/pkg/storage"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	disk := storage.NewLocal(t.TempDir())

	require.NoError(t, disk.Put(ctx, "backups/a/users.jsonl", strings.NewReader("{\"_id\":1}\n")))
	require.NoError(t, disk.Put(ctx, "backups/b/orders.jsonl", strings.NewReader("{}\n")))

	rc, err := disk.Get(ctx, "backups/a/users.jsonl")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "{\"_id\":1}\n", string(data))

	objs, err := disk.List(ctx, "backups")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "backups/a/users.jsonl", objs[0].Path)
	assert.Equal(t, int64(10), objs[0].Size)

	require.NoError(t, disk.Delete(ctx, "backups/a/users.jsonl", "backups/missing.jsonl"))
	objs, err = disk.List(ctx, "backups")
	require.NoError(t, err)
	assert.Len(t, objs, 1)

	assert.True(t, strings.HasPrefix(disk.URL("backups/b/orders.jsonl"), "file://"))
}

func TestLocalListMissingPrefix(t *testing.T) {
	objs, err := storage.NewLocal(t.TempDir()).List(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestNewest(t *testing.T) {
	now := time.Now()
	objs := []storage.Object{
		{Path: "old", Modified: now.Add(-2 * time.Hour)},
		{Path: "new", Modified: now},
		{Path: "mid", Modified: now.Add(-time.Hour)},
	}
	storage.Newest(objs)
	assert.Equal(t, "new", objs[0].Path)
	assert.Equal(t, "old", objs[2].Path)
}

func TestOpenUnknownDisk(t *testing.T) {
	_, err := storage.Open(context.Background(), "ftp")
	assert.True(t, errors.Is(err, storage.ErrUnknownDisk))
}
