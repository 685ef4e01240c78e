package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/storage"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

func backends(t *testing.T) map[string]ports.StorageClient {
	t.Helper()

	mr := miniredis.RunT(t)
	rds, err := storage.NewRedis(context.Background(), domain.RedisSettings{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rds.Close() })

	return map[string]ports.StorageClient{
		"filesystem": storage.NewFilesystem(t.TempDir()),
		"memory":     storage.NewMemory(),
		"redis":      rds,
	}
}

func TestBackends_PutGetExists(t *testing.T) {
	ctx := context.Background()
	key := domain.VerdictKey(domain.NewTaskName("app", "build"), "abc", domain.VerdictOK)
	other := domain.BlobKey("deadbeef")

	for name, client := range backends(t) {
		t.Run(name, func(t *testing.T) {
			exists, err := client.ObjectExists(ctx, key)
			require.NoError(t, err)
			assert.False(t, exists)

			_, err = client.GetObject(ctx, key)
			require.ErrorIs(t, err, domain.ErrObjectNotFound)

			require.NoError(t, client.PutObject(ctx, key, []byte(`{"blobId":"x"}`)))

			exists, err = client.ObjectExists(ctx, key)
			require.NoError(t, err)
			assert.True(t, exists)

			got, err := client.GetObject(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"blobId":"x"}`), got)

			require.NoError(t, client.PutObject(ctx, key, []byte("overwritten")))
			got, err = client.GetObject(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, []byte("overwritten"), got)

			exists, err = client.ObjectExists(ctx, other)
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestFilesystem_Layout(t *testing.T) {
	dir := t.TempDir()
	client := storage.NewFilesystem(dir)
	key := domain.BlobKey("0123")

	require.NoError(t, client.PutObject(context.Background(), key, []byte("bundle")))

	digest := key.Digest()
	data, err := os.ReadFile(filepath.Join(dir, "objects", digest[:2], digest))
	require.NoError(t, err)
	assert.Equal(t, []byte("bundle"), data)

	entries, err := os.ReadDir(filepath.Join(dir, "objects", digest[:2]))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are renamed away")
}

func TestMemory_CopiesContent(t *testing.T) {
	ctx := context.Background()
	client := storage.NewMemory()
	key := domain.BlobKey("1")
	content := []byte("abc")

	require.NoError(t, client.PutObject(ctx, key, content))
	content[0] = 'x'

	got, err := client.GetObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
	assert.Equal(t, 1, client.Len())
}

func TestRedis_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := storage.NewRedis(context.Background(), domain.RedisSettings{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close() //nolint:errcheck // Test cleanup

	key := domain.BlobKey("1")
	require.NoError(t, client.PutObject(context.Background(), key, []byte("v")))

	got, err := mr.Get("kiln:" + key.Digest())
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := storage.NewRedis(context.Background(), domain.RedisSettings{Addr: addr})
	require.Error(t, err)
}

func TestOpener_Open(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	opener := storage.NewOpener()

	client, err := opener.Open(ctx, root, domain.CacheSettings{})
	require.NoError(t, err)
	require.IsType(t, &storage.Filesystem{}, client)

	key := domain.BlobKey("1")
	require.NoError(t, client.PutObject(ctx, key, []byte("v")))
	_, err = os.Stat(filepath.Join(root, domain.DefaultStorePath(), "objects"))
	require.NoError(t, err)

	client, err = opener.Open(ctx, root, domain.CacheSettings{Backend: domain.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &storage.Memory{}, client)

	mr := miniredis.RunT(t)
	client, err = opener.Open(ctx, root, domain.CacheSettings{
		Backend: domain.BackendRedis,
		Redis:   domain.RedisSettings{Addr: mr.Addr()},
	})
	require.NoError(t, err)
	assert.IsType(t, &storage.Redis{}, client)

	_, err = opener.Open(ctx, root, domain.CacheSettings{Backend: "s3"})
	require.ErrorIs(t, err, domain.ErrUnknownBackend)
}
