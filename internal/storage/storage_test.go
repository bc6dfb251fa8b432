package storage_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/straye-as/season-planning-api/internal/config"
	"github.com/straye-as/season-planning-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStorageInterfaceCompliance(t *testing.T) {
	var _ storage.Storage = (*storage.LocalStorage)(nil)
	var _ storage.Storage = (*storage.AzureBlobStorage)(nil)
}

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), "archive")

	ls, err := storage.NewLocalStorage(basePath)
	require.NoError(t, err)
	assert.NotNil(t, ls)

	info, err := os.Stat(basePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	key := "seasons/SS25-AB12/snapshot.json"

	size, err := ls.Put(ctx, key, "application/json", strings.NewReader(`{"status":"locked"}`))
	require.NoError(t, err)
	assert.EqualValues(t, 19, size)

	// overwrite
	_, err = ls.Put(ctx, key, "application/json", strings.NewReader(`{"v":2}`))
	require.NoError(t, err)

	rc, err := ls.Get(ctx, key)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(content))

	require.NoError(t, ls.Delete(ctx, key))
	_, err = ls.Get(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.NoError(t, ls.Delete(ctx, key), "deleting a missing key is not an error")
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", ".", "..", "../outside.json", "seasons/../../outside.json", "/etc/passwd"} {
		t.Run(key, func(t *testing.T) {
			_, err := ls.Put(ctx, key, "text/plain", bytes.NewReader([]byte("x")))
			assert.Error(t, err)
			_, err = ls.Get(ctx, key)
			assert.Error(t, err)
			assert.Error(t, ls.Delete(ctx, key))
		})
	}
}

func TestNewStorage(t *testing.T) {
	ctx := context.Background()

	s, err := storage.NewStorage(ctx, &config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, s)

	_, err = storage.NewStorage(ctx, &config.StorageConfig{Mode: "azure"}, zap.NewNop())
	assert.Error(t, err, "azure requires a connection string")

	_, err = storage.NewStorage(ctx, &config.StorageConfig{Mode: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}
