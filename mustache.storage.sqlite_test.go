package mustache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "partials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func TestSQLiteStorage_SoftDelete(t *testing.T) {
	storage := newTestSQLiteStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, &StoredPartial{Name: "p", Source: "v1"}))
	require.NoError(t, storage.Delete(ctx, "p"))

	t.Run("deleted rows are hidden", func(t *testing.T) {
		_, err := storage.Get(ctx, "p")
		assert.True(t, IsPartialNotFound(err))

		names, err := storage.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("deleted rows are kept until purged", func(t *testing.T) {
		var count int64
		require.NoError(t, storage.db.Unscoped().Model(&sqlitePartial{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("save revives", func(t *testing.T) {
		require.NoError(t, storage.Save(ctx, &StoredPartial{Name: "p", Source: "v2"}))
		got, err := storage.Get(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, "v2", got.Source)
		assert.Equal(t, PartialDigest("v2"), got.Digest)
	})
}

func TestSQLiteStorage_Purge(t *testing.T) {
	storage := newTestSQLiteStorage(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, storage.Save(ctx, &StoredPartial{Name: name, Source: name}))
	}
	require.NoError(t, storage.Delete(ctx, "a"))
	require.NoError(t, storage.Delete(ctx, "b"))

	purged, err := storage.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	var count int64
	require.NoError(t, storage.db.Unscoped().Model(&sqlitePartial{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	purged, err = storage.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestSQLiteStorage_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partials.db")
	ctx := context.Background()

	first, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, &StoredPartial{Name: "kept", Source: "{{x}}"}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, "{{x}}", got.Source)
}

func TestSQLiteStorage_CloseTwice(t *testing.T) {
	storage, err := NewSQLiteStorage("")
	require.NoError(t, err)
	require.NoError(t, storage.Close())
	assert.NoError(t, storage.Close())
}
