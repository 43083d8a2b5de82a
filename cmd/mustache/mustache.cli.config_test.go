package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/itsatony/go-mustache"
)

func TestLoadFileConfig(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		cfg, err := loadFileConfig("")
		require.NoError(t, err)
		assert.Nil(t, cfg.MaxDepth)
		assert.Empty(t, cfg.PartialsDir)
	})

	t.Run("full document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `delimiters:
  open: "[["
  close: "]]"
iterator: it
max_depth: 0
partials_dir: ./partials
storage:
  driver: sqlite
  dsn: partials.db
  cache_ttl: 90s
log_level: debug
`
		require.NoError(t, os.WriteFile(path, []byte(content), FilePermissions))

		cfg, err := loadFileConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "[[", cfg.Delimiters.Open)
		assert.Equal(t, "]]", cfg.Delimiters.Close)
		assert.Equal(t, "it", cfg.Iterator)
		require.NotNil(t, cfg.MaxDepth)
		assert.Equal(t, 0, *cfg.MaxDepth)
		assert.Equal(t, "./partials", cfg.PartialsDir)
		assert.Equal(t, mustache.StorageDriverNameSQLite, cfg.Storage.Driver)
		assert.Equal(t, "partials.db", cfg.Storage.DSN)
		assert.Equal(t, 90*time.Second, cfg.Storage.CacheTTL)
		assert.Equal(t, ConfigLogLevelDebug, cfg.LogLevel)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_depth: [oops"), FilePermissions))
		_, err := loadFileConfig(path)
		assert.Error(t, err)
	})
}

func TestBuildEngine(t *testing.T) {
	t.Run("half delimiters rejected", func(t *testing.T) {
		cfg := &fileConfig{}
		cfg.Delimiters.Open = "<%"
		_, err := buildEngine(cfg, nil, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgConfigFailed)
	})

	t.Run("max depth applies", func(t *testing.T) {
		depth := 2
		engine, err := buildEngine(&fileConfig{MaxDepth: &depth}, nil, zap.NewNop())
		require.NoError(t, err)
		engine.MustRegisterPartial("loop", "x{{>loop}}")

		out, err := engine.Render("{{>loop}}", nil)
		require.NoError(t, err)
		assert.Equal(t, "xx", out)
	})
}

func TestOpenPartialStorage(t *testing.T) {
	logger := zap.NewNop()

	t.Run("none configured", func(t *testing.T) {
		storage, err := openPartialStorage("", &fileConfig{}, logger)
		require.NoError(t, err)
		assert.Nil(t, storage)
	})

	t.Run("flag beats config", func(t *testing.T) {
		flagDir := t.TempDir()
		cfg := &fileConfig{PartialsDir: t.TempDir()}
		storage, err := openPartialStorage(flagDir, cfg, logger)
		require.NoError(t, err)
		defer storage.Close()

		fs, ok := storage.(*mustache.FilesystemStorage)
		require.True(t, ok)
		assert.Equal(t, flagDir, fs.Root())
	})

	t.Run("sqlite driver from config", func(t *testing.T) {
		cfg := &fileConfig{}
		cfg.Storage.Driver = mustache.StorageDriverNameSQLite
		cfg.Storage.DSN = filepath.Join(t.TempDir(), "partials.db")

		storage, err := openPartialStorage("", cfg, logger)
		require.NoError(t, err)
		defer storage.Close()

		ctx := context.Background()
		require.NoError(t, storage.Save(ctx, &mustache.StoredPartial{Name: "hi", Source: "Hi {{who}}"}))

		engine, err := buildEngine(cfg, storage, logger)
		require.NoError(t, err)
		out, err := engine.Render("{{>hi}}!", map[string]any{"who": "there"})
		require.NoError(t, err)
		assert.Equal(t, "Hi there!", out)
	})

	t.Run("cache ttl wraps storage", func(t *testing.T) {
		cfg := &fileConfig{}
		cfg.Storage.CacheTTL = time.Minute
		dir := t.TempDir()

		storage, err := openPartialStorage(dir, cfg, logger)
		require.NoError(t, err)
		defer storage.Close()

		cached, ok := storage.(*mustache.CachedStorage)
		require.True(t, ok)
		assert.IsType(t, &mustache.FilesystemStorage{}, cached.Unwrap())

		fs, invalidate, ok := watchablePartials(storage)
		require.True(t, ok)
		assert.Equal(t, dir, fs.Root())

		ctx := context.Background()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "p.mustache"), []byte("v1"), FilePermissions))
		p, err := storage.Get(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, "v1", p.Source)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "p.mustache"), []byte("v2"), FilePermissions))
		p, err = storage.Get(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, "v1", p.Source)

		invalidate("p")
		p, err = storage.Get(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, "v2", p.Source)
	})

	t.Run("memory storage is not watchable", func(t *testing.T) {
		_, _, ok := watchablePartials(mustache.NewMemoryStorage())
		assert.False(t, ok)
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := &fileConfig{}
		cfg.Storage.Driver = "nope"
		_, err := openPartialStorage("", cfg, logger)
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	newLogger(buf, false).Info("hidden")
	assert.Empty(t, buf.String())

	newLogger(buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
