package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sptrsv/sptrsv-sim/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("CreateWithDefaultPath", func(t *testing.T) {
		tempDir := t.TempDir()
		defaultPath := filepath.Join(tempDir, "storage")

		storage, err := NewLocalStorage(defaultPath)
		require.NoError(t, err)
		require.NotNil(t, storage)

		info, err := os.Stat(defaultPath)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("CreateWithEmptyPath", func(t *testing.T) {
		origDir, err := os.Getwd()
		require.NoError(t, err)
		defer os.Chdir(origDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		storage, err := NewLocalStorage("")
		require.NoError(t, err)
		require.NotNil(t, storage)
		assert.Equal(t, "./storage", storage.basePath)
	})
}

func TestLocalStorage_Upload(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	t.Run("UploadFromReader", func(t *testing.T) {
		content := []byte("test content for upload")
		reader := bytes.NewReader(content)

		err := storage.Upload(context.Background(), "test/file.txt", reader)
		require.NoError(t, err)

		filePath := filepath.Join(tempDir, "test", "file.txt")
		data, err := os.ReadFile(filePath)
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("UploadWithCanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := storage.Upload(ctx, "canceled.txt", bytes.NewReader([]byte("test")))
		assert.Error(t, err)
	})
}

func TestLocalStorage_Download(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	t.Run("DownloadExistingFile", func(t *testing.T) {
		content := []byte("download test content")
		filePath := filepath.Join(tempDir, "download", "test.txt")
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, content, 0644))

		reader, err := storage.Download(context.Background(), "download/test.txt")
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("DownloadNonExistentFile", func(t *testing.T) {
		_, err := storage.Download(context.Background(), "nonexistent.txt")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "file not found")
	})
}

func TestNewStorage(t *testing.T) {
	t.Run("CreateLocalStorage", func(t *testing.T) {
		tempDir := t.TempDir()
		cfg := &config.StorageConfig{
			Type:      "local",
			LocalPath: tempDir,
		}

		storage, err := NewStorage(cfg)
		require.NoError(t, err)
		require.NotNil(t, storage)

		_, ok := storage.(*LocalStorage)
		assert.True(t, ok)
	})

	t.Run("CreateDefaultStorage", func(t *testing.T) {
		tempDir := t.TempDir()
		cfg := &config.StorageConfig{
			Type:      "",
			LocalPath: tempDir,
		}

		storage, err := NewStorage(cfg)
		require.NoError(t, err)
		require.NotNil(t, storage)

		_, ok := storage.(*LocalStorage)
		assert.True(t, ok)
	})
}
