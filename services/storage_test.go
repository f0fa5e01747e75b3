package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	tempDir := t.TempDir()

	storage := NewLocalStorage(tempDir)
	ctx := context.Background()
	content := "witness statement"
	key := "cases/7/statement.txt"

	t.Run("Upload creates file", func(t *testing.T) {
		result, err := storage.Upload(ctx, strings.NewReader(content), key, "", int64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, key, result.Key)
		assert.Equal(t, int64(len(content)), result.Size)
		assert.Equal(t, "text/plain", result.MimeType)
		assert.Equal(t, "/"+filepath.ToSlash(filepath.Join(tempDir, key)), result.URL)

		_, err = os.Stat(filepath.Join(tempDir, key))
		assert.NoError(t, err)
	})

	t.Run("Get retrieves file content", func(t *testing.T) {
		reader, contentType, err := storage.Get(ctx, key)
		require.NoError(t, err)
		defer reader.Close()

		got, _ := io.ReadAll(reader)
		assert.Equal(t, content, string(got))
		assert.Equal(t, "text/plain", contentType)
	})

	t.Run("Get detects MIME types", func(t *testing.T) {
		_, err := storage.Upload(ctx, strings.NewReader("%PDF-1.4"), "cases/7/report.pdf", "application/pdf", 8)
		require.NoError(t, err)

		reader, contentType, err := storage.Get(ctx, "cases/7/report.pdf")
		require.NoError(t, err)
		reader.Close()
		assert.Equal(t, "application/pdf", contentType)
	})

	t.Run("Delete removes file", func(t *testing.T) {
		assert.NoError(t, storage.Delete(ctx, key))
		_, err := os.Stat(filepath.Join(tempDir, key))
		assert.True(t, os.IsNotExist(err))

		// deleting twice is not an error
		assert.NoError(t, storage.Delete(ctx, key))
	})

	t.Run("Rejects path traversal", func(t *testing.T) {
		_, err := storage.Upload(ctx, strings.NewReader("x"), "../escape.txt", "", 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "path traversal")
	})

	t.Run("Signed URL is the local path", func(t *testing.T) {
		signed, err := storage.GetSignedURL(ctx, "cases/7/report.pdf", time.Hour)
		assert.NoError(t, err)
		assert.Equal(t, "/"+filepath.ToSlash(filepath.Join(tempDir, "cases/7/report.pdf")), signed)
	})
}

func TestGenerateStorageKey(t *testing.T) {
	key := GenerateStorageKey(42, "Evidence.PDF")
	assert.True(t, strings.HasPrefix(key, "cases/42/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	parts := strings.Split(strings.TrimPrefix(key, fmt.Sprintf("cases/%d/", 42)), "_")
	assert.Len(t, parts, 2)
	assert.NotEqual(t, key, GenerateStorageKey(42, "Evidence.PDF"))
}

func TestIsConfigured(t *testing.T) {
	assert.True(t, NewLocalStorage(t.TempDir()).IsConfigured())
	assert.False(t, (&R2Storage{bucket: "evidence"}).IsConfigured())
}
