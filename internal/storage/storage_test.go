package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func TestUploaderSavesUnderAttachmentPrefix(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	up := NewUploader(local, 1024)

	body := "%PDF-1.4\nhello"
	att, err := up.Save(ctx, "C:\\docs\\report.PDF", strings.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(att.StorageKey, AttachmentPrefix))
	assert.True(t, strings.HasSuffix(att.StorageKey, ".pdf"))
	assert.Equal(t, "application/pdf", att.MimeType)
	assert.Equal(t, int64(len(body)), att.SizeBytes)

	dl, err := up.Fetch(ctx, att.StorageKey)
	require.NoError(t, err)
	defer dl.Body.Close()
	got, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))

	require.NoError(t, up.Discard(ctx, att.StorageKey))
	_, err = up.Fetch(ctx, att.StorageKey)
	assert.True(t, errorutil.IsNotFound(err))
}

func TestUploaderRejectsLargeFiles(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	up := NewUploader(local, 4)

	_, err = up.Save(context.Background(), "a.txt", strings.NewReader("too long"), 8)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUploaderUsesDetectedExtension(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	up := NewUploader(local, 0)

	png := "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 16)
	att, err := up.Save(context.Background(), "screenshot", strings.NewReader(png), int64(len(png)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.MimeType)
	assert.True(t, strings.HasSuffix(att.StorageKey, ".png"))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	err = local.Put(context.Background(), "../escape.txt", "text/plain", strings.NewReader("x"), 1)
	assert.Error(t, err)
}

func TestNewSelectsDriver(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{Driver: "local", LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = New(context.Background(), config.StorageConfig{Driver: "s3"})
	assert.Error(t, err)

	_, err = New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
