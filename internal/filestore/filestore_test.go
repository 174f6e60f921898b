package filestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/areawizard/internal/domain"
)

func newLocal(t *testing.T, dir string) *Local {
	t.Helper()
	store, err := NewLocal(dir, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLocalSaveAndGet(t *testing.T) {
	store := newLocal(t, t.TempDir())

	ctx := context.Background()
	data := []byte("fake jpeg data")

	key, err := store.Save(ctx, "arrime", "image/jpeg", bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "arrime_"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/jpeg", mimeType)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalDelete(t *testing.T) {
	store := newLocal(t, t.TempDir())
	ctx := context.Background()

	key, err := store.Save(ctx, "arrime", "audio/wav", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), ErrNotFound)
}

func TestLocalPathTraversal(t *testing.T) {
	store := newLocal(t, t.TempDir())

	for _, key := range []string{"../../etc/passwd", "sub/file.jpg", "", ".hidden.part"} {
		_, _, err := store.Get(context.Background(), key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
		assert.ErrorIs(t, store.Delete(context.Background(), key), ErrInvalidKey, key)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalSaveFailureLeavesNoFiles(t *testing.T) {
	dir := t.TempDir()
	store := newLocal(t, dir)

	_, err := store.Save(context.Background(), "arrime", "image/png", failingReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalSanitizesPrefix(t *testing.T) {
	store := newLocal(t, t.TempDir())

	key, err := store.Save(context.Background(), "../evil/area", "text/plain", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.NotContains(t, key, "/")
	assert.True(t, strings.HasPrefix(key, "___evil_area_"))
}

func TestAllowedMIME(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}
	webp := append([]byte("RIFF\x00\x00\x00\x00WEBP"), make([]byte, 10)...)
	wav := append([]byte("RIFF\x00\x00\x00\x00WAVE"), make([]byte, 10)...)
	pdf := []byte("%PDF-1.4 content")

	tests := []struct {
		name     string
		kind     domain.AttachmentKind
		data     []byte
		wantMIME string
		wantOK   bool
	}{
		{"photo JPEG", domain.KindPhoto, jpeg, "image/jpeg", true},
		{"image PNG", domain.KindImage, png, "image/png", true},
		{"image WebP", domain.KindImage, webp, "image/webp", true},
		{"image GIF", domain.KindImage, []byte("GIF89a"), "image/gif", true},
		{"image rejects PDF", domain.KindImage, pdf, "", false},
		{"photo rejects WAV", domain.KindPhoto, wav, "", false},
		{"audio WAV", domain.KindAudio, wav, "audio/wav", true},
		{"audio MP3", domain.KindAudio, []byte("ID3\x03\x00\x00\x00"), "audio/mpeg", true},
		{"audio rejects JPEG", domain.KindAudio, jpeg, "", false},
		{"file accepts PDF", domain.KindFile, pdf, "application/pdf", true},
		{"file accepts text", domain.KindFile, []byte("hola"), "text/plain", true},
		{"empty", domain.KindFile, nil, "", false},
		{"unknown kind", "video", jpeg, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, ok := AllowedMIME(tt.kind, tt.data)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMIME, mime)
		})
	}
}
