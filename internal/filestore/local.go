package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for storage keys that are not a plain file name
// inside the attachment directory.
var ErrInvalidKey = errors.New("invalid storage key")

// Local stores attachment content as flat files in one directory. All file
// access goes through an os.Root, so keys can never resolve outside it.
type Local struct {
	root   *os.Root
	logger *slog.Logger
}

func NewLocal(dir string, logger *slog.Logger) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment directory: %w", err)
	}
	return &Local{root: root, logger: logger.With("component", "filestore")}, nil
}

func (s *Local) Close() error { return s.root.Close() }

// Save writes r to a hidden part file and renames it into place once the copy
// is complete, so readers never observe a partial attachment.
func (s *Local) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	key := sanitizePrefix(prefix) + "_" + uuid.NewString() + mimeTypeToExt(mimeType)
	part := "." + key + ".part"

	f, err := s.root.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		s.discard(part)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := s.root.Rename(part, key); err != nil {
		s.discard(part)
		return "", fmt.Errorf("failed to publish file: %w", err)
	}
	return key, nil
}

func (s *Local) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if err := checkKey(key); err != nil {
		return nil, "", err
	}
	f, err := s.root.Open(key)
	if err != nil {
		return nil, "", notFound(err, "open")
	}
	return f, extToMimeType(filepath.Ext(key)), nil
}

func (s *Local) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.root.Remove(key); err != nil {
		return notFound(err, "delete")
	}
	return nil
}

func (s *Local) discard(name string) {
	if err := s.root.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("failed to remove partial file", "file", name, "error", err)
	}
}

// checkKey accepts only the bare file names Save hands out.
func checkKey(key string) error {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s file: %w", op, err)
}

// sanitizePrefix keeps area ids usable as filename prefixes.
func sanitizePrefix(prefix string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, prefix)
}
