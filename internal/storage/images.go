// Package storage keeps uploaded profile pictures on local disk. Files are
// written under <Dir>/profiles and served by the router from /storage.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxImageBytes is the largest accepted upload (2048 KB).
const MaxImageBytes = 2 << 20

const profilesDir = "profiles"

var (
	ErrTooLarge    = errors.New("image too large")
	ErrUnsupported = errors.New("unsupported image type")
)

// sniffed content types and the extension stored for each.
var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

type ImageStore struct {
	Dir string
}

func NewImageStore(dir string) *ImageStore { return &ImageStore{Dir: dir} }

// Save validates r by content and size and writes it as profiles/<uuid>.<ext>.
// It returns the file name relative to the profiles directory.
func (s *ImageStore) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return "", ErrTooLarge
	}
	ext, ok := extensions[http.DetectContentType(data)]
	if !ok {
		return "", ErrUnsupported
	}

	dir := filepath.Join(s.Dir, profilesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	name := uuid.NewString() + "." + ext
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close image: %w", err)
	}
	return name, nil
}

// Delete removes a previously saved image. Unknown names and empty names
// are ignored.
func (s *ImageStore) Delete(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, profilesDir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// Path returns where name lives on disk.
func (s *ImageStore) Path(name string) string {
	return filepath.Join(s.Dir, profilesDir, name)
}
