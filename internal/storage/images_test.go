package storage

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
const pixel = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func TestSaveAndDelete(t *testing.T) {
	png, err := base64.StdEncoding.DecodeString(pixel)
	require.NoError(t, err)
	s := NewImageStore(t.TempDir())

	name, err := s.Save(bytes.NewReader(png))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.Len(t, strings.TrimSuffix(name, ".png"), 36)

	got, err := os.ReadFile(filepath.Join(s.Dir, "profiles", name))
	require.NoError(t, err)
	assert.Equal(t, png, got)

	require.NoError(t, s.Delete(name))
	_, err = os.Stat(s.Path(name))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Delete(name), "deleting twice is fine")
	assert.NoError(t, s.Delete("../secret"))
}

func TestSaveRejects(t *testing.T) {
	s := NewImageStore(t.TempDir())

	_, err := s.Save(strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrUnsupported)

	big := append([]byte("GIF89a"), make([]byte, MaxImageBytes)...)
	_, err = s.Save(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}
