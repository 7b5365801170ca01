package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header; enough for content sniffing
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestLocalBucketPutDelete(t *testing.T) {
	root := t.TempDir()
	b, err := NewLocalBucket(root, "/assets/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := b.Put(ctx, "products/1/apel.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "/assets/products/1/apel.png", url)

	got, err := os.ReadFile(filepath.Join(root, "products", "1", "apel.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, got)

	key := "products/1/apel.png"
	require.NoError(t, b.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(root, "products", "1", "apel.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, b.Delete(ctx, key), "deleting twice is fine")
}

func TestLocalBucketRejectsEscapingKeys(t *testing.T) {
	b, err := NewLocalBucket(t.TempDir(), "/assets")
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "a/../../b", "/abs", "a//b"} {
		_, err := b.Put(context.Background(), key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestSniffImage(t *testing.T) {
	data, ext, err := SniffImage(bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)
	assert.Equal(t, pngHeader, data)

	_, _, err = SniffImage(strings.NewReader("plain text, not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	big := make([]byte, MaxImageSize+10)
	copy(big, pngHeader)
	_, _, err = SniffImage(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}
