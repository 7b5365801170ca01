// Package storage holds uploaded product images behind a small bucket
// interface so a managed object store can replace the local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize bounds a single upload.
const MaxImageSize = 5 << 20

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

var (
	ErrUnsupportedType = errors.New("file must be a JPEG, PNG, WebP or GIF image")
	ErrTooLarge        = fmt.Errorf("file must be at most %d MB", MaxImageSize>>20)
	ErrInvalidKey      = errors.New("invalid object key")
)

type Bucket interface {
	// Put stores the object under key and returns its public URL.
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

type LocalBucket struct {
	root    string
	baseURL string
}

// NewLocalBucket serves objects written under root at baseURL (e.g. "/assets").
func NewLocalBucket(root, baseURL string) (*LocalBucket, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket root: %w", err)
	}
	return &LocalBucket{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *LocalBucket) Root() string { return b.root }

func (b *LocalBucket) path(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", ErrInvalidKey
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), nil
}

func (b *LocalBucket) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	p, err := b.path(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", fmt.Errorf("move file into place: %w", err)
	}
	return b.baseURL + "/" + key, nil
}

func (b *LocalBucket) Delete(_ context.Context, key string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SniffImage reads at most MaxImageSize bytes from r, checks the content is
// an allowed image type and returns the data with its file extension.
func SniffImage(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxImageSize {
		return nil, "", ErrTooLarge
	}
	mt := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if mt.Is(allowed) {
			return data, mt.Extension(), nil
		}
	}
	return nil, "", ErrUnsupportedType
}
