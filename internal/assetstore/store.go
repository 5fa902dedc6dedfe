// Package assetstore persists generated asset bytes and returns the URL a
// DraftPost carries. Two backends: S3 for deployed runs, a local directory
// for credential-free runs. Binary asset lifecycle beyond the write (CDN,
// expiry, cleanup) is outside the pipeline.
package assetstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Store persists one asset and returns its URL. Implementations must be
// safe for concurrent use — per-post visual tasks write in parallel.
type Store interface {
	// Put writes data under a campaign-scoped key and returns the asset URL.
	// key is a relative path like "camp-123/post-456/attempt-2.png".
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// extFor maps a content type to a file extension for stores that need one.
func extFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "video/mp4":
		return ".mp4"
	}
	return ".bin"
}

// Local writes assets under a directory and returns file:// URLs (or
// PublicBaseURL-joined URLs when configured).
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates a local-directory store rooted at dir.
func NewLocal(dir, baseURL string) *Local {
	return &Local{dir: dir, baseURL: baseURL}
}

// Put implements Store.
func (l *Local) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path := filepath.Join(l.dir, filepath.FromSlash(key))
	if filepath.Ext(path) == "" {
		path += extFor(contentType)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write asset file: %w", err)
	}

	log.Debug().
		Str("path", path).
		Int("bytes", len(data)).
		Str("content_type", contentType).
		Msg("Asset written to local store")

	if l.baseURL != "" {
		return l.baseURL + "/" + filepath.ToSlash(key), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs), nil
}
