// Package cache stores fetched listing pages on disk so repeated crawls can
// revalidate instead of re-downloading. Entries are keyed by sha256(url):
// <key>.json holds the metadata, <key>.html the body.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is the revalidation metadata kept alongside a cached page body.
type Entry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// PageCache is a deterministic on-disk cache with no eviction beyond the
// explicit age purge.
type PageCache struct {
	Dir string
}

func (c *PageCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	return os.MkdirAll(c.Dir, 0o755)
}

func key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (c *PageCache) metaPath(url string) string { return filepath.Join(c.Dir, key(url)+".json") }
func (c *PageCache) bodyPath(url string) string { return filepath.Join(c.Dir, key(url)+".html") }

// Meta returns the stored entry for url, if any.
func (c *PageCache) Meta(_ context.Context, url string) (*Entry, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.metaPath(url))
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode cache meta: %w", err)
	}
	return &e, nil
}

// Body returns the cached page body for url.
func (c *PageCache) Body(_ context.Context, url string) ([]byte, error) {
	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	return os.ReadFile(c.bodyPath(url))
}

// Put stores body and its revalidation metadata. The metadata file is
// written last, through a rename, so a crash cannot leave meta pointing at a
// missing body.
func (c *PageCache) Put(_ context.Context, url, contentType, etag, lastModified string, body []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	if err := os.WriteFile(c.bodyPath(url), body, 0o644); err != nil {
		return fmt.Errorf("write cache body: %w", err)
	}
	e := Entry{
		URL:          url,
		ContentType:  contentType,
		ETag:         etag,
		LastModified: lastModified,
		SavedAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(&e)
	if err != nil {
		return err
	}
	tmp := c.metaPath(url) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache meta: %w", err)
	}
	return os.Rename(tmp, c.metaPath(url))
}

// Purge removes entries older than maxAge and returns how many were dropped.
// A non-positive maxAge purges nothing.
func (c *PageCache) Purge(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	if err := c.ensureDir(); err != nil {
		return 0, err
	}
	metas, err := filepath.Glob(filepath.Join(c.Dir, "*.json"))
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for _, path := range metas {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil || e.SavedAt.After(cutoff) {
			continue
		}
		_ = os.Remove(path)
		_ = os.Remove(c.bodyPath(e.URL))
		removed++
	}
	return removed, nil
}
