package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// fileCache stores repack artifacts as JSON files under a directory,
// typically the XDG cache dir (~/.cache/tablepack/). Keys are hashed
// into a two-level layout so repeated repacks of many manifests do not
// pile thousands of entries into one directory.
type fileCache struct {
	dir string
}

// NewFileCache creates a file-based cache rooted at dir, creating the
// directory if needed.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &fileCache{dir: dir}, nil
}

// fileEntry is the on-disk envelope around a cached artifact.
type fileEntry struct {
	Payload []byte    `json:"payload"`
	Expires time.Time `json:"expires,omitempty"`
}

func (e *fileEntry) expired() bool {
	return !e.Expires.IsZero() && time.Now().After(e.Expires)
}

// Get retrieves an artifact. Corrupt or expired entries are removed and
// reported as misses, never as errors: the pipeline can always recompute.
func (c *fileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.entryPath(key)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.expired() {
		_ = os.Remove(path)
		return nil, false, nil
	}

	return entry.Payload, true, nil
}

// Set stores an artifact. A zero ttl stores it without expiration; a
// negative ttl stores it already expired.
func (c *fileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := fileEntry{Payload: data}
	if ttl != 0 {
		entry.Expires = time.Now().Add(ttl)
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	path := c.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create cache subdir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Delete removes an artifact. Deleting a missing key is not an error.
func (c *fileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.entryPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close does nothing; entries live until their TTL or a cache clear.
func (c *fileCache) Close() error { return nil }

// entryPath maps a key to its file: the key's hash split into a
// two-character fan-out directory plus the remainder as the filename.
func (c *fileCache) entryPath(key string) string {
	sum := Hash([]byte(key))
	return filepath.Join(c.dir, sum[:2], sum[2:]+".json")
}
