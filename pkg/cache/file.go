package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileCache stores each key as a file in dir. The file content is the value
// verbatim, so a key such as "embulk.version" is an ordinary text file that
// can be inspected or removed by hand.
//
// An entry is fresh while time.Since(mtime) < ttl. A ttl of 0 means entries
// never expire.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFileCache creates a file-based cache in the given directory.
// The directory will be created if it doesn't exist.
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Dir returns the directory holding cache files.
func (c *FileCache) Dir() string { return c.dir }

// TTL returns the freshness window.
func (c *FileCache) TTL() time.Duration { return c.ttl }

// Path returns the file backing key.
func (c *FileCache) Path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", ErrInvalidKey
	}
	return filepath.Join(c.dir, key), nil
}

// Get returns the file content if the file exists and is younger than the TTL.
// A missing file is a miss, not an error.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := c.Path(key)
	if err != nil {
		return nil, false, err
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if c.ttl > 0 && c.now().Sub(info.ModTime()) >= c.ttl {
		return nil, false, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set writes data to the key's file, refreshing its modification time.
func (c *FileCache) Set(ctx context.Context, key string, data []byte) error {
	path, err := c.Path(key)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Delete removes the key's file. Deleting a missing key is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	path, err := c.Path(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Stat reports the entry for key without checking freshness.
func (c *FileCache) Stat(key string) (*Entry, error) {
	path, err := c.Path(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &Entry{Key: key, Size: int(info.Size()), UpdatedAt: info.ModTime()}, nil
}

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

var _ Cache = (*FileCache)(nil)
