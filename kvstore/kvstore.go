// Package kvstore provides the key/value persistence port used by reader
// sessions for settings, progress, annotations and bookmarks.
package kvstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"
)

// ErrCorrupt is returned when a file store cannot be decoded.
var ErrCorrupt = errors.New("kvstore: corrupt store file")

// Store is the narrow persistence port. Values are opaque strings.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Memory is an in-process Store. Values never expire.
type Memory struct {
	c *cache.Cache
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{c: cache.New(cache.NoExpiration, 0)}
}

// Get returns the value stored under key.
func (m *Memory) Get(key string) (string, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Set stores value under key.
func (m *Memory) Set(key, value string) error {
	m.c.Set(key, value, cache.NoExpiration)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() []string {
	items := m.c.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// File is a Store persisted as a single YAML mapping on disk. Every Set
// rewrites the file atomically.
type File struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// OpenFile loads the store at path. A missing file is an empty store and is
// created on the first Set.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("kvstore: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f.values); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	return f, nil
}

// Get returns the value stored under key.
func (f *File) Get(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok
}

// Set stores value under key and flushes the store to disk. On a write
// failure the in-memory value is rolled back.
func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	f.values[key] = value
	if err := f.flushLocked(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

func (f *File) flushLocked() error {
	data, err := yaml.Marshal(f.values)
	if err != nil {
		return fmt.Errorf("kvstore: encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("kvstore: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("kvstore: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("kvstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kvstore: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("kvstore: replace %s: %w", f.path, err)
	}
	return nil
}
