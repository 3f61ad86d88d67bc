// Package assets loads files from a stack of GRF archives and caches them.
package assets

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Faultbox/objexport/pkg/encoding"
	"github.com/Faultbox/objexport/pkg/grf"
)

// Manager handles asset loading from GRF files. It is safe for concurrent
// use.
type Manager struct {
	archives []*grf.Archive
	cache    *Cache
	mu       sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddArchive adds a GRF archive to the manager.
// Archives are searched in reverse order (last added = highest priority).
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}

	m.mu.Lock()
	m.archives = append(m.archives, archive)
	m.mu.Unlock()

	// Entries may now resolve to a different archive.
	m.cache.Clear()
	return nil
}

// Load loads a file from the archives. A file missing from every archive
// returns an error wrapping grf.ErrNotFound.
func (m *Manager) Load(path string) ([]byte, error) {
	key := encoding.NormalizePath(path)
	if data, ok := m.cache.Get(key); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.archives) - 1; i >= 0; i-- {
		if !m.archives[i].Contains(key) {
			continue
		}
		data, err := m.archives[i].Read(key)
		if err != nil {
			return nil, err
		}
		m.cache.Set(key, data)
		return data, nil
	}

	return nil, fmt.Errorf("%w: %s", grf.ErrNotFound, path)
}

// Exists reports whether any archive holds path. Paths are matched the way
// Load matches them.
func (m *Manager) Exists(path string) bool {
	key := encoding.NormalizePath(path)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.archives {
		if a.Contains(key) {
			return true
		}
	}
	return false
}

// List returns the sorted, de-duplicated paths across all archives that
// start with prefix and end with suffix (both case-insensitive).
func (m *Manager) List(prefix, suffix string) []string {
	prefix = encoding.NormalizePath(prefix)
	suffix = strings.ToLower(suffix)

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var result []string
	for _, a := range m.archives {
		for _, p := range a.List() {
			if seen[p] || !strings.HasPrefix(p, prefix) || !strings.HasSuffix(p, suffix) {
				continue
			}
			seen[p] = true
			result = append(result, p)
		}
	}
	sort.Strings(result)
	return result
}

// Cache returns the manager's byte cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Close closes all archives.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, archive := range m.archives {
		if err := archive.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.archives = nil
	m.cache.Clear()
	return errors.Join(errs...)
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	data, ok := c.data[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	return int(c.hits.Load()), int(c.misses.Load())
}
