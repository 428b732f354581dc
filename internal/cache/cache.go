// Package cache stores compiled template units on disk so a rebuild only
// recompiles templates whose source or compile options changed.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/rainwave/jstmpl/pkg/template"
)

const indexVersion = "1"

// Cache is a directory of compiled units with a JSON index. It is safe for
// concurrent use.
type Cache struct {
	mu         sync.Mutex
	dir        string
	index      *Index
	maxEntries int
	stats      Stats
}

// Index tracks all cached entries.
type Index struct {
	Version string            `json:"version"`
	Clock   uint64            `json:"clock"`
	Entries map[string]*Entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// Entry describes one cached unit. The unit's code lives in its own file;
// the rest of the unit is kept here.
type Entry struct {
	Key        string    `json:"key"`
	Template   string    `json:"template"`
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	Partials   []string  `json:"partials,omitempty"`
	Binds      []string  `json:"binds,omitempty"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"last_access"`
	// Tick orders entries by most recent use. Wall clock time may not
	// advance between two accesses.
	Tick uint64 `json:"tick"`
}

// Stats tracks cache performance.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
	TotalSize int64 `json:"total_size"`
}

// Config holds cache configuration.
type Config struct {
	Dir        string // cache directory (default: the user cache dir + /jstmpl)
	MaxEntries int    // least recently used entries beyond this are evicted; 0 means no limit
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return Config{
		Dir:        filepath.Join(dir, "jstmpl"),
		MaxEntries: 4096,
	}
}

// New opens the cache in config.Dir, creating it if needed. An unreadable
// index is discarded.
func New(config Config) (*Cache, error) {
	if config.Dir == "" {
		config.Dir = DefaultConfig().Dir
	}
	if err := os.MkdirAll(filepath.Join(config.Dir, "units"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		dir:        config.Dir,
		maxEntries: config.MaxEntries,
		index:      newIndex(),
	}
	if err := c.loadIndex(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: discarding cache index in %s: %v\n", c.dir, err)
		c.index = newIndex()
	}
	c.refreshStats()
	return c, nil
}

func newIndex() *Index {
	return &Index{
		Version: indexVersion,
		Entries: make(map[string]*Entry),
		Updated: time.Now(),
	}
}

// Key derives the cache key of a template: units compiled from the same
// name and source with equivalent options are interchangeable.
func Key(opts template.Options, name, source string) string {
	h := sha256.New()
	for _, part := range []string{opts.Fingerprint(), name, source} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the unit stored under key.
func (c *Cache) Get(key string) (*template.Unit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	code, err := os.ReadFile(c.path(entry))
	if err != nil {
		// The unit file is gone; forget the entry.
		c.removeLocked(key)
		c.stats.Misses++
		return nil, false
	}

	c.touch(entry)
	c.stats.Hits++
	return &template.Unit{
		Name:     entry.Template,
		Code:     string(code),
		Partials: entry.Partials,
		Binds:    entry.Binds,
	}, true
}

// Put stores a successfully compiled unit under key. Failed compilations
// produce no unit and are therefore never cached.
func (c *Cache) Put(key string, u *template.Unit) error {
	if u == nil {
		return fmt.Errorf("cache: nil unit for key %s", key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &Entry{
		Key:      key,
		Template: u.Name,
		File:     key + ".js",
		Size:     int64(len(u.Code)),
		Partials: u.Partials,
		Binds:    u.Binds,
		Created:  time.Now(),
	}
	if err := atomic.WriteFile(c.path(entry), bytes.NewReader([]byte(u.Code))); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	c.touch(entry)
	c.index.Entries[key] = entry
	c.evict()
	c.refreshStats()
	return nil
}

// Delete removes the entry for key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
	c.refreshStats()
}

// Prune removes entries whose key is not in live and returns how many were
// dropped. Callers pass the keys of every template that still exists, so
// entries of deleted or edited templates go away.
func (c *Cache) Prune(live map[string]bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.index.Entries {
		if !live[key] {
			c.removeLocked(key)
			n++
		}
	}
	c.refreshStats()
	return n
}

// Clear removes all cached entries.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	units := filepath.Join(c.dir, "units")
	if err := os.RemoveAll(units); err != nil {
		return fmt.Errorf("failed to clear units: %w", err)
	}
	if err := os.MkdirAll(units, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	c.index = newIndex()
	c.stats = Stats{}
	return c.saveIndex()
}

// GetStats returns cache statistics.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Flush writes the index to disk.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveIndex()
}

// Close flushes the index.
func (c *Cache) Close() error {
	return c.Flush()
}

// Private methods

func (c *Cache) path(e *Entry) string {
	return filepath.Join(c.dir, "units", e.File)
}

func (c *Cache) touch(e *Entry) {
	c.index.Clock++
	e.Tick = c.index.Clock
	e.LastAccess = time.Now()
}

func (c *Cache) removeLocked(key string) {
	entry, ok := c.index.Entries[key]
	if !ok {
		return
	}
	if err := os.Remove(c.path(entry)); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to remove cache file %s: %v\n", entry.File, err)
	}
	delete(c.index.Entries, key)
}

// evict drops least recently used entries until the entry limit holds.
func (c *Cache) evict() {
	if c.maxEntries <= 0 {
		return
	}
	for len(c.index.Entries) > c.maxEntries {
		var oldest *Entry
		for _, e := range c.index.Entries {
			if oldest == nil || e.Tick < oldest.Tick {
				oldest = e
			}
		}
		c.removeLocked(oldest.Key)
		c.stats.Evictions++
	}
}

func (c *Cache) refreshStats() {
	var total int64
	for _, e := range c.index.Entries {
		total += e.Size
	}
	c.stats.Entries = len(c.index.Entries)
	c.stats.TotalSize = total
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return err
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return err
	}
	if index.Version != indexVersion {
		return fmt.Errorf("index version %q, want %q", index.Version, indexVersion)
	}
	if index.Entries == nil {
		index.Entries = make(map[string]*Entry)
	}
	c.index = &index
	return nil
}

// saveIndex writes the index atomically. The caller holds c.mu.
func (c *Cache) saveIndex() error {
	c.index.Updated = time.Now()
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(filepath.Join(c.dir, "index.json"), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	return nil
}
