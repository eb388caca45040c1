package dedup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CacheTTL is how long a relayed record stays remembered.
const CacheTTL = 30 * 24 * time.Hour

type seenEntry struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// Cache is a file-backed set of record IDs already relayed by earlier runs.
type Cache struct {
	mu       sync.Mutex
	filePath string
	seen     map[string]int64
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewCache creates cacheDir if needed and loads seen_jobs.json from it.
// Entries older than CacheTTL are dropped on load.
func NewCache(cacheDir string, log *zap.SugaredLogger) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	c := &Cache{
		filePath: filepath.Join(cacheDir, "seen_jobs.json"),
		seen:     make(map[string]int64),
		log:      log,
		now:      time.Now,
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) IsSeen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[id]
	return ok
}

// Add remembers ids and persists the cache when anything changed.
func (c *Cache) Add(ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixMilli()
	changed := false
	for _, id := range ids {
		if _, ok := c.seen[id]; !ok {
			c.seen[id] = now
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return c.saveLocked()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", c.filePath, err)
	}

	var entries []seenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.log.Warnf("⚠️ Ignoring unreadable %s: %v", c.filePath, err)
		return nil
	}

	cutoff := c.now().Add(-CacheTTL).UnixMilli()
	for _, e := range entries {
		if e.Timestamp > cutoff {
			c.seen[e.ID] = e.Timestamp
		}
	}
	c.log.Infof("📋 Loaded %d previously seen jobs (%d expired and removed)", len(c.seen), len(entries)-len(c.seen))
	return nil
}

func (c *Cache) saveLocked() error {
	entries := make([]seenEntry, 0, len(c.seen))
	for id, ts := range c.seen {
		entries = append(entries, seenEntry{ID: id, Timestamp: ts})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal seen jobs: %w", err)
	}
	if err := os.WriteFile(c.filePath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", c.filePath, err)
	}
	c.log.Debugf("💾 Saved %d seen jobs to cache", len(entries))
	return nil
}
