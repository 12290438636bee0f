package router

import (
	"encoding/json"
	"fmt"
	"os"
)

// CacheEntry is one canonical example question with its pre-computed vector.
type CacheEntry struct {
	ExampleID     string    `json:"example_id"`
	CollectionID  string    `json:"collection_id"`
	DocumentID    string    `json:"document_id"`
	Question      string    `json:"question"`
	Vector        []float32 `json:"vector"`
	PriorityScore float64   `json:"priority_score"`
}

// Cache is the routing index. An instance is immutable once built;
// rebuilds produce a fresh instance that gets swapped in whole.
type Cache struct {
	entries []CacheEntry
	byID    map[string]*CacheEntry
}

func NewCache(entries []CacheEntry) *Cache {
	c := &Cache{
		entries: entries,
		byID:    make(map[string]*CacheEntry, len(entries)),
	}
	for i := range c.entries {
		c.byID[c.entries[i].ExampleID] = &c.entries[i]
	}
	return c
}

// NewEmptyCache returns a cache with no entries. Routing against it
// always yields LOW confidence.
func NewEmptyCache() *Cache {
	return NewCache(nil)
}

func (c *Cache) Entries() []CacheEntry {
	return c.entries
}

func (c *Cache) Len() int {
	return len(c.entries)
}

// EntryByID returns the cached example or nil when unknown.
func (c *Cache) EntryByID(exampleID string) *CacheEntry {
	return c.byID[exampleID]
}

type cacheFile struct {
	Entries []CacheEntry `json:"entries"`
}

// LoadCacheFile reads a serialized cache blob from disk.
func LoadCacheFile(path string) (*Cache, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read router cache: %w", err)
	}

	var file cacheFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse router cache: %w", err)
	}

	return NewCache(file.Entries), nil
}

// SaveCacheFile writes the cache blob so the next startup can skip
// re-embedding every example.
func SaveCacheFile(path string, c *Cache) error {
	raw, err := json.Marshal(cacheFile{Entries: c.entries})
	if err != nil {
		return fmt.Errorf("marshal router cache: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}
