package plugin

import (
	"sort"
	"sync"
)

// Entry is a catalog item keyed by plugin name.
type Entry struct {
	Key  string
	Info Info
}

// Catalog lists loaded plugins for the help menu.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Info
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Info)}
}

// Add stores info under key, replacing any previous entry.
func (c *Catalog) Add(key string, info Info) {
	if info.Name == "" {
		info.Name = key
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = info
}

// Remove drops key.
func (c *Catalog) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Get returns the entry of key.
func (c *Catalog) Get(key string) (Info, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.entries[key]
	return info, ok
}

// List returns all entries sorted by display name.
func (c *Catalog) List() []Entry {
	c.mu.RLock()
	list := make([]Entry, 0, len(c.entries))
	for key, info := range c.entries {
		list = append(list, Entry{Key: key, Info: info})
	}
	c.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].Info.Name != list[j].Info.Name {
			return list[i].Info.Name < list[j].Info.Name
		}
		return list[i].Key < list[j].Key
	})
	return list
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
