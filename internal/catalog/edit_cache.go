package catalog

import (
	"sync"

	"github.com/fjod/go_storefront/internal/domain"
)

// Entry is one product staged for editing, tagged with the collection it
// came from.
type Entry struct {
	Product domain.CatalogProduct `json:"product"`
	Source  domain.Source         `json:"source"`
}

// EditCache holds the pending edits keyed by product id. While editing it is
// what the screen displays; committed lists only change after a save.
type EditCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewEditCache() *EditCache {
	return &EditCache{entries: make(map[string]Entry)}
}

func (c *EditCache) Put(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.Product.ID] = e
}

func (c *EditCache) Get(id string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// Edit applies fn to a copy of the entry and stores it only when fn succeeds.
func (c *EditCache) Edit(id string, fn func(*domain.CatalogProduct) error) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return Entry{}, false, nil
	}
	p := e.Product
	if err := fn(&p); err != nil {
		return e, true, err
	}
	e.Product = p
	c.entries[id] = e
	return e, true, nil
}

// Reset replaces all entries.
func (c *EditCache) Reset(entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry, len(entries))
	for _, e := range entries {
		c.entries[e.Product.ID] = e
	}
}

func (c *EditCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
