package cache

import "sync"

// NameIndex maps saved build names to their storage IDs
type NameIndex struct {
	mu  sync.RWMutex
	ids map[string]uint
}

// NewNameIndex creates a new NameIndex
func NewNameIndex() *NameIndex {
	return &NameIndex{
		ids: make(map[string]uint),
	}
}

// Get retrieves a build ID by name
func (c *NameIndex) Get(name string) (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[name]
	return id, ok
}

// Set stores a build ID by name
func (c *NameIndex) Set(name string, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[name] = id
}

// Delete removes a name
func (c *NameIndex) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, name)
}

// DeleteID removes every name pointing at id
func (c *NameIndex) DeleteID(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, v := range c.ids {
		if v == id {
			delete(c.ids, name)
		}
	}
}

// Reset clears the index
func (c *NameIndex) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]uint)
}
