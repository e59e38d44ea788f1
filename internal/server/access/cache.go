package access

import "sync"

type cacheKey struct {
	userID   string
	folderID string
}

// Cache memoizes resolver results per (user, folder) pair. It is the only
// cross-request mutable state the core owns, so a single coarse lock is
// enough: invalidation is always all-or-nothing and there is no TTL.
// Correctness relies on every permission-affecting mutation calling
// InvalidateAll in the same request.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]Access
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]Access)}
}

func (c *Cache) Get(userID, folderID string) (Access, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	acc, ok := c.entries[cacheKey{userID, folderID}]
	return acc, ok
}

func (c *Cache) Put(userID, folderID string, acc Access) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey{userID, folderID}] = acc
}

// InvalidateAll drops every entry. Called after any mutation of grant rows,
// group memberships or the folder tree shape.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[cacheKey]Access)
}

// Size is exposed for operational statistics.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
