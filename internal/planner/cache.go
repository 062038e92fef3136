package planner

import (
	"container/list"
	"sync"
	"time"
)

// Cache keeps recently loaded snapshots keyed by user id, with TTL and
// size-based LRU eviction. Every state-mutating operation must call
// Invalidate before the next read for that user; the overspend check is
// wrong otherwise.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type cacheItem struct {
	userID    string
	snap      *Snapshot
	expiresAt time.Time
}

// NewCache builds a snapshot cache holding at most maxSize entries for at
// most ttl each.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Get returns the cached snapshot for a user, if present and fresh.
func (c *Cache) Get(userID string) (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[userID]
	if !exists {
		return nil, false
	}
	item := elem.Value.(*cacheItem)
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return item.snap, true
}

// Set stores a snapshot, evicting the least recently used entry when over
// capacity.
func (c *Cache) Set(userID string, snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem{userID: userID, snap: snap, expiresAt: time.Now().Add(c.ttl)}
	if elem, exists := c.items[userID]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}
	c.items[userID] = c.lru.PushFront(item)
	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Invalidate drops a user's snapshot.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, exists := c.items[userID]; exists {
		c.removeElement(elem)
	}
}

// CleanExpired removes every expired entry and reports how many were
// dropped.
func (c *Cache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*cacheItem).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the current entry count.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem)
	delete(c.items, item.userID)
	c.lru.Remove(elem)
}
