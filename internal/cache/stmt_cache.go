// Package cache provides an LRU cache for prepared statements, keyed by SQL
// text. Pooled statements are prepared once and reused; evicted and replaced
// statements are closed.
package cache

import (
	"container/list"
	"database/sql"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the default maximum number of cached statements.
const DefaultCapacity = 500

// StmtCache stores prepared statements with LRU eviction.
type StmtCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recently used

	hits   atomic.Uint64
	misses atomic.Uint64
}

type entry struct {
	sql  string
	stmt *sql.Stmt
}

// NewStmtCache creates a cache with the default capacity.
func NewStmtCache() *StmtCache {
	return NewStmtCacheWithCapacity(DefaultCapacity)
}

// NewStmtCacheWithCapacity creates a cache holding at most capacity
// statements. Non-positive capacities fall back to the default.
func NewStmtCacheWithCapacity(capacity int) *StmtCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &StmtCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached statement for the SQL text, marking it most recently
// used.
func (c *StmtCache) Get(sqlText string) (*sql.Stmt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[sqlText]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return elem.Value.(*entry).stmt, true
}

// Set stores a prepared statement, evicting and closing the least recently
// used one when the cache is full. Replacing an existing entry closes the
// statement it replaces.
func (c *StmtCache) Set(sqlText string, stmt *sql.Stmt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[sqlText]; ok {
		c.order.MoveToFront(elem)
		e := elem.Value.(*entry)
		_ = e.stmt.Close()
		e.stmt = stmt
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.order.Remove(oldest)
			e := oldest.Value.(*entry)
			delete(c.items, e.sql)
			_ = e.stmt.Close()
		}
	}

	c.items[sqlText] = c.order.PushFront(&entry{sql: sqlText, stmt: stmt})
}

// Clear closes and drops every cached statement.
func (c *StmtCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		_ = elem.Value.(*entry).stmt.Close()
	}
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the current number of cached statements.
func (c *StmtCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// HitRate returns the fraction of lookups served from cache.
func (c *StmtCache) HitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
