package ba2util

import (
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/pg9182/ba2vfs"
	"golang.org/x/sync/singleflight"
)

// Cache keeps recently extracted files in memory. Concurrent reads of the same
// file share a single extraction.
type Cache struct {
	x      *ba2vfs.Index
	files  *lru.Cache[string, []byte]
	group  singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache of up to size files extracted from x. If size is
// zero, files are not kept after they are returned.
func NewCache(x *ba2vfs.Index, size int) (*Cache, error) {
	c := &Cache{x: x}
	if size > 0 {
		l, err := lru.New[string, []byte](size)
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		c.files = l
	}
	return c, nil
}

// ReadFile returns the contents of the named file. The returned slice may be
// shared and must not be modified.
func (c *Cache) ReadFile(name string) ([]byte, error) {
	name = ba2vfs.NormalizePath(name)
	if c.files != nil {
		if b, ok := c.files.Get(name); ok {
			c.hits.Add(1)
			return b, nil
		}
	}
	v, err, _ := c.group.Do(name, func() (any, error) {
		c.misses.Add(1)
		b, err := c.x.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if c.files != nil {
			c.files.Add(name, b)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	if c.files == nil {
		return 0
	}
	return c.files.Len()
}

// Purge removes all cached files.
func (c *Cache) Purge() {
	if c.files != nil {
		c.files.Purge()
	}
}

// Stats returns the number of reads served from the cache and the number of
// extractions.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
