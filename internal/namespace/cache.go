package namespace

import (
	"container/list"
	"sync"
)

// DefaultCacheSize is the default number of memoized directory listings.
const DefaultCacheSize = 512

// listingCache is an LRU cache of directory listings.
// Entries never expire: the index behind them is immutable.
type listingCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

type cachedListing struct {
	dir     string
	entries []Entry
}

// newListingCache creates a cache holding up to maxSize listings.
// If maxSize is zero or negative, the default size is used.
func newListingCache(maxSize int) *listingCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &listingCache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// get returns the cached listing for dir and promotes it.
func (c *listingCache) get(dir string) ([]Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[dir]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cachedListing).entries, true //nolint:errcheck // type is guaranteed by set
}

// set stores the listing for dir, evicting the least recently used entry
// when the cache is full.
func (c *listingCache) set(dir string, entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[dir]; ok {
		elem.Value.(*cachedListing).entries = entries //nolint:errcheck // type is guaranteed
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cachedListing).dir) //nolint:errcheck // type is guaranteed
	}

	c.entries[dir] = c.order.PushFront(&cachedListing{dir: dir, entries: entries})
}

// len returns the number of cached listings.
func (c *listingCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
