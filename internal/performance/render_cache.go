package performance

// RenderCache caches rendered items for performance
type RenderCache struct {
	cache   map[int]CachedItem
	maxSize int
	lru     *LRUList
	hits    int64
	misses  int64
}

// CachedItem represents a cached rendered item
type CachedItem struct {
	Content string `json:"content"`
	Height  int    `json:"height"`
	Width   int    `json:"width"`
}

// NewRenderCache creates a cache holding at most maxSize items
func NewRenderCache(maxSize int) *RenderCache {
	return &RenderCache{
		cache:   make(map[int]CachedItem),
		maxSize: maxSize,
		lru:     NewLRUList(),
	}
}

func (rc *RenderCache) Get(index int) (CachedItem, bool) {
	if item, exists := rc.cache[index]; exists {
		rc.hits++
		rc.lru.Access(index)
		return item, true
	}
	rc.misses++
	return CachedItem{}, false
}

func (rc *RenderCache) Set(index int, item CachedItem) {
	if _, exists := rc.cache[index]; !exists && len(rc.cache) >= rc.maxSize {
		if evicted, ok := rc.lru.RemoveLRU(); ok {
			delete(rc.cache, evicted)
		}
	}
	rc.cache[index] = item
	rc.lru.Add(index)
}

func (rc *RenderCache) Has(index int) bool {
	_, exists := rc.cache[index]
	return exists
}

func (rc *RenderCache) Delete(index int) {
	delete(rc.cache, index)
	rc.lru.Remove(index)
}

// Prune drops every item at or past count
func (rc *RenderCache) Prune(count int) {
	for index := range rc.cache {
		if index >= count {
			rc.Delete(index)
		}
	}
}

func (rc *RenderCache) Size() int {
	return len(rc.cache)
}

func (rc *RenderCache) GetHitRate() float64 {
	total := rc.hits + rc.misses
	if total == 0 {
		return 0
	}
	return float64(rc.hits) / float64(total)
}

func (rc *RenderCache) Clear() {
	rc.cache = make(map[int]CachedItem)
	rc.lru = NewLRUList()
}
