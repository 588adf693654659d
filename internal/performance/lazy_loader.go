package performance

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"vlist-tui/pkg/types"
)

// LazyLoader loads list items page by page as they come into view
type LazyLoader struct {
	source types.ItemSource
	config LazyLoadConfig

	cache    *LazyCache
	inFlight map[int]bool
	failures map[int]error

	loads  int
	hits   int64
	misses int64
}

// LazyLoadConfig configures lazy loading behavior
type LazyLoadConfig struct {
	PageSize     int           `json:"page_size"`
	MaxCacheSize int           `json:"max_cache_size"`
	Timeout      time.Duration `json:"timeout"`
}

// DefaultLazyLoadConfig returns the loader defaults
func DefaultLazyLoadConfig() LazyLoadConfig {
	return LazyLoadConfig{
		PageSize:     32,
		MaxCacheSize: 2000,
		Timeout:      10 * time.Second,
	}
}

// LazyCache holds loaded items with least-recently-used eviction
type LazyCache struct {
	items   map[int]types.ListItem
	lru     *LRUList
	maxSize int
}

// CacheStats represents cache statistics
type CacheStats struct {
	Items    int     `json:"items"`
	MaxItems int     `json:"max_items"`
	InFlight int     `json:"in_flight"`
	Loads    int     `json:"loads"`
	Failures int     `json:"failures"`
	HitRate  float64 `json:"hit_rate"`
}

// Message types

// ItemCountMsg reports the size of the item source
type ItemCountMsg struct {
	Count int
	Err   error
}

// ItemsLoadedMsg delivers one loaded page
type ItemsLoadedMsg struct {
	Page  int
	Items []types.ListItem
}

// ItemsFailedMsg reports a page that could not be loaded
type ItemsFailedMsg struct {
	Page int
	Err  error
}

// NewLazyLoader creates a loader reading from source
func NewLazyLoader(source types.ItemSource, config LazyLoadConfig) *LazyLoader {
	defaults := DefaultLazyLoadConfig()
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.MaxCacheSize <= 0 {
		config.MaxCacheSize = defaults.MaxCacheSize
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &LazyLoader{
		source:   source,
		config:   config,
		cache:    NewLazyCache(config.MaxCacheSize),
		inFlight: make(map[int]bool),
		failures: make(map[int]error),
	}
}

// Count asks the source for its size
func (ll *LazyLoader) Count() tea.Cmd {
	source, timeout := ll.source, ll.config.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		n, err := source.Count(ctx)
		if err != nil {
			return ItemCountMsg{Err: fmt.Errorf("count items: %w", err)}
		}
		return ItemCountMsg{Count: n}
	}
}

// Get returns a loaded item
func (ll *LazyLoader) Get(index int) (types.ListItem, bool) {
	item, ok := ll.cache.Get(index)
	if ok {
		ll.hits++
	} else {
		ll.misses++
	}
	return item, ok
}

// Request loads every page touching the inclusive range [start, end] that
// is neither cached nor already loading
func (ll *LazyLoader) Request(start, end int) tea.Cmd {
	if end < start {
		return nil
	}
	start = max(0, start)

	var cmds []tea.Cmd
	for page := start / ll.config.PageSize; page <= end/ll.config.PageSize; page++ {
		if ll.inFlight[page] || ll.pageCached(page, start, end) {
			continue
		}
		ll.inFlight[page] = true
		delete(ll.failures, page)
		cmds = append(cmds, ll.loadPage(page))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// pageCached reports whether every index of page inside [start, end] is
// cached
func (ll *LazyLoader) pageCached(page, start, end int) bool {
	from := max(page*ll.config.PageSize, start)
	to := min((page+1)*ll.config.PageSize-1, end)
	for i := from; i <= to; i++ {
		if !ll.cache.Has(i) {
			return false
		}
	}
	return true
}

func (ll *LazyLoader) loadPage(page int) tea.Cmd {
	source, timeout := ll.source, ll.config.Timeout
	start := page * ll.config.PageSize
	end := start + ll.config.PageSize

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		items, err := source.FetchItems(ctx, start, end)
		if err != nil {
			return ItemsFailedMsg{
				Page: page,
				Err:  fmt.Errorf("load items [%d, %d): %w", start, end, err),
			}
		}
		return ItemsLoadedMsg{Page: page, Items: items}
	}
}

// Update applies load results. It returns the indices that changed and
// whether msg belonged to the loader.
func (ll *LazyLoader) Update(msg tea.Msg) ([]int, bool) {
	switch msg := msg.(type) {
	case ItemsLoadedMsg:
		delete(ll.inFlight, msg.Page)
		ll.loads++

		loaded := make([]int, 0, len(msg.Items))
		for _, item := range msg.Items {
			ll.cache.Set(item.Index, item)
			loaded = append(loaded, item.Index)
		}
		return loaded, true

	case ItemsFailedMsg:
		delete(ll.inFlight, msg.Page)
		ll.failures[msg.Page] = msg.Err
		return nil, true
	}
	return nil, false
}

// LastError returns one of the current page failures, if any
func (ll *LazyLoader) LastError() error {
	for _, err := range ll.failures {
		return err
	}
	return nil
}

// GetCacheStats returns loader statistics
func (ll *LazyLoader) GetCacheStats() CacheStats {
	stats := CacheStats{
		Items:    ll.cache.Size(),
		MaxItems: ll.cache.maxSize,
		InFlight: len(ll.inFlight),
		Loads:    ll.loads,
		Failures: len(ll.failures),
	}
	if total := ll.hits + ll.misses; total > 0 {
		stats.HitRate = float64(ll.hits) / float64(total)
	}
	return stats
}

// LazyCache implementation
func NewLazyCache(maxSize int) *LazyCache {
	return &LazyCache{
		items:   make(map[int]types.ListItem),
		lru:     NewLRUList(),
		maxSize: maxSize,
	}
}

func (lc *LazyCache) Get(index int) (types.ListItem, bool) {
	item, exists := lc.items[index]
	if exists {
		lc.lru.Access(index)
	}
	return item, exists
}

func (lc *LazyCache) Has(index int) bool {
	_, exists := lc.items[index]
	return exists
}

func (lc *LazyCache) Set(index int, item types.ListItem) {
	if _, exists := lc.items[index]; !exists && len(lc.items) >= lc.maxSize {
		if evicted, ok := lc.lru.RemoveLRU(); ok {
			delete(lc.items, evicted)
		}
	}
	lc.items[index] = item
	lc.lru.Add(index)
}

func (lc *LazyCache) Size() int {
	return len(lc.items)
}
