package performance

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vlist-tui/internal/scheduler"
	"vlist-tui/internal/virtual"
)

// VirtualScroller is a scrollable list component that renders only the
// items near the viewport. It is the scroll container for a
// virtual.Virtualizer: it owns the scroll offset and viewport height in
// terminal lines, and measures each rendered item with lipgloss.Height.
type VirtualScroller struct {
	// Core state
	engine         *virtual.Virtualizer
	width          int
	viewportHeight int
	scrollPosition float64
	pinned         bool

	// Scroll listeners registered through Subscribe
	listeners    map[int]func()
	nextListener int

	// Scheduling
	frames        *scheduler.FrameScheduler
	prefetch      *scheduler.Throttle
	prefetchRetry bool
	prefetched    virtual.Window

	// Rendering
	renderCache *RenderCache
	placed      []placedItem

	// Layout durations
	layoutTimes *FrameHistory

	// Configuration
	config VirtualScrollConfig
	keys   KeyMap

	// Callbacks
	renderItem RenderItemFunc
	fetchItems FetchItemsFunc
}

// VirtualScrollConfig configures virtual scrolling behavior
type VirtualScrollConfig struct {
	Engine           virtual.Config `json:"engine"`
	PrefetchDistance int            `json:"prefetch_distance"`
	WheelDelta       int            `json:"wheel_delta"`
	FrameInterval    time.Duration  `json:"frame_interval"`
	PrefetchInterval time.Duration  `json:"prefetch_interval"`
	EnableCache      bool           `json:"enable_cache"`
	CacheSize        int            `json:"cache_size"`
}

// DefaultVirtualScrollConfig returns defaults for a list of itemCount items
// estimated at estimatedLines lines each
func DefaultVirtualScrollConfig(itemCount int, estimatedLines float64) VirtualScrollConfig {
	engine := virtual.DefaultConfig()
	engine.ItemCount = itemCount
	engine.EstimatedItemSize = estimatedLines

	return VirtualScrollConfig{
		Engine:           engine,
		PrefetchDistance: 10,
		WheelDelta:       3,
		FrameInterval:    scheduler.DefaultFrameInterval,
		PrefetchInterval: scheduler.DefaultThrottleInterval,
		EnableCache:      true,
		CacheSize:        500,
	}
}

// RenderItemFunc renders a single item at the given width
type RenderItemFunc func(index, width int) string

// FetchItemsFunc requests content for the inclusive index range
type FetchItemsFunc func(start, end int) tea.Cmd

// placedItem is a rendered item at its offset-table position
type placedItem struct {
	virtual.VirtualItem
	content string
}

// noPrefetch matches no resolved window
var noPrefetch = virtual.Window{Start: -1, End: -1, PaddedStart: -1, PaddedEnd: -1}

// prefetchMsg retries a prefetch dropped by the throttle
type prefetchMsg struct{}

// NewVirtualScroller creates a scroller. The list stays empty until SetSize
// gives it a viewport.
func NewVirtualScroller(config VirtualScrollConfig) (*VirtualScroller, error) {
	if config.WheelDelta <= 0 {
		config.WheelDelta = 3
	}
	if config.CacheSize <= 0 {
		config.CacheSize = 500
	}

	vs := &VirtualScroller{
		listeners:   make(map[int]func()),
		frames:      scheduler.NewFrameScheduler(config.FrameInterval),
		prefetch:    scheduler.NewThrottle(config.PrefetchInterval),
		prefetched:  noPrefetch,
		renderCache: NewRenderCache(config.CacheSize),
		config:      config,
		keys:        DefaultKeyMap(),
		layoutTimes: NewFrameHistory(120),
	}

	engine, err := virtual.New(config.Engine, vs.scrollSource,
		virtual.WithScheduler(vs.frames),
		virtual.WithOnChange(vs.relayout),
		virtual.WithLogger(log.Printf),
	)
	if err != nil {
		return nil, fmt.Errorf("virtual scroller: %w", err)
	}
	vs.engine = engine
	return vs, nil
}

// scrollSource mounts the scroller once it has a viewport
func (vs *VirtualScroller) scrollSource() virtual.ScrollSource {
	if vs.width <= 0 || vs.viewportHeight <= 0 {
		return nil
	}
	return vs
}

// ScrollOffset implements virtual.ScrollSource
func (vs *VirtualScroller) ScrollOffset() float64 {
	return vs.scrollPosition
}

// ViewportSize implements virtual.ScrollSource
func (vs *VirtualScroller) ViewportSize() float64 {
	return float64(vs.viewportHeight)
}

// Subscribe implements virtual.ScrollSource
func (vs *VirtualScroller) Subscribe(listener func()) func() {
	id := vs.nextListener
	vs.nextListener++
	vs.listeners[id] = listener
	return func() { delete(vs.listeners, id) }
}

func (vs *VirtualScroller) notify() {
	for _, listener := range vs.listeners {
		listener()
	}
}

// Update handles virtual scroller updates
func (vs *VirtualScroller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case scheduler.FrameMsg:
		vs.frames.Update(msg)

	case prefetchMsg:
		vs.prefetchRetry = false

	case tea.MouseMsg:
		switch msg.Type {
		case tea.MouseWheelUp:
			vs.scrollBy(-float64(vs.config.WheelDelta))
		case tea.MouseWheelDown:
			vs.scrollBy(float64(vs.config.WheelDelta))
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, vs.keys.Up):
			vs.scrollBy(-1)
		case key.Matches(msg, vs.keys.Down):
			vs.scrollBy(1)
		case key.Matches(msg, vs.keys.PageUp):
			vs.scrollBy(-float64(vs.viewportHeight))
		case key.Matches(msg, vs.keys.PageDown):
			vs.scrollBy(float64(vs.viewportHeight))
		case key.Matches(msg, vs.keys.Home):
			vs.ScrollTo(0)
		case key.Matches(msg, vs.keys.End):
			vs.ScrollTo(math.Inf(1))
		}
	}

	return vs.commands()
}

// commands collects the follow-up work of an update: the next frame tick and
// any prefetch.
func (vs *VirtualScroller) commands() tea.Cmd {
	var cmds []tea.Cmd
	if cmd := vs.prefetchCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if cmd := vs.frames.Cmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// View renders the lines of the viewport
func (vs *VirtualScroller) View() string {
	if vs.viewportHeight <= 0 {
		return ""
	}

	lines := make([]string, vs.viewportHeight)
	top := int(vs.scrollPosition)
	for _, p := range vs.placed {
		row := int(p.Start) - top
		if row >= vs.viewportHeight {
			continue
		}
		for k, line := range strings.Split(p.content, "\n") {
			y := row + k
			if y >= 0 && y < len(lines) {
				lines[y] = line
			}
		}
	}
	return strings.Join(lines, "\n")
}

// relayout renders the current window and reports each item's measured
// height back to the engine
func (vs *VirtualScroller) relayout() {
	started := time.Now()
	defer func() { vs.layoutTimes.Add(time.Since(started)) }()
	vs.keepInRange()

	items := vs.engine.VirtualItems()
	vs.placed = vs.placed[:0]
	for _, item := range items {
		content := vs.render(item.Index)
		vs.engine.ReportMeasuredSize(item.Index, float64(lipgloss.Height(content)))
		vs.placed = append(vs.placed, placedItem{VirtualItem: item, content: content})
	}
}

func (vs *VirtualScroller) render(index int) string {
	if vs.config.EnableCache {
		if cached, found := vs.renderCache.Get(index); found && cached.Width == vs.width {
			return cached.Content
		}
	}

	var content string
	if vs.renderItem != nil {
		content = vs.renderItem(index, vs.width)
	} else {
		content = fmt.Sprintf("Item %d", index)
	}

	if vs.config.EnableCache {
		vs.renderCache.Set(index, CachedItem{
			Content: content,
			Height:  lipgloss.Height(content),
			Width:   vs.width,
		})
	}
	return content
}

// Scrolling methods

func (vs *VirtualScroller) scrollBy(delta float64) {
	vs.ScrollTo(vs.scrollPosition + delta)
}

// ScrollTo moves the viewport top to position, clamped to the content
func (vs *VirtualScroller) ScrollTo(position float64) {
	maxScroll := vs.engine.MaxScroll(float64(vs.viewportHeight))
	position = math.Max(0, math.Min(position, maxScroll))
	vs.pinned = maxScroll > 0 && position >= maxScroll
	if position == vs.scrollPosition {
		return
	}
	vs.scrollPosition = position
	vs.notify()
}

// keepInRange re-clamps the scroll offset after the content or viewport
// changed size. A list scrolled to the bottom stays at the bottom.
func (vs *VirtualScroller) keepInRange() {
	maxScroll := vs.engine.MaxScroll(float64(vs.viewportHeight))
	target := math.Min(vs.scrollPosition, maxScroll)
	if vs.pinned {
		target = maxScroll
	}
	if target != vs.scrollPosition {
		vs.scrollPosition = target
		vs.notify()
	}
}

// ScrollToItem brings item index to the top of the viewport
func (vs *VirtualScroller) ScrollToItem(index int) {
	vs.ScrollTo(vs.engine.ItemStart(index))
}

func (vs *VirtualScroller) prefetchCmd() tea.Cmd {
	if vs.fetchItems == nil {
		return nil
	}
	w := vs.engine.Window()
	if w.Len() == 0 || w == vs.prefetched {
		return nil
	}

	if !vs.prefetch.Allow() {
		if vs.prefetchRetry {
			return nil
		}
		vs.prefetchRetry = true
		return tea.Tick(vs.config.PrefetchInterval, func(time.Time) tea.Msg {
			return prefetchMsg{}
		})
	}

	vs.prefetched = w
	start := max(0, w.PaddedStart-vs.config.PrefetchDistance)
	end := min(vs.engine.ItemCount()-1, w.PaddedEnd+vs.config.PrefetchDistance)
	return vs.fetchItems(start, end)
}

// Configuration methods

func (vs *VirtualScroller) SetRenderFunc(fn RenderItemFunc) {
	vs.renderItem = fn
	vs.renderCache.Clear()
}

func (vs *VirtualScroller) SetFetchFunc(fn FetchItemsFunc) {
	vs.fetchItems = fn
	vs.prefetched = noPrefetch
}

// Refetch forgets the last prefetched window so the next update requests
// it again
func (vs *VirtualScroller) Refetch() tea.Cmd {
	vs.prefetched = noPrefetch
	vs.prefetch.Reset()
	return vs.commands()
}

// SetKeyMap replaces the scrolling bindings
func (vs *VirtualScroller) SetKeyMap(keys KeyMap) {
	vs.keys = keys
}

// KeyMap returns the scrolling bindings
func (vs *VirtualScroller) KeyMap() KeyMap {
	return vs.keys
}

// SetSize resizes the viewport. The first call mounts the list. A width
// change drops rendered content, so every visible item is measured again.
func (vs *VirtualScroller) SetSize(width, height int) tea.Cmd {
	if width != vs.width {
		vs.renderCache.Clear()
	}
	vs.width = width
	vs.viewportHeight = max(0, height)

	if vs.engine.Attach() {
		vs.keepInRange()
		vs.notify()
		vs.engine.Flush()
		vs.relayout()
	}
	return vs.commands()
}

// Invalidate drops the rendered content of items whose data changed and
// re-renders the window if any of them is in it
func (vs *VirtualScroller) Invalidate(indices ...int) tea.Cmd {
	w := vs.engine.Window()
	dirty := false
	for _, index := range indices {
		vs.renderCache.Delete(index)
		if w.Contains(index) {
			dirty = true
		}
	}
	if dirty {
		vs.relayout()
	}
	return vs.commands()
}

// UpdateTotalItems changes the number of items
func (vs *VirtualScroller) UpdateTotalItems(total int) (tea.Cmd, error) {
	if err := vs.engine.SetItemCount(total); err != nil {
		return nil, err
	}
	vs.renderCache.Prune(total)
	vs.keepInRange()
	return vs.commands(), nil
}

// Close detaches the list from its scroll source and cancels any pending
// frame
func (vs *VirtualScroller) Close() {
	vs.engine.Teardown()
	vs.placed = nil
}

// Engine exposes the virtualizer for inspection
func (vs *VirtualScroller) Engine() *virtual.Virtualizer {
	return vs.engine
}

// Performance methods
func (vs *VirtualScroller) GetPerformanceStats() VirtualScrollStats {
	w := vs.engine.Window()
	frames, canceled := vs.frames.Stats()
	return VirtualScrollStats{
		VisibleItems:   w.Len(),
		TotalItems:     vs.engine.ItemCount(),
		ScrollPosition: vs.scrollPosition,
		TotalSize:      vs.engine.TotalSize(),
		LayoutTime:     vs.layoutTimes.Last(),
		AvgLayoutTime:  vs.layoutTimes.Average(),
		P95LayoutTime:  vs.layoutTimes.Percentile(95),
		Frames:         frames,
		CanceledFrames: canceled,
		Layouts:        vs.layoutTimes.Total(),
		CacheHitRate:   vs.renderCache.GetHitRate(),
		CacheSize:      vs.renderCache.Size(),
		Engine:         vs.engine.Stats(),
	}
}

// ScrollInfo describes the visible range, e.g. "[1-12 of 1000] 0%"
func (vs *VirtualScroller) ScrollInfo() string {
	total := vs.engine.ItemCount()
	w := vs.engine.Window()
	if total == 0 || w.Len() == 0 {
		return fmt.Sprintf("[0 of %d]", total)
	}

	percent := 100.0
	if maxScroll := vs.engine.MaxScroll(float64(vs.viewportHeight)); maxScroll > 0 {
		percent = vs.scrollPosition / maxScroll * 100
	}
	return fmt.Sprintf("[%d-%d of %d] %.0f%%", w.Start+1, min(w.End+1, total), total, percent)
}

// Stats and monitoring
type VirtualScrollStats struct {
	VisibleItems   int           `json:"visible_items"`
	TotalItems     int           `json:"total_items"`
	ScrollPosition float64       `json:"scroll_position"`
	TotalSize      float64       `json:"total_size"`
	LayoutTime     time.Duration `json:"layout_time"`
	AvgLayoutTime  time.Duration `json:"avg_layout_time"`
	P95LayoutTime  time.Duration `json:"p95_layout_time"`
	Frames         int           `json:"frames"`
	CanceledFrames int           `json:"canceled_frames"`
	Layouts        int           `json:"layouts"`
	CacheHitRate   float64       `json:"cache_hit_rate"`
	CacheSize      int           `json:"cache_size"`
	Engine         virtual.Stats `json:"engine"`
}
