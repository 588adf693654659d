// Package virtual is the list virtualization engine. It keeps a cumulative
// offset table of item sizes, resolves a scroll position into the window of
// items worth rendering, and repairs the table as real item sizes are
// measured after layout.
//
// A Virtualizer is driven from a single goroutine (the bubbletea update
// loop); it is not safe for concurrent use.
package virtual

import (
	"fmt"
	"math"

	"vlist-tui/internal/scheduler"
)

// DefaultOverscan is the number of extra items rendered on each side of the
// visible range.
const DefaultOverscan = 2

// Config describes the list being virtualized.
type Config struct {
	ItemCount         int     `json:"item_count"`
	EstimatedItemSize float64 `json:"estimated_item_size"`
	Gap               float64 `json:"gap"`
	Overscan          int     `json:"overscan"`
}

// DefaultConfig returns a config with the default overscan and a one unit
// estimate.
func DefaultConfig() Config {
	return Config{
		EstimatedItemSize: 1,
		Overscan:          DefaultOverscan,
	}
}

// Validate checks the config without building anything.
func (c Config) Validate() error {
	switch {
	case c.ItemCount < 0:
		return fmt.Errorf("item count %d: %w", c.ItemCount, ErrInvalidItemCount)
	case !finite(c.EstimatedItemSize) || c.EstimatedItemSize <= 0:
		return fmt.Errorf("estimated item size %v: %w", c.EstimatedItemSize, ErrInvalidItemSize)
	case !finite(c.Gap) || c.Gap < 0:
		return fmt.Errorf("gap %v: %w", c.Gap, ErrInvalidGap)
	case c.Overscan < 0:
		return fmt.Errorf("overscan %d: %w", c.Overscan, ErrInvalidOverscan)
	}
	return nil
}

// ScrollSource is the scroll container the engine reads from. Subscribe
// registers a listener for scroll and resize events and returns the function
// that removes it.
type ScrollSource interface {
	ScrollOffset() float64
	ViewportSize() float64
	Subscribe(listener func()) (unsubscribe func())
}

// ScrollSourceProvider returns the scroll source, or nil while it is not
// mounted yet.
type ScrollSourceProvider func() ScrollSource

// Option configures a Virtualizer.
type Option func(*Virtualizer)

// WithScheduler sets the frame scheduler. The default is a ManualScheduler,
// which only runs ticks on Flush.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(v *Virtualizer) { v.scheduler = s }
}

// WithOnChange registers a callback run after every tick that changed the
// window or the offset table.
func WithOnChange(fn func()) Option {
	return func(v *Virtualizer) { v.onChange = fn }
}

// WithLogger routes engine diagnostics, e.g. log.Printf.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(v *Virtualizer) { v.logf = logf }
}

// Stats counts engine activity.
type Stats struct {
	Ticks               int `json:"ticks"`
	PropagationPasses   int `json:"propagation_passes"`
	MeasurementsApplied int `json:"measurements_applied"`
	MeasurementsIgnored int `json:"measurements_ignored"`
	EntriesRewritten    int `json:"entries_rewritten"`
	StartIndexChanges   int `json:"start_index_changes"`
	CanceledTicks       int `json:"canceled_ticks"`
}

// Virtualizer owns one offset table and its scroll binding.
type Virtualizer struct {
	config     Config
	table      *OffsetTable
	reconciler *Reconciler

	provider    ScrollSourceProvider
	source      ScrollSource
	unsubscribe func()
	closed      bool

	scheduler scheduler.Scheduler
	pending   scheduler.Handle

	scrollTop  float64
	viewport   float64
	startIndex int
	window     Window

	onChange func()
	logf     func(format string, args ...any)
	stats    Stats
}

// New validates cfg, builds the optimistic offset table and binds to the
// scroll source if it is already available.
func New(cfg Config, provider ScrollSourceProvider, opts ...Option) (*Virtualizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("virtualizer: %w", err)
	}
	table, err := NewOffsetTable(cfg.ItemCount, cfg.EstimatedItemSize, cfg.Gap)
	if err != nil {
		return nil, fmt.Errorf("virtualizer: %w", err)
	}

	v := &Virtualizer{
		config:     cfg,
		table:      table,
		reconciler: NewReconciler(),
		provider:   provider,
		window:     emptyWindow,
		logf:       func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.scheduler == nil {
		v.scheduler = scheduler.NewManualScheduler()
	}

	v.Attach()
	return v, nil
}

// Config returns the construction config with the current item count.
func (v *Virtualizer) Config() Config {
	cfg := v.config
	cfg.ItemCount = v.table.Len()
	return cfg
}

// Attach binds the scroll listener once the provider yields a source. It is
// cheap to call repeatedly and reports whether the engine is bound.
func (v *Virtualizer) Attach() bool {
	if v.closed {
		return false
	}
	if v.source != nil {
		return true
	}
	if v.provider == nil {
		return false
	}
	source := v.provider()
	if source == nil {
		return false
	}

	v.source = source
	v.unsubscribe = source.Subscribe(v.requestFrame)
	v.readScroll()
	v.window = v.resolve()
	v.startIndex = v.window.Start
	return true
}

// Attached reports whether a scroll source is bound.
func (v *Virtualizer) Attached() bool {
	return v.source != nil
}

// SetScrollSourceProvider replaces the scroll binding. Any pending tick is
// canceled and the old listener removed before the new source is bound.
func (v *Virtualizer) SetScrollSourceProvider(provider ScrollSourceProvider) bool {
	v.detach()
	v.provider = provider
	return v.Attach()
}

// Teardown cancels the pending tick and removes the scroll listener. The
// engine yields empty windows afterwards.
func (v *Virtualizer) Teardown() {
	v.detach()
	v.closed = true
}

func (v *Virtualizer) detach() {
	v.cancelPending()
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
	v.source = nil
	v.window = emptyWindow
}

func (v *Virtualizer) cancelPending() {
	if v.pending != nil {
		v.pending.Cancel()
		v.pending = nil
		v.stats.CanceledTicks++
	}
}

// requestFrame keeps at most one tick outstanding.
func (v *Virtualizer) requestFrame() {
	if v.closed {
		return
	}
	v.cancelPending()
	v.pending = v.scheduler.Schedule(v.tick)
}

// Flush runs a pending tick now instead of waiting for the scheduler.
func (v *Virtualizer) Flush() {
	if v.pending == nil {
		return
	}
	v.pending.Cancel()
	v.pending = nil
	v.tick()
}

// tick applies every pending measurement, then reads the scroll state and
// recomputes the window, so a window never sees half a batch.
func (v *Virtualizer) tick() {
	v.pending = nil
	v.stats.Ticks++

	changed := false
	if v.reconciler.Pending() > 0 {
		res := v.reconciler.Apply(v.table)
		v.stats.PropagationPasses++
		v.stats.MeasurementsApplied += res.Applied
		v.stats.EntriesRewritten += res.Touched
		changed = res.Changed
	}

	if !v.Attach() {
		if changed && v.onChange != nil {
			v.onChange()
		}
		return
	}

	v.readScroll()
	window := v.resolve()
	if window.Start != v.startIndex {
		v.startIndex = window.Start
		v.stats.StartIndexChanges++
	}
	if window != v.window {
		v.window = window
		changed = true
	}
	if changed && v.onChange != nil {
		v.onChange()
	}
}

func (v *Virtualizer) readScroll() {
	if v.source == nil {
		return
	}
	v.scrollTop = v.source.ScrollOffset()
	v.viewport = v.source.ViewportSize()
}

func (v *Virtualizer) resolve() Window {
	return ResolveWindow(v.table, v.scrollTop, v.viewport, v.config.Overscan)
}

// TotalSize returns the total content length used to size the scrollable
// area.
func (v *Virtualizer) TotalSize() float64 {
	return v.table.Total()
}

// ItemCount returns the number of items.
func (v *Virtualizer) ItemCount() int {
	return v.table.Len()
}

// StartIndex returns the first strictly visible item as of the last tick.
func (v *Virtualizer) StartIndex() int {
	return v.startIndex
}

// Window returns the window as of the last tick.
func (v *Virtualizer) Window() Window {
	if !v.Attach() {
		return emptyWindow
	}
	return v.window
}

// VirtualItems returns the items to render for the last observed scroll
// state. It is empty while no scroll source is mounted.
func (v *Virtualizer) VirtualItems() []VirtualItem {
	return v.table.Items(v.Window())
}

// ItemStart returns the top edge of item index, clamped to valid indices.
func (v *Virtualizer) ItemStart(index int) float64 {
	if v.table.Len() == 0 {
		return 0
	}
	index = max(0, min(index, v.table.Len()-1))
	return v.table.Start(index)
}

// ReportMeasuredSize records the rendered size of item index. The size
// excludes the gap; the table adds it after every item but the last.
// Out-of-range indices and invalid sizes are ignored. The table is repaired
// on the next tick.
func (v *Virtualizer) ReportMeasuredSize(index int, size float64) {
	if index < 0 || index >= v.table.Len() {
		v.stats.MeasurementsIgnored++
		v.logf("virtual: ignoring measurement for index %d of %d", index, v.table.Len())
		return
	}
	if !finite(size) || size < 0 {
		v.stats.MeasurementsIgnored++
		v.logf("virtual: ignoring invalid size %v for index %d", size, index)
		return
	}
	if v.reconciler.Report(index, size) {
		v.requestFrame()
	}
}

// Measured reports whether item index has an applied measurement.
func (v *Virtualizer) Measured(index int) bool {
	return v.reconciler.Measured(index)
}

// SetItemCount grows or shrinks the list. Queued measurements are applied
// first; measured entries below the new count are kept and new items start
// at the estimated size.
func (v *Virtualizer) SetItemCount(itemCount int) error {
	if itemCount < 0 {
		return fmt.Errorf("virtualizer: item count %d: %w", itemCount, ErrInvalidItemCount)
	}
	if itemCount == v.table.Len() {
		return nil
	}

	if v.reconciler.Pending() > 0 {
		res := v.reconciler.Apply(v.table)
		v.stats.PropagationPasses++
		v.stats.MeasurementsApplied += res.Applied
		v.stats.EntriesRewritten += res.Touched
	}
	v.reconciler.Forget(itemCount)
	if err := v.table.Resize(itemCount); err != nil {
		return fmt.Errorf("virtualizer: %w", err)
	}
	if v.startIndex > max(0, itemCount-1) {
		v.startIndex = max(0, itemCount-1)
	}
	v.requestFrame()
	return nil
}

// Offsets returns a copy of the offset table.
func (v *Virtualizer) Offsets() []float64 {
	return v.table.Snapshot()
}

// Stats returns activity counters.
func (v *Virtualizer) Stats() Stats {
	return v.stats
}

// ScrollState returns the scroll offset and viewport size read on the last
// tick.
func (v *Virtualizer) ScrollState() (scrollTop, viewport float64) {
	return v.scrollTop, v.viewport
}

// MaxScroll returns the largest meaningful scroll offset for a viewport.
func (v *Virtualizer) MaxScroll(viewport float64) float64 {
	return math.Max(0, v.table.Total()-viewport)
}
