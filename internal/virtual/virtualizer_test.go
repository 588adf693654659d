package virtual

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlist-tui/internal/scheduler"
)

// fakeSource is an in-memory scroll container.
type fakeSource struct {
	scrollTop float64
	viewport  float64
	listeners map[int]func()
	next      int
}

func newFakeSource(scrollTop, viewport float64) *fakeSource {
	return &fakeSource{scrollTop: scrollTop, viewport: viewport, listeners: make(map[int]func())}
}

func (f *fakeSource) ScrollOffset() float64 { return f.scrollTop }
func (f *fakeSource) ViewportSize() float64 { return f.viewport }

func (f *fakeSource) Subscribe(listener func()) func() {
	id := f.next
	f.next++
	f.listeners[id] = listener
	return func() { delete(f.listeners, id) }
}

func (f *fakeSource) scrollTo(offset float64) {
	f.scrollTop = offset
	for _, l := range f.listeners {
		l()
	}
}

func provide(src *fakeSource) ScrollSourceProvider {
	return func() ScrollSource { return src }
}

func newTestVirtualizer(t *testing.T, cfg Config, src *fakeSource) (*Virtualizer, *scheduler.ManualScheduler) {
	t.Helper()
	sched := scheduler.NewManualScheduler()
	v, err := New(cfg, provide(src), WithScheduler(sched))
	require.NoError(t, err)
	return v, sched
}

func indices(items []VirtualItem) []int {
	out := make([]int, len(items))
	for i, item := range items {
		out[i] = item.Index
	}
	return out
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"negative count", Config{ItemCount: -1, EstimatedItemSize: 10}, ErrInvalidItemCount},
		{"zero size", Config{ItemCount: 1}, ErrInvalidItemSize},
		{"negative gap", Config{ItemCount: 1, EstimatedItemSize: 1, Gap: -2}, ErrInvalidGap},
		{"negative overscan", Config{ItemCount: 1, EstimatedItemSize: 1, Overscan: -1}, ErrInvalidOverscan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(tt.cfg, nil)
			assert.Nil(t, v)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVirtualizerInitialWindow(t *testing.T) {
	v, _ := newTestVirtualizer(t, Config{ItemCount: 1000, EstimatedItemSize: 144, Overscan: 2}, newFakeSource(0, 576))

	assert.Equal(t, 144000.0, v.TotalSize())

	items := v.VirtualItems()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, indices(items))
	assert.Equal(t, VirtualItem{Index: 3, Key: 3, Start: 432, Size: 144}, items[3])
	assert.Equal(t, 0, v.StartIndex())
}

func TestVirtualizerMeasurementShiftsLaterItems(t *testing.T) {
	v, sched := newTestVirtualizer(t, Config{ItemCount: 1000, EstimatedItemSize: 144, Overscan: 2}, newFakeSource(0, 576))

	v.ReportMeasuredSize(0, 288)
	// Nothing changes until the tick runs.
	assert.Equal(t, 144000.0, v.TotalSize())
	require.True(t, sched.Flush())

	assert.Equal(t, 144144.0, v.TotalSize())
	items := v.VirtualItems()
	require.GreaterOrEqual(t, len(items), 2)
	assert.Equal(t, 288.0, items[1].Start)
	assert.Equal(t, 288.0, items[0].Size)
}

func TestVirtualizerMeasuredSizeExcludesGap(t *testing.T) {
	v, sched := newTestVirtualizer(t, Config{ItemCount: 3, EstimatedItemSize: 10, Gap: 2}, newFakeSource(0, 100))
	require.Equal(t, []float64{12, 24, 34}, v.Offsets())

	v.ReportMeasuredSize(0, 5)
	v.ReportMeasuredSize(2, 4)
	require.True(t, sched.Flush())

	// the gap follows every item but the last
	assert.Equal(t, []float64{7, 19, 23}, v.Offsets())
	assert.Equal(t, 7.0, v.ItemStart(1))
	assert.Equal(t, 23.0, v.TotalSize())
}

func TestVirtualizerEmptyList(t *testing.T) {
	v, sched := newTestVirtualizer(t, Config{ItemCount: 0, EstimatedItemSize: 10, Overscan: 2}, newFakeSource(0, 100))

	assert.Equal(t, 0.0, v.TotalSize())
	assert.Empty(t, v.VirtualItems())

	v.ReportMeasuredSize(0, 20)
	assert.False(t, sched.Pending())
	assert.Equal(t, 1, v.Stats().MeasurementsIgnored)
}

func TestVirtualizerWindowContainment(t *testing.T) {
	src := newFakeSource(0, 57)
	v, sched := newTestVirtualizer(t, Config{ItemCount: 200, EstimatedItemSize: 5, Gap: 1, Overscan: 3}, src)

	for i := 0; i < 200; i += 2 {
		v.ReportMeasuredSize(i, float64(i%13))
	}
	sched.Flush()
	total := v.TotalSize()

	for scrollTop := 0.0; scrollTop < total; scrollTop += 7.5 {
		src.scrollTo(scrollTop)
		sched.Flush()

		w := v.Window()
		bottom := scrollTop + src.viewport
		for i := w.Start; i <= w.End; i++ {
			start, end := v.ItemStart(i), v.ItemStart(i)+v.table.Size(i)
			assert.True(t, start <= bottom && end >= scrollTop,
				fmt.Sprintf("item %d [%v,%v] outside [%v,%v]", i, start, end, scrollTop, bottom))
		}
		assert.Equal(t, max(0, w.Start-3), w.PaddedStart)
		assert.Equal(t, min(w.End+3, 199), w.PaddedEnd)
		assert.Equal(t, w.Len(), len(v.VirtualItems()))
	}
}

func TestVirtualizerCoalescesScrollEvents(t *testing.T) {
	src := newFakeSource(0, 100)
	v, sched := newTestVirtualizer(t, Config{ItemCount: 100, EstimatedItemSize: 10}, src)

	for i := 1; i <= 20; i++ {
		src.scrollTo(float64(i * 10))
	}
	v.ReportMeasuredSize(1, 30)
	v.ReportMeasuredSize(0, 30)

	require.True(t, sched.Flush())
	assert.False(t, sched.Flush(), "only one tick should be pending")

	stats := v.Stats()
	assert.Equal(t, 1, stats.Ticks)
	assert.Equal(t, 1, stats.PropagationPasses)
	assert.Equal(t, 2, stats.MeasurementsApplied)
	assert.Equal(t, 21, stats.CanceledTicks)

	// 200 now falls in item 16: items 0 and 1 grew by 40 in total.
	assert.Equal(t, 16, v.StartIndex())
}

func TestVirtualizerStartIndexOnlyUpdatesOnChange(t *testing.T) {
	src := newFakeSource(0, 50)
	changes := 0
	sched := scheduler.NewManualScheduler()
	v, err := New(Config{ItemCount: 50, EstimatedItemSize: 10}, provide(src),
		WithScheduler(sched), WithOnChange(func() { changes++ }))
	require.NoError(t, err)

	src.scrollTo(3)
	sched.Flush()
	assert.Equal(t, 0, v.StartIndex())
	assert.Equal(t, 0, v.Stats().StartIndexChanges)
	assert.Equal(t, 0, changes)

	src.scrollTo(25)
	sched.Flush()
	assert.Equal(t, 2, v.StartIndex())
	assert.Equal(t, 1, v.Stats().StartIndexChanges)
	assert.Equal(t, 1, changes)
}

func TestVirtualizerIdempotentMeasurement(t *testing.T) {
	v, sched := newTestVirtualizer(t, Config{ItemCount: 10, EstimatedItemSize: 10}, newFakeSource(0, 30))

	v.ReportMeasuredSize(3, 12)
	sched.Flush()
	snapshot := v.Offsets()

	v.ReportMeasuredSize(3, 12)
	assert.False(t, sched.Pending())
	assert.Equal(t, snapshot, v.Offsets())
	assert.True(t, v.Measured(3))
}

func TestVirtualizerIgnoresInvalidMeasurements(t *testing.T) {
	var logged []string
	sched := scheduler.NewManualScheduler()
	v, err := New(Config{ItemCount: 3, EstimatedItemSize: 10}, provide(newFakeSource(0, 10)),
		WithScheduler(sched),
		WithLogger(func(format string, args ...any) { logged = append(logged, fmt.Sprintf(format, args...)) }))
	require.NoError(t, err)

	v.ReportMeasuredSize(-1, 5)
	v.ReportMeasuredSize(3, 5)
	v.ReportMeasuredSize(1, -5)

	assert.False(t, sched.Pending())
	assert.Equal(t, 3, v.Stats().MeasurementsIgnored)
	assert.Len(t, logged, 3)
	assert.Equal(t, []float64{10, 20, 30}, v.Offsets())
}

func TestVirtualizerDefersAttachment(t *testing.T) {
	var src *fakeSource
	provider := func() ScrollSource {
		if src == nil {
			return nil
		}
		return src
	}
	sched := scheduler.NewManualScheduler()
	v, err := New(Config{ItemCount: 100, EstimatedItemSize: 10, Overscan: 1}, provider, WithScheduler(sched))
	require.NoError(t, err)

	assert.False(t, v.Attached())
	assert.Empty(t, v.VirtualItems())
	assert.Equal(t, 1000.0, v.TotalSize())

	// Measurements are accepted before mounting.
	v.ReportMeasuredSize(0, 20)
	sched.Flush()
	assert.Equal(t, 1010.0, v.TotalSize())

	src = newFakeSource(0, 30)
	assert.Equal(t, []int{0, 1, 2, 3}, indices(v.VirtualItems()))
	assert.True(t, v.Attached())
	assert.Len(t, src.listeners, 1)
}

func TestVirtualizerTeardownCancelsPendingTick(t *testing.T) {
	src := newFakeSource(0, 30)
	ticks := 0
	sched := scheduler.NewManualScheduler()
	v, err := New(Config{ItemCount: 10, EstimatedItemSize: 10}, provide(src),
		WithScheduler(sched), WithOnChange(func() { ticks++ }))
	require.NoError(t, err)

	src.scrollTo(50)
	require.True(t, sched.Pending())

	v.Teardown()
	assert.False(t, sched.Pending())
	assert.False(t, sched.Flush())
	assert.Empty(t, src.listeners)
	assert.Empty(t, v.VirtualItems())
	assert.Equal(t, 0, ticks)

	// Events after teardown are dropped.
	v.ReportMeasuredSize(1, 40)
	assert.False(t, sched.Pending())
	v.Teardown()
}

func TestVirtualizerRebindCancelsPendingTick(t *testing.T) {
	first := newFakeSource(0, 30)
	second := newFakeSource(40, 30)
	v, sched := newTestVirtualizer(t, Config{ItemCount: 10, EstimatedItemSize: 10, Overscan: 0}, first)

	first.scrollTo(20)
	require.True(t, sched.Pending())

	require.True(t, v.SetScrollSourceProvider(provide(second)))
	assert.False(t, sched.Pending())
	assert.Empty(t, first.listeners)
	assert.Len(t, second.listeners, 1)
	assert.Equal(t, []int{4, 5, 6, 7}, indices(v.VirtualItems()))
}

func TestVirtualizerSetItemCount(t *testing.T) {
	src := newFakeSource(0, 30)
	v, sched := newTestVirtualizer(t, Config{ItemCount: 3, EstimatedItemSize: 10, Gap: 1}, src)

	v.ReportMeasuredSize(1, 20)
	require.NoError(t, v.SetItemCount(5))
	assert.Equal(t, []float64{11, 32, 43, 54, 64}, v.Offsets())
	assert.True(t, v.Measured(1))

	v.ReportMeasuredSize(4, 1)
	require.NoError(t, v.SetItemCount(2))
	assert.Equal(t, []float64{11, 31}, v.Offsets())
	sched.Flush()
	assert.Equal(t, 31.0, v.TotalSize())

	assert.ErrorIs(t, v.SetItemCount(-3), ErrInvalidItemCount)
}

func TestVirtualizerFlush(t *testing.T) {
	v, sched := newTestVirtualizer(t, Config{ItemCount: 4, EstimatedItemSize: 10}, newFakeSource(0, 10))

	v.ReportMeasuredSize(0, 15)
	v.Flush()
	assert.Equal(t, 45.0, v.TotalSize())
	assert.False(t, sched.Pending())
}

func TestVirtualizerMonotonicAfterRandomMeasurements(t *testing.T) {
	v, sched := newTestVirtualizer(t, Config{ItemCount: 300, EstimatedItemSize: 8, Gap: 2}, newFakeSource(0, 80))

	for round := 0; round < 5; round++ {
		for i := round; i < 300; i += 7 {
			v.ReportMeasuredSize(i, float64((i*31+round*17)%50))
		}
		sched.Flush()
		offsets := v.Offsets()
		assertMonotonic(t, offsets)
		assert.Equal(t, offsets[len(offsets)-1], v.TotalSize())
	}
}
