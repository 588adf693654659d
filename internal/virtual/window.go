package virtual

// Window is the range of items relevant to one scroll state. Start and End
// are the strictly visible items; PaddedStart and PaddedEnd add overscan and
// are clamped to valid indices. An empty window has PaddedEnd < PaddedStart.
type Window struct {
	Start       int `json:"start"`
	End         int `json:"end"`
	PaddedStart int `json:"padded_start"`
	PaddedEnd   int `json:"padded_end"`
}

// Len returns the number of items in the padded window.
func (w Window) Len() int {
	if w.PaddedEnd < w.PaddedStart {
		return 0
	}
	return w.PaddedEnd - w.PaddedStart + 1
}

// Contains reports whether index falls inside the padded window.
func (w Window) Contains(index int) bool {
	return index >= w.PaddedStart && index <= w.PaddedEnd
}

var emptyWindow = Window{PaddedEnd: -1, End: -1}

// VirtualItem positions one item of the window. Key is stable for as long
// as the item keeps its index.
type VirtualItem struct {
	Index int     `json:"index"`
	Key   int     `json:"key"`
	Start float64 `json:"start"`
	Size  float64 `json:"size"`
}

// End returns the bottom edge of the item.
func (vi VirtualItem) End() float64 {
	return vi.Start + vi.Size
}

// ResolveWindow computes the overscan-padded window for a scroll state.
func ResolveWindow(t *OffsetTable, scrollTop, viewportHeight float64, overscan int) Window {
	n := t.Len()
	if n == 0 {
		return emptyWindow
	}
	if scrollTop < 0 || !finite(scrollTop) {
		scrollTop = 0
	}
	if viewportHeight < 0 || !finite(viewportHeight) {
		viewportHeight = 0
	}
	if overscan < 0 {
		overscan = 0
	}

	start := t.Locate(scrollTop, 0)
	return windowFrom(t, start, scrollTop+viewportHeight, overscan)
}

// windowFrom resolves the bottom boundary starting the search at start.
func windowFrom(t *OffsetTable, start int, bottom float64, overscan int) Window {
	end := t.Locate(bottom, start)
	return Window{
		Start:       start,
		End:         end,
		PaddedStart: max(0, start-overscan),
		PaddedEnd:   min(end+overscan, t.Len()-1),
	}
}

// Items materializes the virtual items of w. The result is a fresh slice.
func (t *OffsetTable) Items(w Window) []VirtualItem {
	if w.Len() == 0 {
		return []VirtualItem{}
	}
	items := make([]VirtualItem, 0, w.Len())
	for i := w.PaddedStart; i <= w.PaddedEnd && i < t.Len(); i++ {
		items = append(items, VirtualItem{
			Index: i,
			Key:   i,
			Start: t.Start(i),
			Size:  t.Size(i),
		})
	}
	return items
}
