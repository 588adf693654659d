package virtual

import (
	"fmt"
	"math"
)

// OffsetTable holds the cumulative bottom edge of every item: entry i is the
// distance from the top of the list to the bottom of item i, including the
// gap that follows it. The last item carries no trailing gap, so the final
// entry is the total content length.
type OffsetTable struct {
	offsets  []float64
	estimate float64
	gap      float64
}

// NewOffsetTable builds the optimistic table where every item has the
// estimated size.
func NewOffsetTable(itemCount int, estimatedItemSize, gap float64) (*OffsetTable, error) {
	if itemCount < 0 {
		return nil, fmt.Errorf("offset table: %d: %w", itemCount, ErrInvalidItemCount)
	}
	if !finite(estimatedItemSize) || estimatedItemSize <= 0 {
		return nil, fmt.Errorf("offset table: %v: %w", estimatedItemSize, ErrInvalidItemSize)
	}
	if !finite(gap) || gap < 0 {
		return nil, fmt.Errorf("offset table: %v: %w", gap, ErrInvalidGap)
	}

	t := &OffsetTable{
		offsets:  make([]float64, 0, itemCount),
		estimate: estimatedItemSize,
		gap:      gap,
	}
	t.grow(itemCount)
	return t, nil
}

// Len returns the number of items tracked.
func (t *OffsetTable) Len() int {
	return len(t.offsets)
}

// Total returns the total content length, 0 for an empty table.
func (t *OffsetTable) Total() float64 {
	if len(t.offsets) == 0 {
		return 0
	}
	return t.offsets[len(t.offsets)-1]
}

// Start returns the top edge of item i.
func (t *OffsetTable) Start(i int) float64 {
	if i <= 0 {
		return 0
	}
	return t.offsets[i-1]
}

// End returns the bottom edge of item i, trailing gap included.
func (t *OffsetTable) End(i int) float64 {
	return t.offsets[i]
}

// Size returns the effective size of item i (its trailing gap included).
func (t *OffsetTable) Size(i int) float64 {
	return t.End(i) - t.Start(i)
}

// Locate returns the index of the item containing target, searching no
// lower than floor.
func (t *OffsetTable) Locate(target float64, floor int) int {
	return LocateIndex(t.offsets, target, floor)
}

// Snapshot returns a copy of the offsets.
func (t *OffsetTable) Snapshot() []float64 {
	out := make([]float64, len(t.offsets))
	copy(out, t.offsets)
	return out
}

// Resize changes the number of tracked items. Existing entries keep their
// measured values; new entries use the estimated size. The item that becomes
// (or stops being) the last one gains or loses its trailing gap.
func (t *OffsetTable) Resize(itemCount int) error {
	if itemCount < 0 {
		return fmt.Errorf("offset table resize: %d: %w", itemCount, ErrInvalidItemCount)
	}

	n := len(t.offsets)
	switch {
	case itemCount > n:
		if n > 0 && t.gap > 0 {
			t.offsets[n-1] += t.gap
		}
		t.grow(itemCount - n)
	case itemCount < n:
		t.offsets = t.offsets[:itemCount]
		if itemCount > 0 && t.gap > 0 {
			t.offsets[itemCount-1] -= t.gap
		}
	}
	return nil
}

// gapAfter is the gap that follows item i.
func (t *OffsetTable) gapAfter(i int) float64 {
	if i == len(t.offsets)-1 {
		return 0
	}
	return t.gap
}

// grow appends count estimated entries. It assumes the current last entry
// already carries its trailing gap when count > 0.
func (t *OffsetTable) grow(count int) {
	total := t.Total()
	for k := 0; k < count; k++ {
		total += t.estimate
		if k < count-1 {
			total += t.gap
		}
		t.offsets = append(t.offsets, total)
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
