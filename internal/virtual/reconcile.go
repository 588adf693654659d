package virtual

import "sort"

// Reconciler collects authoritative item sizes that arrive after layout and
// folds them into an OffsetTable in a single pass.
type Reconciler struct {
	pending  map[int]float64
	measured map[int]float64
}

// ApplyResult describes one propagation pass.
type ApplyResult struct {
	Applied int // measurements consumed
	Changed bool
	From    int // first index rewritten
	Touched int // entries rewritten
}

// NewReconciler returns an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{
		pending:  make(map[int]float64),
		measured: make(map[int]float64),
	}
}

// Report queues a measurement. It returns false when the size matches the
// last applied measurement for index and nothing else is queued for it, in
// which case there is nothing to do. A later report for the same index in the
// same tick replaces the earlier one.
func (r *Reconciler) Report(index int, size float64) bool {
	if _, queued := r.pending[index]; !queued {
		if last, ok := r.measured[index]; ok && last == size {
			return false
		}
	}
	r.pending[index] = size
	return true
}

// Pending returns the number of queued measurements.
func (r *Reconciler) Pending() int {
	return len(r.pending)
}

// Measured reports whether index has an applied measurement.
func (r *Reconciler) Measured(index int) bool {
	_, ok := r.measured[index]
	return ok
}

// Apply folds every queued measurement into t. Pending indices are visited in
// ascending order so each item's new bottom edge is derived from its already
// corrected predecessor, and the tail of the table is walked at most once.
func (r *Reconciler) Apply(t *OffsetTable) ApplyResult {
	if len(r.pending) == 0 {
		return ApplyResult{}
	}

	n := t.Len()
	indices := make([]int, 0, len(r.pending))
	for index := range r.pending {
		if index >= 0 && index < n {
			indices = append(indices, index)
		}
	}
	sort.Ints(indices)

	pending := r.pending
	r.pending = make(map[int]float64)

	res := ApplyResult{Applied: len(indices)}
	if len(indices) == 0 {
		return res
	}

	first, last := indices[0], indices[len(indices)-1]
	res.From = first

	delta := 0.0
	prev := t.Start(first)
	for i := first; i < n; i++ {
		old := t.offsets[i]
		next := old + delta
		if size, ok := pending[i]; ok {
			next = prev + size + t.gapAfter(i)
			delta = next - old
			r.measured[i] = size
		}
		if next != old {
			t.offsets[i] = next
			res.Changed = true
			res.Touched++
		}
		prev = next
		if i >= last && delta == 0 {
			break
		}
	}
	return res
}

// Forget drops queued and applied measurements at or past itemCount.
func (r *Reconciler) Forget(itemCount int) {
	for index := range r.pending {
		if index >= itemCount {
			delete(r.pending, index)
		}
	}
	for index := range r.measured {
		if index >= itemCount {
			delete(r.measured, index)
		}
	}
}
