package virtual

// LocateIndex returns the index of the item whose span contains target.
//
// Item i spans [offsets[i-1], offsets[i]) with offsets[-1] = 0, so a target
// sitting exactly on a boundary belongs to the item that starts there. The
// search is restricted to [floor, len(offsets)-1]: targets before the floor
// item resolve to floor and targets at or past the end resolve to the last
// item. An empty table resolves to 0.
func LocateIndex(offsets []float64, target float64, floor int) int {
	n := len(offsets)
	if n == 0 {
		return 0
	}
	if floor < 0 {
		floor = 0
	}
	if floor > n-1 {
		floor = n - 1
	}

	low, high := floor, n-1
	for low < high {
		mid := int(uint(low+high) >> 1)
		if target < offsets[mid] {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return low
}
