package performance

import (
	"math"
	"sort"
	"time"
)

// FrameHistory keeps the most recent layout durations in a circular buffer.
// The oldest sample is overwritten once the buffer is full.
type FrameHistory struct {
	buffer   []time.Duration
	head     int
	size     int
	capacity int
	total    int
}

// NewFrameHistory creates a history holding capacity samples
func NewFrameHistory(capacity int) *FrameHistory {
	capacity = max(1, capacity)
	return &FrameHistory{
		buffer:   make([]time.Duration, capacity),
		capacity: capacity,
	}
}

// Add records a sample
func (fh *FrameHistory) Add(d time.Duration) {
	fh.buffer[fh.head] = d
	fh.head = (fh.head + 1) % fh.capacity
	if fh.size < fh.capacity {
		fh.size++
	}
	fh.total++
}

// Samples returns the retained samples, oldest first
func (fh *FrameHistory) Samples() []time.Duration {
	out := make([]time.Duration, fh.size)
	start := fh.head - fh.size
	if start < 0 {
		start += fh.capacity
	}
	for i := range out {
		out[i] = fh.buffer[(start+i)%fh.capacity]
	}
	return out
}

// Last returns the newest sample, or zero when empty
func (fh *FrameHistory) Last() time.Duration {
	if fh.size == 0 {
		return 0
	}
	return fh.buffer[(fh.head-1+fh.capacity)%fh.capacity]
}

// Average returns the mean of the retained samples
func (fh *FrameHistory) Average() time.Duration {
	if fh.size == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range fh.Samples() {
		sum += d
	}
	return sum / time.Duration(fh.size)
}

// Max returns the largest retained sample
func (fh *FrameHistory) Max() time.Duration {
	var m time.Duration
	for _, d := range fh.Samples() {
		m = max(m, d)
	}
	return m
}

// Percentile returns the nearest-rank percentile p in [0, 100]
func (fh *FrameHistory) Percentile(p float64) time.Duration {
	if fh.size == 0 {
		return 0
	}
	samples := fh.Samples()
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	rank := int(math.Ceil(p/100*float64(len(samples)))) - 1
	rank = min(max(rank, 0), len(samples)-1)
	return samples[rank]
}

// Size returns the number of retained samples
func (fh *FrameHistory) Size() int {
	return fh.size
}

// Total returns the number of samples ever added
func (fh *FrameHistory) Total() int {
	return fh.total
}

// Clear drops all samples
func (fh *FrameHistory) Clear() {
	fh.head, fh.size, fh.total = 0, 0, 0
}
