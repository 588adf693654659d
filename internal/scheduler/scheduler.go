// Package scheduler coalesces high-frequency scroll and measurement events
// onto a frame cadence. A Scheduler holds at most one pending callback: a new
// Schedule replaces (cancels) the previous one, and the returned Handle
// cancels it explicitly.
package scheduler

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultFrameInterval is roughly one display refresh at 60 FPS.
const DefaultFrameInterval = 16 * time.Millisecond

// Handle cancels a scheduled callback. Cancel is idempotent and a no-op once
// the callback has run or has been superseded.
type Handle interface {
	Cancel()
}

// Scheduler defers a callback to the next frame.
type Scheduler interface {
	Schedule(fn func()) Handle
}

// slot is the single pending callback shared by both schedulers.
type slot struct {
	tag      int
	fn       func()
	canceled int
	frames   int
}

func (s *slot) arm(fn func()) int {
	if s.fn != nil {
		s.canceled++
	}
	s.tag++
	s.fn = fn
	return s.tag
}

func (s *slot) cancel(tag int) {
	if s.tag == tag && s.fn != nil {
		s.fn = nil
		s.canceled++
	}
}

// fire runs the callback armed under tag. The slot is cleared first so the
// callback may schedule the following frame.
func (s *slot) fire(tag int) bool {
	if s.tag != tag || s.fn == nil {
		return false
	}
	fn := s.fn
	s.fn = nil
	s.frames++
	fn()
	return true
}

type slotHandle struct {
	s   *slot
	tag int
}

func (h slotHandle) Cancel() {
	h.s.cancel(h.tag)
}

// FrameMsg delivers a frame tick back into the bubbletea update loop.
type FrameMsg struct {
	ID   int
	Tag  int
	Time time.Time
}

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// FrameScheduler runs callbacks on the bubbletea goroutine, aligned to the
// system clock at a fixed interval. Callers return Cmd() from their Update
// and route FrameMsg back through Update.
type FrameScheduler struct {
	id       int
	interval time.Duration
	slot     slot
	issued   int
}

// NewFrameScheduler creates a scheduler ticking every interval. A
// non-positive interval selects DefaultFrameInterval.
func NewFrameScheduler(interval time.Duration) *FrameScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameScheduler{id: nextID(), interval: interval}
}

// ID identifies this scheduler's FrameMsgs.
func (fs *FrameScheduler) ID() int {
	return fs.id
}

// Interval returns the frame interval.
func (fs *FrameScheduler) Interval() time.Duration {
	return fs.interval
}

// Schedule arms fn for the next frame, replacing any pending callback.
func (fs *FrameScheduler) Schedule(fn func()) Handle {
	return slotHandle{s: &fs.slot, tag: fs.slot.arm(fn)}
}

// Pending reports whether a callback is waiting for a frame.
func (fs *FrameScheduler) Pending() bool {
	return fs.slot.fn != nil
}

// Cmd returns the tick command for the pending callback, or nil when there
// is nothing new to wait for. Rescheduling lands on the same frame boundary
// because tea.Every is clock aligned.
func (fs *FrameScheduler) Cmd() tea.Cmd {
	if fs.slot.fn == nil || fs.issued == fs.slot.tag {
		return nil
	}
	fs.issued = fs.slot.tag
	id, tag := fs.id, fs.slot.tag
	return tea.Every(fs.interval, func(t time.Time) tea.Msg {
		return FrameMsg{ID: id, Tag: tag, Time: t}
	})
}

// Update runs the pending callback if msg is this scheduler's current frame.
// Stale or foreign frames are ignored.
func (fs *FrameScheduler) Update(msg tea.Msg) bool {
	frame, ok := msg.(FrameMsg)
	if !ok || frame.ID != fs.id {
		return false
	}
	return fs.slot.fire(frame.Tag)
}

// Stats returns the number of frames run and callbacks canceled.
func (fs *FrameScheduler) Stats() (frames, canceled int) {
	return fs.slot.frames, fs.slot.canceled
}

// ManualScheduler runs its pending callback only when Flush is called. It is
// used headless and in tests.
type ManualScheduler struct {
	slot slot
}

// NewManualScheduler returns an idle scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule arms fn for the next Flush, replacing any pending callback.
func (ms *ManualScheduler) Schedule(fn func()) Handle {
	return slotHandle{s: &ms.slot, tag: ms.slot.arm(fn)}
}

// Pending reports whether a callback is waiting.
func (ms *ManualScheduler) Pending() bool {
	return ms.slot.fn != nil
}

// Flush runs one frame. It returns false when nothing was pending.
func (ms *ManualScheduler) Flush() bool {
	return ms.slot.fire(ms.slot.tag)
}

// Stats returns the number of frames run and callbacks canceled.
func (ms *ManualScheduler) Stats() (frames, canceled int) {
	return ms.slot.frames, ms.slot.canceled
}
