package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualSchedulerRunsOnce(t *testing.T) {
	s := NewManualScheduler()
	runs := 0

	s.Schedule(func() { runs++ })
	assert.True(t, s.Pending())
	assert.True(t, s.Flush())
	assert.False(t, s.Flush())
	assert.Equal(t, 1, runs)

	frames, canceled := s.Stats()
	assert.Equal(t, 1, frames)
	assert.Equal(t, 0, canceled)
}

func TestManualSchedulerReplacesPending(t *testing.T) {
	s := NewManualScheduler()
	var got []string

	s.Schedule(func() { got = append(got, "first") })
	s.Schedule(func() { got = append(got, "second") })
	s.Flush()

	assert.Equal(t, []string{"second"}, got)
	_, canceled := s.Stats()
	assert.Equal(t, 1, canceled)
}

func TestHandleCancel(t *testing.T) {
	s := NewManualScheduler()
	ran := false

	h := s.Schedule(func() { ran = true })
	h.Cancel()
	h.Cancel()

	assert.False(t, s.Pending())
	assert.False(t, s.Flush())
	assert.False(t, ran)
}

func TestStaleHandleDoesNotCancelNewer(t *testing.T) {
	s := NewManualScheduler()
	ran := false

	old := s.Schedule(func() {})
	s.Schedule(func() { ran = true })
	old.Cancel()

	require.True(t, s.Flush())
	assert.True(t, ran)
}

func TestCallbackMayScheduleNextFrame(t *testing.T) {
	s := NewManualScheduler()
	runs := 0
	var step func()
	step = func() {
		runs++
		if runs < 3 {
			s.Schedule(step)
		}
	}

	s.Schedule(step)
	for s.Flush() {
	}
	assert.Equal(t, 3, runs)
}

func TestFrameSchedulerDefaults(t *testing.T) {
	fs := NewFrameScheduler(0)
	assert.Equal(t, DefaultFrameInterval, fs.Interval())
	assert.Nil(t, fs.Cmd())
	assert.NotEqual(t, fs.ID(), NewFrameScheduler(0).ID())
}

func TestFrameSchedulerIssuesOneCmdPerTag(t *testing.T) {
	fs := NewFrameScheduler(time.Millisecond)

	fs.Schedule(func() {})
	assert.NotNil(t, fs.Cmd())
	assert.Nil(t, fs.Cmd(), "tick already issued for this tag")

	fs.Schedule(func() {})
	assert.NotNil(t, fs.Cmd())
}

func TestFrameSchedulerUpdate(t *testing.T) {
	fs := NewFrameScheduler(time.Millisecond)
	runs := 0

	fs.Schedule(func() { runs++ })
	cmd := fs.Cmd()
	require.NotNil(t, cmd)

	msg := cmd()
	frame, ok := msg.(FrameMsg)
	require.True(t, ok)
	assert.Equal(t, fs.ID(), frame.ID)

	assert.True(t, fs.Update(msg))
	assert.False(t, fs.Update(msg), "a frame runs at most once")
	assert.Equal(t, 1, runs)
}

func TestFrameSchedulerDropsStaleAndForeignFrames(t *testing.T) {
	fs := NewFrameScheduler(time.Millisecond)
	runs := 0

	fs.Schedule(func() { runs += 10 })
	stale := fs.Cmd()()
	fs.Schedule(func() { runs++ })

	assert.False(t, fs.Update(stale))
	assert.False(t, fs.Update(FrameMsg{ID: fs.ID() + 1000, Tag: 2}))
	assert.False(t, fs.Update("not a frame"))
	assert.True(t, fs.Update(fs.Cmd()()))
	assert.Equal(t, 1, runs)
}

func TestFrameSchedulerCanceledFrame(t *testing.T) {
	fs := NewFrameScheduler(time.Millisecond)
	h := fs.Schedule(func() { t.Fatal("canceled callback ran") })
	msg := fs.Cmd()()

	h.Cancel()
	assert.False(t, fs.Pending())
	assert.False(t, fs.Update(msg))
	assert.Nil(t, fs.Cmd())
}

func TestThrottle(t *testing.T) {
	now := time.Unix(1000, 0)
	th := NewThrottle(200 * time.Millisecond)
	th.now = func() time.Time { return now }

	assert.True(t, th.Allow())
	assert.False(t, th.Allow())

	now = now.Add(199 * time.Millisecond)
	assert.False(t, th.Allow())

	now = now.Add(time.Millisecond)
	assert.True(t, th.Allow())
	assert.Equal(t, 2, th.Dropped())

	th.Reset()
	assert.True(t, th.Allow())
}

func TestThrottleDefaultInterval(t *testing.T) {
	th := NewThrottle(-1)
	assert.Equal(t, DefaultThrottleInterval, th.interval)
}
