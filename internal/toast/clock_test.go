package toast

import (
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock fires timers only when Advance is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves the clock forward and runs every timer that became due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// Pending counts timers that are neither stopped nor fired.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	mu      sync.Mutex
	added   []string
	removed map[string]Cause
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{removed: make(map[string]Cause)}
}

func (o *recordingObserver) ToastAdded(t Toast) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.added = append(o.added, t.ID)
}

func (o *recordingObserver) ToastRemoved(t Toast, cause Cause) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removed[t.ID] = cause
}

func (o *recordingObserver) cause(id string) (Cause, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.removed[id]
	return c, ok
}

func newTestManager(t *testing.T, opts ...ManagerOption) (*Manager, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	m := NewManager(append([]ManagerOption{WithClock(clock)}, opts...)...)
	t.Cleanup(m.DismissAll)
	return m, clock
}

func ids(toasts []Toast) []string {
	out := make([]string, 0, len(toasts))
	for _, t := range toasts {
		out = append(out, t.ID)
	}
	return out
}
