package toast

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/keyo-app/pulse-toast/internal/logging"
)

var (
	// ErrToastNotFound indicates that no live toast has the given ID.
	ErrToastNotFound = errors.New("toast not found")
	// ErrNotDismissible indicates the toast offers no close affordance.
	ErrNotDismissible = errors.New("toast is not dismissible")
	// ErrNoAction indicates the toast has no primary button.
	ErrNoAction = errors.New("toast has no action")
	// ErrNoCancel indicates the toast has no secondary button.
	ErrNoCancel = errors.New("toast has no cancel")
)

// Listener receives the full live list after every change.
type Listener func([]Toast)

// Observer is told about individual additions and removals.
// It runs outside the manager lock, after OnDismiss and before listeners.
type Observer interface {
	ToastAdded(t Toast)
	ToastRemoved(t Toast, cause Cause)
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock schedules auto-dismiss callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithIDGenerator replaces the UUID based ID generator.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithLogger sets the structured logger. The global logger is used otherwise.
func WithLogger(l logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithObserver registers an observer for additions and removals.
func WithObserver(o Observer) ManagerOption {
	return func(m *Manager) {
		if o != nil {
			m.observers = append(m.observers, o)
		}
	}
}

// WithDefaults sets the initial defaults.
func WithDefaults(d Defaults) ManagerOption {
	return func(m *Manager) {
		m.defaults = d.normalize()
	}
}

// Manager is the single source of truth for live toasts.
//
// Every mutating method completes its state change under the lock and then
// runs callbacks and listeners in the calling goroutine before returning.
// Auto-dismiss timers fire on their own goroutines, so snapshots carry a
// version and calls to one listener are serialized: a listener never sees an
// older list after a newer one. When another goroutine is already notifying
// a listener, that goroutine delivers the newer list instead.
type Manager struct {
	mu        sync.Mutex
	clock     Clock
	newID     func() string
	logger    logging.Logger
	defaults  Defaults
	toasts    []Toast
	timers    map[string]Timer
	subs      []*subscription
	nextSub   uint64
	version   uint64
	observers []Observer
	scoped    atomic.Bool
}

// NewManager creates an empty manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		clock:    systemClock{},
		newID:    uuid.NewString,
		defaults: DefaultDefaults(),
		timers:   make(map[string]Timer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) log() logging.Logger {
	if m.logger != nil {
		return m.logger
	}
	return logging.GetGlobal()
}

// ConfigureDefaults sets the fallbacks used by future Add calls.
// Toasts that already exist are not touched.
func (m *Manager) ConfigureDefaults(d Defaults) {
	m.mu.Lock()
	m.defaults = d.normalize()
	m.mu.Unlock()
	m.log().Debug("toast defaults configured", "position", d.Position.String(), "duration", d.Duration.String(), "dismissible", d.Dismissible)
}

// Defaults returns the current fallbacks.
func (m *Manager) Defaults() Defaults {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaults
}

// Add creates a toast, appends it to the live list and returns its ID.
func (m *Manager) Add(kind Kind, description string, opts ...Option) string {
	m.mu.Lock()
	t := build(kind, description, m.defaults, opts)
	t.ID = m.uniqueIDLocked()
	t.CreatedAt = m.clock.Now()
	m.toasts = append(m.toasts, t)
	if t.Duration > 0 {
		id := t.ID
		m.timers[id] = m.clock.AfterFunc(t.Duration, func() {
			m.remove(id, CauseTimeout)
		})
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.log().Debug("toast added", "id", t.ID, "kind", t.Kind.String(), "position", t.Position.String(), "duration", t.Duration.String())
	for _, o := range m.observers {
		o := o
		m.guard("observer", t.ID, func() { o.ToastAdded(t) })
	}
	m.publish(snap)
	return t.ID
}

// Remove removes the toast with the given ID. Unknown IDs are a no-op.
// It reports whether a toast was removed.
func (m *Manager) Remove(id string) bool {
	_, ok := m.remove(id, CauseDismissed)
	return ok
}

// Dismiss removes a single toast. It is equivalent to Remove.
func (m *Manager) Dismiss(id string) {
	m.remove(id, CauseDismissed)
}

// DismissAll clears the live list. Every OnDismiss callback runs and
// listeners are notified once with the empty list.
func (m *Manager) DismissAll() {
	m.mu.Lock()
	if len(m.toasts) == 0 {
		m.mu.Unlock()
		return
	}
	removed := m.toasts
	m.toasts = nil
	for id := range m.timers {
		m.stopTimerLocked(id)
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.log().Debug("toasts cleared", "count", len(removed))
	for _, t := range removed {
		m.finish(t, CauseCleared)
	}
	m.publish(snap)
}

// Close handles the user close affordance.
func (m *Manager) Close(id string) error {
	t, err := m.take(id, func(t Toast) error {
		if !t.Dismissible {
			return ErrNotDismissible
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.complete(t, CauseClosed)
	return nil
}

// Activate runs the toast's primary button and then dismisses it.
func (m *Manager) Activate(id string) error {
	return m.press(id, CauseAction, func(t Toast) (*Button, error) {
		if t.Action == nil {
			return nil, ErrNoAction
		}
		return t.Action, nil
	})
}

// CancelToast runs the toast's secondary button and then dismisses it.
func (m *Manager) CancelToast(id string) error {
	return m.press(id, CauseCancel, func(t Toast) (*Button, error) {
		if t.Cancel == nil {
			return nil, ErrNoCancel
		}
		return t.Cancel, nil
	})
}

// Get returns the live toast with the given ID.
func (m *Manager) Get(id string) (Toast, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := m.indexLocked(id); idx >= 0 {
		return m.toasts[idx], true
	}
	return Toast{}, false
}

// Toasts returns a copy of the live list in insertion order.
func (m *Manager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.toasts)
}

// Subscribe registers a listener and returns a function that removes it.
func (m *Manager) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	m.nextSub++
	sub := &subscription{id: m.nextSub, fn: fn}
	sub.active.Store(true)
	m.subs = append(m.subs, sub)
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			m.mu.Lock()
			m.subs = slices.DeleteFunc(m.subs, func(s *subscription) bool { return s.id == sub.id })
			m.mu.Unlock()
		})
	}
}

// BindScope marks the manager as owned by a scope. It returns false when a
// scope is already bound.
func (m *Manager) BindScope() bool {
	return m.scoped.CompareAndSwap(false, true)
}

// UnbindScope releases the scope binding.
func (m *Manager) UnbindScope() {
	m.scoped.Store(false)
}

func (m *Manager) remove(id string, cause Cause) (Toast, bool) {
	t, err := m.take(id, nil)
	if err != nil {
		return Toast{}, false
	}
	m.complete(t, cause)
	return t.Toast, true
}

func (m *Manager) press(id string, cause Cause, pick func(Toast) (*Button, error)) error {
	var button *Button
	t, err := m.take(id, func(t Toast) error {
		b, err := pick(t)
		button = b
		return err
	})
	if err != nil {
		return err
	}
	if button.OnActivate != nil {
		m.guard(cause.String(), t.ID, func() { button.OnActivate(t.Toast) })
	}
	m.complete(t, cause)
	return nil
}

// pending holds a snapshot taken when a toast left the list.
type pending struct {
	Toast
	snap snapshot
}

// take removes the toast from the list under the lock. check may veto the removal.
func (m *Manager) take(id string, check func(Toast) error) (pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(id)
	if idx < 0 {
		return pending{}, fmt.Errorf("%w: id %s", ErrToastNotFound, id)
	}
	t := m.toasts[idx]
	if check != nil {
		if err := check(t); err != nil {
			return pending{}, fmt.Errorf("%w: id %s", err, id)
		}
	}
	m.toasts = slices.Delete(m.toasts, idx, idx+1)
	m.stopTimerLocked(id)
	return pending{Toast: t, snap: m.snapshotLocked()}, nil
}

func (m *Manager) complete(p pending, cause Cause) {
	m.log().Debug("toast removed", "id", p.ID, "kind", p.Kind.String(), "cause", cause.String())
	m.finish(p.Toast, cause)
	m.publish(p.snap)
}

func (m *Manager) finish(t Toast, cause Cause) {
	if t.OnDismiss != nil {
		m.guard("on-dismiss", t.ID, func() { t.OnDismiss(t) })
	}
	for _, o := range m.observers {
		o := o
		m.guard("observer", t.ID, func() { o.ToastRemoved(t, cause) })
	}
}

// guard runs a caller supplied callback and keeps its panic from escaping the manager.
func (m *Manager) guard(what, id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log().Error("toast callback panicked", "callback", what, "id", id, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

func (m *Manager) indexLocked(id string) int {
	return slices.IndexFunc(m.toasts, func(t Toast) bool { return t.ID == id })
}

func (m *Manager) uniqueIDLocked() string {
	for {
		id := m.newID()
		if id != "" && m.indexLocked(id) < 0 {
			return id
		}
	}
}

func (m *Manager) stopTimerLocked(id string) {
	if timer, ok := m.timers[id]; ok {
		timer.Stop()
		delete(m.timers, id)
	}
}

type snapshot struct {
	version uint64
	toasts  []Toast
	subs    []*subscription
}

func (m *Manager) snapshotLocked() snapshot {
	m.version++
	return snapshot{
		version: m.version,
		toasts:  slices.Clone(m.toasts),
		subs:    slices.Clone(m.subs),
	}
}

func (m *Manager) publish(snap snapshot) {
	for _, sub := range snap.subs {
		sub.deliver(snap.version, snap.toasts)
	}
}

type subscription struct {
	id     uint64
	fn     Listener
	active atomic.Bool

	mu         sync.Mutex
	latest     uint64
	next       []Toast
	hasNext    bool
	delivering bool
}

// deliver hands the list to the listener unless a newer version was already
// accepted. Calls to the listener never overlap: while one goroutine is
// delivering, others leave their snapshot behind and the delivering
// goroutine passes on the newest one before it returns. A listener that
// calls back into the manager sees the resulting list after it returns.
func (s *subscription) deliver(version uint64, toasts []Toast) {
	if !s.active.Load() {
		return
	}
	s.mu.Lock()
	if version <= s.latest {
		s.mu.Unlock()
		return
	}
	s.latest = version
	s.next = toasts
	s.hasNext = true
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for s.hasNext {
		list := slices.Clone(s.next)
		s.next = nil
		s.hasNext = false
		s.mu.Unlock()

		if list == nil {
			list = []Toast{}
		}
		if s.active.Load() {
			s.call(list)
		}

		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
}

// call runs the listener and releases delivery ownership if it panics.
func (s *subscription) call(list []Toast) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.delivering = false
			s.hasNext = false
			s.next = nil
			s.mu.Unlock()
			panic(r)
		}
	}()
	s.fn(list)
}
