// Package scope binds a consumer to a toast manager for its lifetime.
//
// A scope configures the manager's defaults once, keeps the latest live list
// and fans manager notifications out to the consumers it serves (the
// terminal container, the feed hub). One scope per manager.
package scope

import (
	"errors"
	"sync"

	"github.com/keyo-app/pulse-toast/internal/toast"
)

// ErrScopeActive is returned by Open when the manager already has a scope.
var ErrScopeActive = errors.New("toast scope already active for this manager")

// Scope is an open subscription boundary over a manager.
type Scope struct {
	m           *toast.Manager
	unsubscribe func()

	mu        sync.Mutex
	toasts    []toast.Toast
	received  bool
	watchers  map[int]toast.Listener
	nextWatch int
	closed    bool
}

// Open configures m with defaults, subscribes for the scope's lifetime and
// seeds the cached list. onChange may be nil.
func Open(m *toast.Manager, defaults toast.Defaults, onChange toast.Listener) (*Scope, error) {
	if m == nil {
		panic("scope.Open: manager dependency cannot be nil")
	}
	if !m.BindScope() {
		return nil, ErrScopeActive
	}
	m.ConfigureDefaults(defaults)

	s := &Scope{m: m, watchers: make(map[int]toast.Listener)}
	if onChange != nil {
		s.watchers[0] = onChange
		s.nextWatch = 1
	}
	s.unsubscribe = m.Subscribe(s.update)

	// A notification that raced ahead of this read is newer; keep it.
	initial := m.Toasts()
	s.mu.Lock()
	if !s.received {
		s.toasts = initial
	}
	s.mu.Unlock()
	return s, nil
}

func (s *Scope) update(list []toast.Toast) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.toasts = list
	s.received = true
	watchers := make([]toast.Listener, 0, len(s.watchers))
	for i := 0; i < s.nextWatch; i++ {
		if w, ok := s.watchers[i]; ok {
			watchers = append(watchers, w)
		}
	}
	s.mu.Unlock()

	for _, w := range watchers {
		w(list)
	}
}

// Watch registers another consumer of list changes and returns a function
// that removes it. The consumer is not called with the current list; read
// Toasts for that.
func (s *Scope) Watch(fn toast.Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Toasts returns a copy of the latest live list, oldest first.
func (s *Scope) Toasts() []toast.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]toast.Toast, len(s.toasts))
	copy(out, s.toasts)
	return out
}

// ByPosition groups the latest list by anchor, keeping insertion order
// within each group. Empty anchors are absent from the map.
func (s *Scope) ByPosition() map[toast.Position][]toast.Toast {
	groups := make(map[toast.Position][]toast.Toast)
	for _, t := range s.Toasts() {
		groups[t.Position] = append(groups[t.Position], t)
	}
	return groups
}

// Manager returns the manager the scope is bound to.
func (s *Scope) Manager() *toast.Manager {
	return s.m
}

// Close unsubscribes and releases the manager for another scope. The cached
// list is kept. Close is idempotent.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.watchers = make(map[int]toast.Listener)
	s.mu.Unlock()

	s.unsubscribe()
	s.m.UnbindScope()
}
