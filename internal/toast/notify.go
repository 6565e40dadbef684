package toast

import (
	"context"
	"sync"
)

var (
	defaultMu      sync.RWMutex
	defaultManager = NewManager()
)

// Default returns the process-wide manager used by the package-level functions.
func Default() *Manager {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultManager
}

// SetDefault installs m as the process-wide manager.
func SetDefault(m *Manager) {
	if m == nil {
		panic("SetDefault: manager cannot be nil")
	}
	defaultMu.Lock()
	defaultManager = m
	defaultMu.Unlock()
}

// Reset clears the current default manager and installs a fresh one.
// Tests use it to isolate global state.
func Reset(opts ...ManagerOption) *Manager {
	m := NewManager(opts...)
	defaultMu.Lock()
	old := defaultManager
	defaultManager = m
	defaultMu.Unlock()
	old.DismissAll()
	return m
}

// Notify shows a default-kind toast.
func Notify(message string, opts ...Option) string {
	return Default().Add(KindDefault, message, opts...)
}

// Success shows a success toast.
func Success(message string, opts ...Option) string {
	return Default().Add(KindSuccess, message, opts...)
}

// Error shows an error toast.
func Error(message string, opts ...Option) string {
	return Default().Add(KindError, message, opts...)
}

// Info shows an info toast.
func Info(message string, opts ...Option) string {
	return Default().Add(KindInfo, message, opts...)
}

// Warning shows a warning toast.
func Warning(message string, opts ...Option) string {
	return Default().Add(KindWarning, message, opts...)
}

// Loading shows a toast that never auto-dismisses unless WithDuration is given.
func Loading(message string, opts ...Option) string {
	return Default().Add(KindLoading, message, opts...)
}

// Promise runs op behind a loading toast on the default manager.
func Promise[T any](ctx context.Context, op func(context.Context) (T, error), msgs PromiseMessages[T], opts ...Option) (T, error) {
	return PromiseWith(ctx, Default(), op, msgs, opts...)
}

// Dismiss removes one toast from the default manager.
func Dismiss(id string) {
	Default().Dismiss(id)
}

// DismissAll clears the default manager.
func DismissAll() {
	Default().DismissAll()
}

// GetDefaults returns the defaults of the default manager.
func GetDefaults() Defaults {
	return Default().Defaults()
}

// Configure sets the defaults of the default manager.
func Configure(d Defaults) {
	Default().ConfigureDefaults(d)
}
