// Package toast provides the in-process notification (toast) manager.
//
// A Manager owns the live list of toasts, schedules their auto-dismiss
// timers and fans out every change to subscribers. The package-level
// functions (Notify, Success, Error, ...) operate on a process-wide default
// manager so code outside any rendering surface can raise a toast.
package toast

import (
	"time"
)

// Toast is one live notification.
type Toast struct {
	ID          string
	Kind        Kind
	Title       string
	Description string
	// Duration is the auto-dismiss delay. Zero means the toast never expires.
	Duration    time.Duration
	Dismissible bool
	Position    Position
	Action      *Button
	Cancel      *Button
	// OnDismiss runs exactly once when the toast is removed, whatever the cause.
	OnDismiss func(Toast)
	CreatedAt time.Time
}

// Button is an action or cancel control attached to a toast.
type Button struct {
	Label      string
	OnActivate func(Toast)
}

// HasAction reports whether the toast carries a primary action.
func (t Toast) HasAction() bool {
	return t.Action != nil
}

// HasCancel reports whether the toast carries a secondary action.
func (t Toast) HasCancel() bool {
	return t.Cancel != nil
}

// Defaults are the process-wide fallbacks applied to toasts that omit a field.
type Defaults struct {
	Position    Position
	Duration    time.Duration
	Dismissible bool
}

// DefaultDuration is the auto-dismiss delay used when nothing is configured.
const DefaultDuration = 4 * time.Second

// DefaultDefaults returns the built-in defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Position:    BottomRight,
		Duration:    DefaultDuration,
		Dismissible: true,
	}
}

// normalize fills invalid fields from the built-in defaults.
func (d Defaults) normalize() Defaults {
	builtin := DefaultDefaults()
	if !d.Position.IsValid() {
		d.Position = builtin.Position
	}
	if d.Duration < 0 {
		d.Duration = 0
	}
	return d
}

// Option customizes a single toast.
type Option func(*settings)

type settings struct {
	title       string
	duration    *time.Duration
	dismissible *bool
	position    *Position
	action      *Button
	cancel      *Button
	onDismiss   func(Toast)
}

// WithTitle sets the header text shown above the description.
func WithTitle(title string) Option {
	return func(s *settings) {
		s.title = title
	}
}

// WithDuration overrides the auto-dismiss delay. Zero disables auto-dismiss.
func WithDuration(d time.Duration) Option {
	return func(s *settings) {
		if d < 0 {
			d = 0
		}
		s.duration = &d
	}
}

// WithDismissible controls whether a close affordance is offered.
func WithDismissible(dismissible bool) Option {
	return func(s *settings) {
		s.dismissible = &dismissible
	}
}

// WithPosition overrides the screen anchor for this toast.
func WithPosition(p Position) Option {
	return func(s *settings) {
		if p.IsValid() {
			s.position = &p
		}
	}
}

// WithAction attaches a primary button. Activating it runs fn and then dismisses the toast.
func WithAction(label string, fn func(Toast)) Option {
	return func(s *settings) {
		s.action = &Button{Label: label, OnActivate: fn}
	}
}

// WithCancel attaches a secondary button. Activating it runs fn and then dismisses the toast.
func WithCancel(label string, fn func(Toast)) Option {
	return func(s *settings) {
		s.cancel = &Button{Label: label, OnActivate: fn}
	}
}

// WithOnDismiss registers a callback fired exactly once on removal.
func WithOnDismiss(fn func(Toast)) Option {
	return func(s *settings) {
		s.onDismiss = fn
	}
}

// build resolves a toast from kind, description, options and defaults.
// Loading toasts ignore the default duration and only expire when a caller
// sets one explicitly.
func build(kind Kind, description string, defaults Defaults, opts []Option) Toast {
	var s settings
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if !kind.IsValid() {
		kind = KindDefault
	}

	t := Toast{
		Kind:        kind,
		Title:       s.title,
		Description: description,
		Duration:    defaults.Duration,
		Dismissible: defaults.Dismissible,
		Position:    defaults.Position,
		Action:      s.action,
		Cancel:      s.cancel,
		OnDismiss:   s.onDismiss,
	}
	if kind == KindLoading {
		t.Duration = 0
	}
	if s.duration != nil {
		t.Duration = *s.duration
	}
	if s.dismissible != nil {
		t.Dismissible = *s.dismissible
	}
	if s.position != nil {
		t.Position = *s.position
	}
	return t
}
