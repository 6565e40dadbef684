package toast

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxDescriptionLength bounds the description of externally submitted toasts.
const MaxDescriptionLength = 1000

// MaxDurationMs is the longest duration a request may ask for.
const MaxDurationMs = math.MaxInt64 / int64(time.Millisecond)

// ErrInvalidRequest indicates a malformed toast request.
var ErrInvalidRequest = errors.New("invalid toast request")

// Request is the JSON form of a toast submitted from outside the process
// (HTTP feed, spool file).
type Request struct {
	Kind        string         `json:"kind,omitempty"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description"`
	DurationMs  *int64         `json:"durationMs,omitempty"`
	Dismissible *bool          `json:"dismissible,omitempty"`
	Position    string         `json:"position,omitempty"`
	Action      *RequestButton `json:"action,omitempty"`
	Cancel      *RequestButton `json:"cancel,omitempty"`
}

// RequestButton describes a button on a submitted toast. ID is handed back
// to the ButtonHandler when the button is activated.
type RequestButton struct {
	Label string `json:"label"`
	ID    string `json:"id,omitempty"`
}

// ButtonHandler runs when a button of a submitted toast is activated.
type ButtonHandler func(t Toast, cause Cause, buttonID string)

// Validate checks the request and returns an error wrapping ErrInvalidRequest.
func (r Request) Validate() error {
	if _, err := ParseKind(r.Kind); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.Position != "" {
		if _, err := ParsePosition(r.Position); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	if len(r.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description too long (max %d characters)", ErrInvalidRequest, MaxDescriptionLength)
	}
	if strings.TrimSpace(r.Description) == "" && strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: description cannot be empty", ErrInvalidRequest)
	}
	if r.DurationMs != nil && *r.DurationMs < 0 {
		return fmt.Errorf("%w: durationMs cannot be negative", ErrInvalidRequest)
	}
	if r.DurationMs != nil && *r.DurationMs > MaxDurationMs {
		return fmt.Errorf("%w: durationMs too large (max %d)", ErrInvalidRequest, MaxDurationMs)
	}
	if r.Action != nil && strings.TrimSpace(r.Action.Label) == "" {
		return fmt.Errorf("%w: action label cannot be empty", ErrInvalidRequest)
	}
	if r.Cancel != nil && strings.TrimSpace(r.Cancel.Label) == "" {
		return fmt.Errorf("%w: cancel label cannot be empty", ErrInvalidRequest)
	}
	return nil
}

// Submit validates the request and adds it to m.
func (r Request) Submit(m *Manager, onButton ButtonHandler) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	kind, _ := ParseKind(r.Kind)

	opts := []Option{WithTitle(r.Title)}
	if r.DurationMs != nil {
		opts = append(opts, WithDuration(time.Duration(*r.DurationMs)*time.Millisecond))
	}
	if r.Dismissible != nil {
		opts = append(opts, WithDismissible(*r.Dismissible))
	}
	if r.Position != "" {
		opts = append(opts, WithPosition(Position(r.Position)))
	}
	if r.Action != nil {
		opts = append(opts, WithAction(r.Action.Label, buttonCallback(onButton, CauseAction, r.Action.ID)))
	}
	if r.Cancel != nil {
		opts = append(opts, WithCancel(r.Cancel.Label, buttonCallback(onButton, CauseCancel, r.Cancel.ID)))
	}
	return m.Add(kind, r.Description, opts...), nil
}

func buttonCallback(onButton ButtonHandler, cause Cause, id string) func(Toast) {
	if onButton == nil {
		return nil
	}
	return func(t Toast) {
		onButton(t, cause, id)
	}
}

// View is the JSON form of a live toast sent to external renderers.
type View struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	DurationMs  int64     `json:"durationMs"`
	Dismissible bool      `json:"dismissible"`
	Position    Position  `json:"position"`
	Action      string    `json:"action,omitempty"`
	Cancel      string    `json:"cancel,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewView converts a toast to its JSON form.
func NewView(t Toast) View {
	v := View{
		ID:          t.ID,
		Kind:        t.Kind,
		Title:       t.Title,
		Description: t.Description,
		DurationMs:  t.Duration.Milliseconds(),
		Dismissible: t.Dismissible,
		Position:    t.Position,
		CreatedAt:   t.CreatedAt,
	}
	if t.Action != nil {
		v.Action = t.Action.Label
	}
	if t.Cancel != nil {
		v.Cancel = t.Cancel.Label
	}
	return v
}

// NewViews converts a list of toasts, never returning nil.
func NewViews(toasts []Toast) []View {
	views := make([]View, 0, len(toasts))
	for _, t := range toasts {
		views = append(views, NewView(t))
	}
	return views
}
