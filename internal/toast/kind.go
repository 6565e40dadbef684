package toast

import "fmt"

// Kind is the semantic category of a toast.
type Kind string

const (
	KindDefault Kind = "default"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindLoading Kind = "loading"
)

// IsValid checks if the kind is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindDefault, KindSuccess, KindError, KindInfo, KindWarning, KindLoading:
		return true
	default:
		return false
	}
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// ParseKind parses a string into a Kind. An empty string yields KindDefault.
func ParseKind(kind string) (Kind, error) {
	if kind == "" {
		return KindDefault, nil
	}
	k := Kind(kind)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid toast kind: %s", kind)
	}
	return k, nil
}

// Position is the screen anchor a toast is rendered at.
type Position string

const (
	TopLeft      Position = "top-left"
	TopCenter    Position = "top-center"
	TopRight     Position = "top-right"
	BottomLeft   Position = "bottom-left"
	BottomCenter Position = "bottom-center"
	BottomRight  Position = "bottom-right"
)

// Positions lists every anchor in render order.
var Positions = []Position{TopLeft, TopCenter, TopRight, BottomLeft, BottomCenter, BottomRight}

// IsValid checks if the position is one of the six anchors.
func (p Position) IsValid() bool {
	switch p {
	case TopLeft, TopCenter, TopRight, BottomLeft, BottomCenter, BottomRight:
		return true
	default:
		return false
	}
}

// String returns the string representation of the position.
func (p Position) String() string {
	return string(p)
}

// IsTop reports whether the anchor is on the top edge.
func (p Position) IsTop() bool {
	return p == TopLeft || p == TopCenter || p == TopRight
}

// ParsePosition parses a string into a Position.
func ParsePosition(position string) (Position, error) {
	p := Position(position)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid toast position: %s", position)
	}
	return p, nil
}

// Cause records why a toast left the live list.
type Cause string

const (
	CauseTimeout   Cause = "timeout"
	CauseDismissed Cause = "dismissed"
	CauseClosed    Cause = "closed"
	CauseAction    Cause = "action"
	CauseCancel    Cause = "cancel"
	CauseCleared   Cause = "cleared"
)

// String returns the string representation of the cause.
func (c Cause) String() string {
	return string(c)
}
