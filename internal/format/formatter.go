// Package format renders toast history records for CLI output.
package format

import (
	"io"
	"strings"
	"time"

	"github.com/keyo-app/pulse-toast/internal/history"
)

const (
	shortIDLength = 8
	maxTextColumn = 48
)

// Formatter defines the interface for history output formatters.
type Formatter interface {
	// FormatRecords formats records and writes them to the writer.
	FormatRecords(records []history.Record, writer io.Writer) error
}

// FormatterType represents the type of formatter to use.
type FormatterType string

const (
	// FormatterTypeSimple prints one line per record with ID, age, kind and text.
	FormatterTypeSimple FormatterType = "simple"

	// FormatterTypeTable prints aligned columns with headers.
	FormatterTypeTable FormatterType = "table"

	// FormatterTypeCompact prints only the text, one record per line.
	FormatterTypeCompact FormatterType = "compact"

	// FormatterTypeJSON prints a JSON array.
	FormatterTypeJSON FormatterType = "json"
)

// Types lists the accepted formatter types.
var Types = []FormatterType{FormatterTypeTable, FormatterTypeSimple, FormatterTypeCompact, FormatterTypeJSON}

// IsValid reports whether t is a known formatter type.
func (t FormatterType) IsValid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// NewFormatter creates a formatter of the given type. Ages are computed
// against now; nil means time.Now. Unknown types get the table formatter.
func NewFormatter(formatterType FormatterType, now func() time.Time) Formatter {
	if now == nil {
		now = time.Now
	}
	switch formatterType {
	case FormatterTypeSimple:
		return &SimpleFormatter{now: now}
	case FormatterTypeCompact:
		return &CompactFormatter{}
	case FormatterTypeJSON:
		return &JSONFormatter{}
	default:
		return &TableFormatter{now: now}
	}
}

// ShortID returns the first characters of a toast ID.
func ShortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

// RecordText returns the title and description on one line, truncated to
// the text column width.
func RecordText(r history.Record) string {
	text := r.Description
	if r.Title != "" {
		text = r.Title + ": " + text
	}
	text = strings.Join(strings.Fields(text), " ")
	if runes := []rune(text); len(runes) > maxTextColumn {
		text = string(runes[:maxTextColumn-1]) + "…"
	}
	return text
}

// State returns "live" or the removal cause.
func State(r history.Record) string {
	if r.Live() {
		return "live"
	}
	return r.Cause
}
