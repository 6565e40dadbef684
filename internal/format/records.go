package format

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/keyo-app/pulse-toast/internal/history"
	"github.com/keyo-app/pulse-toast/internal/toast"
)

// SimpleFormatter prints one line per record.
type SimpleFormatter struct {
	now func() time.Time
}

// FormatRecords implements Formatter.
func (f *SimpleFormatter) FormatRecords(records []history.Record, writer io.Writer) error {
	now := f.now()
	for _, r := range records {
		_, err := fmt.Fprintf(writer, "%s  %-16s [%s] %s (%s)\n", ShortID(r.ID), Age(r.CreatedAt, now), r.Kind, RecordText(r), State(r))
		if err != nil {
			return err
		}
	}
	return nil
}

// CompactFormatter prints only the text of each record.
type CompactFormatter struct{}

// FormatRecords implements Formatter.
func (f *CompactFormatter) FormatRecords(records []history.Record, writer io.Writer) error {
	for _, r := range records {
		if _, err := fmt.Fprintln(writer, RecordText(r)); err != nil {
			return err
		}
	}
	return nil
}

// JSONFormatter prints records as an indented JSON array.
type JSONFormatter struct{}

type recordJSON struct {
	ID          string     `json:"id"`
	Kind        toast.Kind `json:"kind"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description"`
	Position    string     `json:"position"`
	DurationMs  int64      `json:"durationMs"`
	CreatedAt   time.Time  `json:"createdAt"`
	RemovedAt   *time.Time `json:"removedAt,omitempty"`
	Cause       string     `json:"cause,omitempty"`
}

// FormatRecords implements Formatter. An empty list is written as [].
func (f *JSONFormatter) FormatRecords(records []history.Record, writer io.Writer) error {
	out := make([]recordJSON, 0, len(records))
	for _, r := range records {
		j := recordJSON{
			ID:          r.ID,
			Kind:        r.Kind,
			Title:       r.Title,
			Description: r.Description,
			Position:    r.Position.String(),
			DurationMs:  r.Duration.Milliseconds(),
			CreatedAt:   r.CreatedAt,
			Cause:       r.Cause,
		}
		if !r.Live() {
			removed := r.RemovedAt
			j.RemovedAt = &removed
		}
		out = append(out, j)
	}
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
