package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/keyo-app/pulse-toast/internal/history"
	"github.com/keyo-app/pulse-toast/internal/toast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return now }

func records() []history.Record {
	return []history.Record{
		{
			ID:          "0f3c9a2e-1111-2222-3333-444455556666",
			Kind:        toast.KindInfo,
			Description: "still here",
			Position:    toast.BottomRight,
			CreatedAt:   now.Add(-2 * time.Minute),
		},
		{
			ID:          "short",
			Kind:        toast.KindError,
			Title:       "Upload",
			Description: "failed",
			Position:    toast.TopRight,
			Duration:    4 * time.Second,
			CreatedAt:   now.Add(-3 * time.Hour),
			RemovedAt:   now.Add(-3*time.Hour + 4*time.Second),
			Cause:       "timeout",
		},
	}
}

func TestFormatterFactory(t *testing.T) {
	tests := []struct {
		name     string
		ftype    FormatterType
		expected interface{}
	}{
		{"Simple", FormatterTypeSimple, &SimpleFormatter{}},
		{"Table", FormatterTypeTable, &TableFormatter{}},
		{"Compact", FormatterTypeCompact, &CompactFormatter{}},
		{"JSON", FormatterTypeJSON, &JSONFormatter{}},
		{"Unknown", FormatterType("unknown"), &TableFormatter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.IsType(t, tt.expected, NewFormatter(tt.ftype, nil))
		})
	}
}

func TestFormatterTypeIsValid(t *testing.T) {
	for _, ft := range Types {
		assert.True(t, ft.IsValid(), ft)
	}
	assert.False(t, FormatterType("xml").IsValid())
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewFormatter(FormatterTypeTable, fixedNow).FormatRecords(records(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Regexp(t, `^ID\s+KIND\s+STATE\s+AGE\s+LIFETIME\s+TEXT$`, lines[0])
	assert.Regexp(t, `^0f3c9a2e\s+info\s+live\s+2 minutes ago\s+-\s+still here$`, lines[1])
	assert.Regexp(t, `^short\s+error\s+timeout\s+3 hours ago\s+4 seconds\s+Upload: failed$`, lines[2])
}

func TestTableFormatterEmpty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewFormatter(FormatterTypeTable, fixedNow).FormatRecords(nil, &buf))

	assert.Empty(t, buf.String())
}

func TestSimpleFormatter(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewFormatter(FormatterTypeSimple, fixedNow).FormatRecords(records(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "0f3c9a2e  2 minutes ago    [info] still here (live)", lines[0])
	assert.Equal(t, "short  3 hours ago      [error] Upload: failed (timeout)", lines[1])
}

func TestCompactFormatter(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewFormatter(FormatterTypeCompact, nil).FormatRecords(records(), &buf))

	assert.Equal(t, "still here\nUpload: failed\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewFormatter(FormatterTypeJSON, nil).FormatRecords(records(), &buf))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.NotContains(t, got[0], "removedAt")
	assert.NotContains(t, got[0], "cause")
	assert.Equal(t, "timeout", got[1]["cause"])
	assert.Equal(t, float64(4000), got[1]["durationMs"])
	assert.Equal(t, "top-right", got[1]["position"])
	assert.Contains(t, got[1], "removedAt")
}

func TestJSONFormatterEmpty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewFormatter(FormatterTypeJSON, nil).FormatRecords(nil, &buf))

	assert.Equal(t, "[]\n", buf.String())
}

func TestRecordText(t *testing.T) {
	assert.Equal(t, "Title: multi line", RecordText(history.Record{Title: "Title", Description: "multi\n  line"}))

	text := RecordText(history.Record{Description: strings.Repeat("word ", 20)})
	assert.Equal(t, maxTextColumn, len([]rune(text)))
	assert.True(t, strings.HasSuffix(text, "…"))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0f3c9a2e", ShortID("0f3c9a2e-1111"))
	assert.Equal(t, "abc", ShortID("abc"))
}

func TestLifetime(t *testing.T) {
	r := records()
	assert.Equal(t, "-", Lifetime(r[0]))
	assert.Equal(t, "4 seconds", Lifetime(r[1]))
}
