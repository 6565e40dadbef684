package toast

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{"minimal", Request{Description: "hi"}, ""},
		{"title only", Request{Title: "Heads up"}, ""},
		{"all fields", Request{Kind: "success", Description: "ok", Position: "top-left", DurationMs: int64Ptr(0), Dismissible: boolPtr(false)}, ""},
		{"bad kind", Request{Kind: "shout", Description: "hi"}, "invalid toast kind"},
		{"bad position", Request{Description: "hi", Position: "middle"}, "invalid toast position"},
		{"empty", Request{Description: "   "}, "description cannot be empty"},
		{"too long", Request{Description: strings.Repeat("x", MaxDescriptionLength+1)}, "too long"},
		{"negative duration", Request{Description: "hi", DurationMs: int64Ptr(-1)}, "negative"},
		{"max duration", Request{Description: "hi", DurationMs: int64Ptr(MaxDurationMs)}, ""},
		{"overflowing duration", Request{Description: "hi", DurationMs: int64Ptr(9300000000000)}, "too large"},
		{"blank action", Request{Description: "hi", Action: &RequestButton{}}, "action label"},
		{"blank cancel", Request{Description: "hi", Cancel: &RequestButton{Label: " "}}, "cancel label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidRequest)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequestSubmit(t *testing.T) {
	m, clock := newTestManager(t)
	var pressed []string
	handler := func(got Toast, cause Cause, buttonID string) {
		pressed = append(pressed, got.Description+":"+cause.String()+":"+buttonID)
	}

	req := Request{
		Kind:        "warning",
		Title:       "Deploy",
		Description: "rollback?",
		DurationMs:  int64Ptr(1500),
		Dismissible: boolPtr(false),
		Position:    "top-center",
		Action:      &RequestButton{Label: "Rollback", ID: "rollback"},
		Cancel:      &RequestButton{Label: "Keep", ID: "keep"},
	}
	id, err := req.Submit(m, handler)
	require.NoError(t, err)

	got, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, KindWarning, got.Kind)
	assert.Equal(t, "Deploy", got.Title)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.False(t, got.Dismissible)
	assert.Equal(t, TopCenter, got.Position)
	assert.Equal(t, "Rollback", got.Action.Label)
	assert.Equal(t, "Keep", got.Cancel.Label)

	require.NoError(t, m.Activate(id))
	require.Equal(t, []string{"rollback?:action:rollback"}, pressed)

	second, err := Request{Description: "again", Cancel: &RequestButton{Label: "Keep", ID: "keep"}}.Submit(m, handler)
	require.NoError(t, err)
	require.NoError(t, m.CancelToast(second))
	require.Equal(t, "again:cancel:keep", pressed[1])

	clock.Advance(time.Minute)
}

func TestRequestSubmitRejectsInvalid(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := Request{Kind: "nope", Description: "x"}.Submit(m, nil)

	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Empty(t, m.Toasts())
}

func TestRequestSubmitKeepsLongDurationFinite(t *testing.T) {
	m, _ := newTestManager(t)

	id, err := Request{Description: "later", DurationMs: int64Ptr(MaxDurationMs)}.Submit(m, nil)
	require.NoError(t, err)

	got, ok := m.Get(id)
	require.True(t, ok)
	require.Equal(t, time.Duration(MaxDurationMs)*time.Millisecond, got.Duration)
	require.Positive(t, got.Duration)

	_, err = Request{Description: "never", DurationMs: int64Ptr(MaxDurationMs + 1)}.Submit(m, nil)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRequestDecodesFromJSON(t *testing.T) {
	var req Request
	err := json.Unmarshal([]byte(`{"kind":"loading","description":"sync","durationMs":0,"action":{"label":"Stop","id":"stop"}}`), &req)
	require.NoError(t, err)

	require.Equal(t, "loading", req.Kind)
	require.NotNil(t, req.DurationMs)
	require.Zero(t, *req.DurationMs)
	require.Equal(t, "stop", req.Action.ID)
}

func TestNewView(t *testing.T) {
	m, clock := newTestManager(t)
	id := m.Add(KindInfo, "body", WithTitle("Head"), WithAction("Open", nil), WithDuration(2*time.Second))
	got, _ := m.Get(id)

	v := NewView(got)

	assert.Equal(t, id, v.ID)
	assert.Equal(t, KindInfo, v.Kind)
	assert.Equal(t, "Head", v.Title)
	assert.Equal(t, int64(2000), v.DurationMs)
	assert.Equal(t, "Open", v.Action)
	assert.Empty(t, v.Cancel)
	assert.Equal(t, clock.Now(), v.CreatedAt)

	require.NotNil(t, NewViews(nil))
	require.Len(t, NewViews(m.Toasts()), 1)
}
