package render

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/keyo-app/pulse-toast/internal/toast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindIcon(t *testing.T) {
	tests := []struct {
		kind     toast.Kind
		expected string
	}{
		{toast.KindSuccess, "✔"},
		{toast.KindError, "✖"},
		{toast.KindWarning, "⚠"},
		{toast.KindInfo, "ℹ"},
		{toast.KindLoading, "…"},
		{toast.KindDefault, "•"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, KindIcon(tt.kind))
		})
	}
}

func TestCardContent(t *testing.T) {
	tests := []struct {
		name     string
		toast    toast.Toast
		contains []string
		excludes []string
	}{
		{
			name:     "description only",
			toast:    toast.Toast{Kind: toast.KindSuccess, Description: "Saved"},
			contains: []string{"✔ Saved"},
			excludes: []string{"x close"},
		},
		{
			name:     "title and description",
			toast:    toast.Toast{Kind: toast.KindInfo, Title: "Poll", Description: "Closed", Dismissible: true},
			contains: []string{"ℹ Poll", "Closed", "x close"},
		},
		{
			name: "buttons",
			toast: toast.Toast{
				Kind:        toast.KindWarning,
				Description: "Delete?",
				Action:      &toast.Button{Label: "Undo"},
				Cancel:      &toast.Button{Label: "Keep"},
			},
			contains: []string{"⏎ Undo", "c Keep"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Card(CardState{Toast: tt.toast, Width: 30})
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
			assert.Equal(t, 30, lipgloss.Width(out))
		})
	}
}

func TestCardLoadingUsesSpinner(t *testing.T) {
	out := Card(CardState{Toast: toast.Toast{Kind: toast.KindLoading, Description: "sync"}, Width: 20, Spinner: "⣾"})
	assert.Contains(t, out, "⣾ sync")

	plain := Card(CardState{Toast: toast.Toast{Kind: toast.KindInfo, Description: "sync"}, Width: 20, Spinner: "⣾"})
	assert.NotContains(t, plain, "⣾")
}

func TestCardSelectedBorder(t *testing.T) {
	tt := toast.Toast{Kind: toast.KindInfo, Description: "hi"}

	normal := Card(CardState{Toast: tt, Width: 20})
	selected := Card(CardState{Toast: tt, Width: 20, Selected: true})

	assert.True(t, strings.HasPrefix(normal, lipgloss.RoundedBorder().TopLeft))
	assert.True(t, strings.HasPrefix(selected, lipgloss.ThickBorder().TopLeft))
}

func TestCardMinimumWidth(t *testing.T) {
	out := Card(CardState{Toast: toast.Toast{Description: "x"}, Width: 2})
	assert.Equal(t, minCardWidth, lipgloss.Width(out))
}

func TestCardWidth(t *testing.T) {
	tests := []struct {
		screen   int
		expected int
	}{
		{0, 25},
		{30, minCardWidth},
		{90, 29},
		{300, maxCardWidth},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, CardWidth(tt.screen), "screen %d", tt.screen)
	}
}

func TestScreenPlacesAnchors(t *testing.T) {
	out := Screen(ScreenState{
		Cards: map[toast.Position][]string{
			toast.TopLeft:     {"TL"},
			toast.TopRight:    {"TR"},
			toast.BottomLeft:  {"BL"},
			toast.BottomRight: {"BR"},
		},
		Width:  30,
		Height: 10,
		Footer: "help",
	})

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 10)
	top := lines[0]
	assert.True(t, strings.HasPrefix(top, "TL"))
	assert.True(t, strings.HasSuffix(top, "TR"))

	bottom := lines[len(lines)-2]
	assert.True(t, strings.HasPrefix(bottom, "BL"))
	assert.True(t, strings.HasSuffix(bottom, "BR"))
	assert.Equal(t, "help", lines[len(lines)-1])
}

func TestScreenShowsStatus(t *testing.T) {
	out := Screen(ScreenState{Status: "nope", Footer: "help"})

	lines := strings.Split(out, "\n")
	assert.Equal(t, "nope", lines[len(lines)-2])
	assert.Equal(t, "help", lines[len(lines)-1])
}
