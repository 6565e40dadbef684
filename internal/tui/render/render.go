// Package render draws toast cards and lays them out by screen anchor.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/keyo-app/pulse-toast/internal/toast"
)

const (
	defaultWidth  = 80
	maxCardWidth  = 36
	minCardWidth  = 12
	columnsPerRow = 3
)

var (
	kindColors = map[toast.Kind]lipgloss.Color{
		toast.KindSuccess: lipgloss.Color("2"),
		toast.KindError:   lipgloss.Color("1"),
		toast.KindWarning: lipgloss.Color("3"),
		toast.KindInfo:    lipgloss.Color("4"),
		toast.KindLoading: lipgloss.Color("5"),
	}
	defaultColor  = lipgloss.Color("7")
	selectedColor = lipgloss.Color("6")
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	buttonStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// KindIcon returns the glyph shown before a toast of the given kind.
func KindIcon(kind toast.Kind) string {
	switch kind {
	case toast.KindSuccess:
		return "✔"
	case toast.KindError:
		return "✖"
	case toast.KindWarning:
		return "⚠"
	case toast.KindInfo:
		return "ℹ"
	case toast.KindLoading:
		return "…"
	default:
		return "•"
	}
}

// CardState defines the inputs needed to render one toast.
type CardState struct {
	Toast    toast.Toast
	Selected bool
	Width    int
	// Spinner replaces the icon of loading toasts when set.
	Spinner string
}

// Card renders a bordered toast card.
func Card(s CardState) string {
	t := s.Toast
	width := s.Width
	if width < minCardWidth {
		width = minCardWidth
	}

	icon := KindIcon(t.Kind)
	if t.Kind == toast.KindLoading && s.Spinner != "" {
		icon = s.Spinner
	}
	color, ok := kindColors[t.Kind]
	if !ok {
		color = defaultColor
	}
	iconText := lipgloss.NewStyle().Foreground(color).Render(icon)

	var lines []string
	if t.Title != "" {
		lines = append(lines, iconText+" "+titleStyle.Render(t.Title))
		if t.Description != "" {
			lines = append(lines, t.Description)
		}
	} else {
		lines = append(lines, iconText+" "+t.Description)
	}
	if controls := controlsLine(t); controls != "" {
		lines = append(lines, controls)
	}

	border := lipgloss.RoundedBorder()
	borderColor := color
	if s.Selected {
		border = lipgloss.ThickBorder()
		borderColor = selectedColor
	}
	// Width excludes the border.
	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(width - 2).
		Render(strings.Join(lines, "\n"))
}

func controlsLine(t toast.Toast) string {
	var parts []string
	if t.Action != nil {
		parts = append(parts, buttonStyle.Render("⏎ "+t.Action.Label))
	}
	if t.Cancel != nil {
		parts = append(parts, mutedStyle.Render("c ")+t.Cancel.Label)
	}
	if t.Dismissible {
		parts = append(parts, mutedStyle.Render("x close"))
	}
	return strings.Join(parts, "  ")
}

// CardWidth returns the card width for a screen of the given width.
func CardWidth(screenWidth int) int {
	if screenWidth <= 0 {
		screenWidth = defaultWidth
	}
	w := screenWidth/columnsPerRow - 1
	if w > maxCardWidth {
		w = maxCardWidth
	}
	if w < minCardWidth {
		w = minCardWidth
	}
	return w
}

// ScreenState defines the inputs needed to lay out the whole container.
type ScreenState struct {
	// Cards holds rendered cards per anchor, in the order they stack away
	// from the screen edge.
	Cards  map[toast.Position][]string
	Width  int
	Height int
	Status string
	Footer string
}

// Screen places the top anchors at the top, the bottom anchors at the
// bottom and the status and help footer below them.
func Screen(s ScreenState) string {
	width := s.Width
	if width <= 0 {
		width = defaultWidth
	}
	top := row(s.Cards, width, lipgloss.Top, toast.TopLeft, toast.TopCenter, toast.TopRight)
	bottom := row(s.Cards, width, lipgloss.Bottom, toast.BottomLeft, toast.BottomCenter, toast.BottomRight)

	var footer []string
	if s.Status != "" {
		footer = append(footer, statusStyle.Render(s.Status))
	}
	if s.Footer != "" {
		footer = append(footer, mutedStyle.Render(s.Footer))
	}
	foot := strings.Join(footer, "\n")

	used := lipgloss.Height(top) + lipgloss.Height(bottom) + lipgloss.Height(foot)
	gap := s.Height - used + 1
	if gap < 1 {
		gap = 1
	}
	return top + strings.Repeat("\n", gap) + bottom + "\n" + foot
}

func row(cards map[toast.Position][]string, width int, vertical lipgloss.Position, left, center, right toast.Position) string {
	colWidth := width / columnsPerRow
	cols := []string{
		column(cards[left], colWidth, lipgloss.Left),
		column(cards[center], colWidth, lipgloss.Center),
		column(cards[right], width-2*colWidth, lipgloss.Right),
	}
	return lipgloss.JoinHorizontal(vertical, cols...)
}

func column(cards []string, width int, align lipgloss.Position) string {
	body := lipgloss.JoinVertical(align, cards...)
	return lipgloss.NewStyle().Width(width).Align(align).Render(body)
}
