// Package state holds the bubbletea model of the terminal toast container.
package state

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/keyo-app/pulse-toast/internal/scope"
	"github.com/keyo-app/pulse-toast/internal/toast"
	"github.com/keyo-app/pulse-toast/internal/tui/render"
)

const (
	// DefaultVisible is the number of toasts shown per anchor when unset.
	DefaultVisible     = 3
	statusClearTimeout = 3 * time.Second
)

// toastsChangedMsg carries the latest live list.
type toastsChangedMsg struct {
	toasts []toast.Toast
}

// clearStatusMsg clears the status line if it is still the one that set it.
type clearStatusMsg struct {
	seq int
}

// Model is the toast container. It renders the scope's live list and turns
// key presses into manager intents.
type Model struct {
	scope   *scope.Scope
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	toasts   []toast.Toast
	visible  int
	selected string

	width  int
	height int

	status    string
	statusSeq int

	updates chan struct{}
	done    chan struct{}
	unwatch func()
}

// NewModel creates a container over an open scope showing at most visible
// toasts per anchor. Call Close when the program ends.
func NewModel(sc *scope.Scope, visible int) *Model {
	if sc == nil {
		panic("state.NewModel: scope dependency cannot be nil")
	}
	if visible <= 0 {
		visible = DefaultVisible
	}
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := &Model{
		scope:   sc,
		keys:    newKeyMap(),
		help:    help.New(),
		spinner: s,
		visible: visible,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	m.unwatch = sc.Watch(func([]toast.Toast) {
		select {
		case m.updates <- struct{}{}:
		default:
		}
	})
	m.setToasts(sc.Toasts())
	return m
}

// Close stops watching the scope and releases a pending update wait.
func (m *Model) Close() {
	select {
	case <-m.done:
		return
	default:
	}
	m.unwatch()
	close(m.done)
}

// waitForUpdate blocks until the scope changes and returns the newest list.
// Intermediate lists are skipped.
func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.updates:
			return toastsChangedMsg{toasts: m.scope.Toasts()}
		case <-m.done:
			return nil
		}
	}
}

// Init starts the spinner and the update wait.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case toastsChangedMsg:
		m.setToasts(msg.toasts)
		return m, m.waitForUpdate()
	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.Close):
		return m, m.intent((*toast.Manager).Close)
	case key.Matches(msg, m.keys.Action):
		return m, m.intent((*toast.Manager).Activate)
	case key.Matches(msg, m.keys.Cancel):
		return m, m.intent((*toast.Manager).CancelToast)
	case key.Matches(msg, m.keys.DismissAll):
		m.scope.Manager().DismissAll()
		m.setToasts(m.scope.Toasts())
	}
	return m, nil
}

// intent applies fn to the selected toast and reports refusals on the
// status line.
func (m *Model) intent(fn func(*toast.Manager, string) error) tea.Cmd {
	if m.selected == "" {
		return nil
	}
	if err := fn(m.scope.Manager(), m.selected); err != nil {
		return m.setStatus(statusText(err))
	}
	m.setToasts(m.scope.Toasts())
	return nil
}

func statusText(err error) string {
	switch {
	case errors.Is(err, toast.ErrNotDismissible):
		return "This toast cannot be closed"
	case errors.Is(err, toast.ErrNoAction):
		return "This toast has no action"
	case errors.Is(err, toast.ErrNoCancel):
		return "This toast has no cancel"
	case errors.Is(err, toast.ErrToastNotFound):
		return "Toast already gone"
	default:
		return err.Error()
	}
}

func (m *Model) setStatus(text string) tea.Cmd {
	m.statusSeq++
	m.status = text
	seq := m.statusSeq
	return tea.Tick(statusClearTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// setToasts replaces the list and keeps the selection on the same toast
// when it is still shown, otherwise on the first shown toast.
func (m *Model) setToasts(list []toast.Toast) {
	m.toasts = list
	order := m.Order()
	for _, t := range order {
		if t.ID == m.selected {
			return
		}
	}
	m.selected = ""
	if len(order) > 0 {
		m.selected = order[0].ID
	}
}

func (m *Model) move(delta int) {
	order := m.Order()
	if len(order) == 0 {
		return
	}
	idx := 0
	for i, t := range order {
		if t.ID == m.selected {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(order) {
		idx = len(order) - 1
	}
	m.selected = order[idx].ID
}

// Shown groups the list by anchor and keeps the newest visible toasts of
// each, oldest first.
func (m *Model) Shown() map[toast.Position][]toast.Toast {
	groups := make(map[toast.Position][]toast.Toast)
	for _, t := range m.toasts {
		groups[t.Position] = append(groups[t.Position], t)
	}
	for pos, list := range groups {
		if len(list) > m.visible {
			groups[pos] = list[len(list)-m.visible:]
		}
	}
	return groups
}

// Order returns the shown toasts in selection order.
func (m *Model) Order() []toast.Toast {
	shown := m.Shown()
	var out []toast.Toast
	for _, pos := range toast.Positions {
		out = append(out, stacked(shown[pos], pos)...)
	}
	return out
}

// stacked orders a group from the screen edge inward: newest first at the
// top, newest last at the bottom.
func stacked(list []toast.Toast, pos toast.Position) []toast.Toast {
	if !pos.IsTop() {
		return list
	}
	out := make([]toast.Toast, len(list))
	for i, t := range list {
		out[len(list)-1-i] = t
	}
	return out
}

// Selected returns the ID of the selected toast, or "" when none is shown.
func (m *Model) Selected() string {
	return m.selected
}

// Status returns the current status line.
func (m *Model) Status() string {
	return m.status
}

// View renders the container.
func (m *Model) View() string {
	cardWidth := render.CardWidth(m.width)
	shown := m.Shown()
	cards := make(map[toast.Position][]string, len(shown))
	for pos, list := range shown {
		for _, t := range stacked(list, pos) {
			cards[pos] = append(cards[pos], render.Card(render.CardState{
				Toast:    t,
				Selected: t.ID == m.selected,
				Width:    cardWidth,
				Spinner:  m.spinner.View(),
			}))
		}
	}
	return render.Screen(render.ScreenState{
		Cards:  cards,
		Width:  m.width,
		Height: m.height,
		Status: m.status,
		Footer: m.help.View(m.keys),
	})
}
