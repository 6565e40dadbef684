// Package colors provides console output for the CLI. Every message is also
// mirrored into the structured logger when one is set.
package colors

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
)

const checkmark = "✓"

// Logger defines the interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	debugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

var (
	debugEnabled atomic.Bool
	quiet        atomic.Bool
	logger       Logger
	loggerMu     sync.RWMutex

	// stdout and stderr are swapped by tests.
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	outMu  sync.Mutex
)

func init() {
	if val := os.Getenv("PULSE_TOAST_DEBUG"); val == "true" || val == "1" {
		debugEnabled.Store(true)
	}
}

// SetDebug enables or disables debug output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetQuiet suppresses Info and Success console output. Errors and warnings
// are always printed.
func SetQuiet(enabled bool) {
	quiet.Store(enabled)
}

// SetLogger sets the structured logger to mirror console output.
func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func mirror() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func write(w io.Writer, line string) {
	outMu.Lock()
	defer outMu.Unlock()
	if _, err := fmt.Fprintln(w, line); err != nil && w != stderr {
		// Last resort; nothing else to report to.
		fmt.Fprintf(stderr, "failed to print message: %v\n", err)
	}
}

// Error outputs an error message to stderr.
func Error(msgs ...string) {
	msg := strings.Join(msgs, " ")
	if l := mirror(); l != nil {
		l.Error(msg)
	}
	write(stderr, errorStyle.Render("Error:")+" "+msg)
}

// Warning outputs a warning message to stderr.
func Warning(msgs ...string) {
	msg := strings.Join(msgs, " ")
	if l := mirror(); l != nil {
		l.Warn(msg)
	}
	write(stderr, warningStyle.Render("Warning:")+" "+msg)
}

// Success outputs a success message to stdout.
func Success(msgs ...string) {
	msg := strings.Join(msgs, " ")
	if l := mirror(); l != nil {
		l.Info(msg, "type", "success")
	}
	if quiet.Load() {
		return
	}
	write(stdout, successStyle.Render(checkmark)+" "+msg)
}

// Info outputs an informational message to stdout.
func Info(msgs ...string) {
	msg := strings.Join(msgs, " ")
	if l := mirror(); l != nil {
		l.Info(msg)
	}
	if quiet.Load() {
		return
	}
	write(stdout, infoStyle.Render(msg))
}

// LogInfo outputs an informational message to stderr, keeping stdout clean
// for command output.
func LogInfo(msgs ...string) {
	msg := strings.Join(msgs, " ")
	if l := mirror(); l != nil {
		l.Info(msg)
	}
	if quiet.Load() {
		return
	}
	write(stderr, infoStyle.Render(msg))
}

// Debug outputs a debug message to stderr if debug is enabled.
func Debug(msgs ...string) {
	if !debugEnabled.Load() {
		return
	}
	msg := strings.Join(msgs, " ")
	if l := mirror(); l != nil {
		l.Debug(msg)
	}
	write(stderr, debugStyle.Render("Debug:")+" "+msg)
}
