// Package hooks runs user scripts when toasts appear, leave, or have their
// buttons pressed.
//
// Scripts live in {hooks_dir}/{hook-point}/ and run in name order. Only
// executable regular files are considered. Each script receives the toast
// through TOAST_* environment variables.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/keyo-app/pulse-toast/internal/config"
	"github.com/keyo-app/pulse-toast/internal/logging"
	"github.com/keyo-app/pulse-toast/internal/toast"
	"golang.org/x/sync/semaphore"
)

// Point names a moment in a toast's life at which hooks run.
type Point string

const (
	PointPostAdd     Point = "post-add"
	PointPostDismiss Point = "post-dismiss"
	PointAction      Point = "action"
	PointCancel      Point = "cancel"
)

// Points lists every hook point.
var Points = []Point{PointPostAdd, PointPostDismiss, PointAction, PointCancel}

// FailureMode controls what a failing script does to the scripts after it.
type FailureMode string

const (
	// FailureIgnore continues silently.
	FailureIgnore FailureMode = "ignore"
	// FailureWarn logs a warning and continues.
	FailureWarn FailureMode = "warn"
	// FailureAbort stops the remaining scripts of the hook point.
	FailureAbort FailureMode = "abort"
)

// IsValid reports whether m is a known failure mode.
func (m FailureMode) IsValid() bool {
	switch m {
	case FailureIgnore, FailureWarn, FailureAbort:
		return true
	}
	return false
}

// ErrHookFailed wraps the error of a script that failed in abort mode.
var ErrHookFailed = errors.New("hook failed")

// maxOutput bounds the script output kept for logging.
const maxOutput = 4096

// waitDelay bounds how long a killed hook may keep its output pipes open.
const waitDelay = 500 * time.Millisecond

// Options configures a Runner.
type Options struct {
	Dir         string
	Enabled     bool
	FailureMode FailureMode
	Timeout     time.Duration
	// MaxPending bounds hook points running in the background. Events past
	// the bound are dropped with a warning.
	MaxPending int
	Logger     logging.Logger
}

// OptionsFromConfig reads hook options from the global configuration.
func OptionsFromConfig() Options {
	return Options{
		Dir:         config.Get("hooks_dir", ""),
		Enabled:     config.GetBool("hooks_enabled", true),
		FailureMode: FailureMode(config.Get("hooks_failure_mode", string(FailureWarn))),
		Timeout:     time.Duration(config.GetInt("hooks_timeout", 30)) * time.Second,
		MaxPending:  config.GetInt("max_hooks", 10),
	}
}

// Runner executes hook scripts.
type Runner struct {
	opts    Options
	sem     *semaphore.Weighted
	pending sync.WaitGroup
	binary  string
}

// NewRunner creates a Runner. Invalid options fall back to defaults.
func NewRunner(opts Options) *Runner {
	if !opts.FailureMode.IsValid() {
		opts.FailureMode = FailureWarn
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = 10
	}
	r := &Runner{opts: opts, sem: semaphore.NewWeighted(int64(opts.MaxPending))}
	if exe, err := os.Executable(); err == nil {
		r.binary = exe
	}
	return r
}

func (r *Runner) log() logging.Logger {
	if r.opts.Logger != nil {
		return r.opts.Logger
	}
	return logging.GetGlobal()
}

// EnsureDir creates the hook point directories.
func (r *Runner) EnsureDir() error {
	if r.opts.Dir == "" {
		return nil
	}
	for _, p := range Points {
		dir := filepath.Join(r.opts.Dir, string(p))
		if err := os.MkdirAll(dir, config.FileModeDir); err != nil {
			return fmt.Errorf("failed to create hooks directory %s: %w", dir, err)
		}
	}
	return nil
}

// Event is what a hook point reports about a toast.
type Event struct {
	Point    Point
	Toast    toast.Toast
	Cause    toast.Cause
	ButtonID string
}

// Env returns the TOAST_* variables handed to scripts.
func (e Event) Env() []string {
	t := e.Toast
	env := []string{
		"HOOK_POINT=" + string(e.Point),
		"TOAST_ID=" + t.ID,
		"TOAST_KIND=" + t.Kind.String(),
		"TOAST_TITLE=" + t.Title,
		"TOAST_DESCRIPTION=" + t.Description,
		"TOAST_POSITION=" + t.Position.String(),
		"TOAST_DURATION_MS=" + strconv.FormatInt(t.Duration.Milliseconds(), 10),
		"TOAST_DISMISSIBLE=" + strconv.FormatBool(t.Dismissible),
		"TOAST_CREATED_AT=" + t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.Cause != "" {
		env = append(env, "TOAST_CAUSE="+e.Cause.String())
	}
	if e.ButtonID != "" {
		env = append(env, "TOAST_BUTTON_ID="+e.ButtonID)
	}
	return env
}

// Scripts returns the executable scripts of a hook point sorted by name.
func (r *Runner) Scripts(p Point) []string {
	if r.opts.Dir == "" {
		return nil
	}
	dir := filepath.Join(r.opts.Dir, string(p))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var scripts []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || info.Mode()&0111 == 0 {
			continue
		}
		scripts = append(scripts, path)
	}
	sort.Strings(scripts)
	return scripts
}

// Run executes the scripts of ev.Point synchronously. In abort mode the
// first failure stops the rest and is returned wrapping ErrHookFailed.
func (r *Runner) Run(ctx context.Context, ev Event) error {
	if !r.opts.Enabled {
		return nil
	}
	scripts := r.Scripts(ev.Point)
	if len(scripts) == 0 {
		return nil
	}
	r.log().Debug("running hooks", "point", string(ev.Point), "count", len(scripts), "toast_id", ev.Toast.ID)

	env := append(os.Environ(), ev.Env()...)
	env = append(env, "HOOK_TIMESTAMP="+time.Now().Format(time.RFC3339))
	if r.binary != "" {
		env = append(env, "PULSE_TOAST_BINARY="+r.binary)
	}
	for _, script := range scripts {
		if err := r.exec(ctx, script, env); err != nil {
			name := filepath.Base(script)
			switch r.opts.FailureMode {
			case FailureAbort:
				r.log().Error("hook failed, aborting", "point", string(ev.Point), "script", name, "error", err.Error())
				return fmt.Errorf("%w: %s/%s: %v", ErrHookFailed, ev.Point, name, err)
			case FailureWarn:
				r.log().Warn("hook failed", "point", string(ev.Point), "script", name, "error", err.Error())
			}
		}
	}
	return nil
}

func (r *Runner) exec(ctx context.Context, script string, env []string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, script)
	cmd.Env = env
	killProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	output := truncate(strings.TrimSpace(out.String()), maxOutput)
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("timed out after %s", r.opts.Timeout)
	}
	if err != nil {
		if output != "" {
			return fmt.Errorf("%v: %s", err, output)
		}
		return err
	}
	r.log().Debug("hook completed", "script", filepath.Base(script), "duration_ms", time.Since(start).Milliseconds(), "output", output)
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Go runs ev in the background. It reports false when the event was
// dropped because MaxPending hook points are already running.
func (r *Runner) Go(ev Event) bool {
	if !r.opts.Enabled {
		return false
	}
	if !r.sem.TryAcquire(1) {
		r.log().Warn("too many pending hooks, skipping", "max", r.opts.MaxPending, "point", string(ev.Point), "toast_id", ev.Toast.ID)
		return false
	}
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		defer r.sem.Release(1)
		_ = r.Run(context.Background(), ev)
	}()
	return true
}

// Wait blocks until every background hook has finished.
func (r *Runner) Wait() {
	r.pending.Wait()
}

// Observer returns a toast observer that fires post-add and post-dismiss
// hooks in the background.
func (r *Runner) Observer() toast.Observer {
	return observer{r}
}

type observer struct{ r *Runner }

func (o observer) ToastAdded(t toast.Toast) {
	o.r.Go(Event{Point: PointPostAdd, Toast: t})
}

func (o observer) ToastRemoved(t toast.Toast, cause toast.Cause) {
	o.r.Go(Event{Point: PointPostDismiss, Toast: t, Cause: cause})
}

// ButtonHandler returns a handler for buttons of submitted toasts that
// fires the action or cancel hook with the button's ID.
func (r *Runner) ButtonHandler() toast.ButtonHandler {
	return func(t toast.Toast, cause toast.Cause, buttonID string) {
		point := PointAction
		if cause == toast.CauseCancel {
			point = PointCancel
		}
		r.Go(Event{Point: point, Toast: t, Cause: cause, ButtonID: buttonID})
	}
}
