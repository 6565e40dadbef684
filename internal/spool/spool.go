// Package spool passes toast requests between processes through an
// append-only JSON Lines file.
//
// Writers call Append; the process that owns the toast manager runs a
// Follower that turns each new line into a toast.
package spool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/keyo-app/pulse-toast/internal/logging"
	"github.com/keyo-app/pulse-toast/internal/toast"
)

// ErrEmptyPath is returned when no spool path is configured.
var ErrEmptyPath = errors.New("spool path cannot be empty")

// Append validates req and appends it to the spool as one line.
func Append(path string, req toast.Request) error {
	if strings.TrimSpace(path) == "" {
		return ErrEmptyPath
	}
	if err := req.Validate(); err != nil {
		return err
	}
	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("spool: encode request: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("spool: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("spool: open: %w", err)
	}
	// One write per line so concurrent appenders do not interleave.
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("spool: write: %w", err)
	}
	return f.Close()
}

// Handler receives each decoded request.
type Handler func(toast.Request)

// FollowerOption configures a Follower.
type FollowerOption func(*Follower)

// WithReplay makes the follower read lines already in the file. By default
// it starts at the current end.
func WithReplay() FollowerOption {
	return func(f *Follower) { f.replay = true }
}

// WithLogger sets the follower's logger.
func WithLogger(l logging.Logger) FollowerOption {
	return func(f *Follower) { f.logger = l }
}

// Follower tails a spool file.
type Follower struct {
	path    string
	handle  Handler
	replay  bool
	logger  logging.Logger
	offset  int64
	partial []byte
}

// NewFollower creates a follower for path.
func NewFollower(path string, handle Handler, opts ...FollowerOption) *Follower {
	if handle == nil {
		panic("spool.NewFollower: handler dependency cannot be nil")
	}
	f := &Follower{path: path, handle: handle}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logging.GetGlobal()
	}
	return f
}

// Run follows the spool until ctx is done. The file and its directory are
// created when missing.
func (f *Follower) Run(ctx context.Context) error {
	if strings.TrimSpace(f.path) == "" {
		return ErrEmptyPath
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("spool: create directory: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return fmt.Errorf("spool: open: %w", err)
	}
	if !f.replay {
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return fmt.Errorf("spool: stat: %w", err)
		}
		f.offset = info.Size()
	}
	file.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("spool: create watcher: %w", err)
	}
	defer watcher.Close()
	// The directory is watched so truncation and replacement are seen.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("spool: watch %s: %w", dir, err)
	}
	f.logger.Debug("following spool", "path", f.path, "offset", f.offset)

	f.drain()
	name := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Create) {
				f.reset()
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				f.drain()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("spool watcher error", "error", err.Error())
		}
	}
}

func (f *Follower) reset() {
	f.offset = 0
	f.partial = nil
}

// drain reads everything past the offset and dispatches complete lines.
func (f *Follower) drain() {
	file, err := os.Open(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("spool open failed", "path", f.path, "error", err.Error())
		}
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return
	}
	if info.Size() < f.offset {
		f.logger.Info("spool truncated, restarting from the beginning", "path", f.path)
		f.reset()
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		f.logger.Warn("spool read failed", "path", f.path, "error", err.Error())
		return
	}
	f.offset += int64(len(data))

	buf := append(f.partial, data...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		f.dispatch(buf[:i])
		buf = buf[i+1:]
	}
	f.partial = append([]byte(nil), buf...)
}

func (f *Follower) dispatch(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	var req toast.Request
	if err := json.Unmarshal(line, &req); err != nil {
		f.logger.Warn("skipping malformed spool line", "error", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		f.logger.Warn("skipping invalid spool request", "error", err.Error())
		return
	}
	f.handle(req)
}
