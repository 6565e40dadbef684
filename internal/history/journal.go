// Package history keeps a SQLite journal of every toast shown: when it
// appeared, when it left and why.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/keyo-app/pulse-toast/internal/logging"
	"github.com/keyo-app/pulse-toast/internal/toast"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// CauseAbandoned marks toasts that were still live when their process died.
const CauseAbandoned = "abandoned"

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrClosed is returned when the journal was already closed.
	ErrClosed = errors.New("history journal closed")
	// ErrInvalidFilter indicates an unknown state or kind in a Filter.
	ErrInvalidFilter = errors.New("invalid history filter")
)

// State selects records by whether the toast is still live.
type State string

const (
	StateAll     State = "all"
	StateLive    State = "live"
	StateRemoved State = "removed"
)

// Record is one journaled toast.
type Record struct {
	ID          string
	Kind        toast.Kind
	Title       string
	Description string
	Position    toast.Position
	Duration    time.Duration
	CreatedAt   time.Time
	// RemovedAt is zero while the toast is live.
	RemovedAt time.Time
	Cause     string
}

// Live reports whether the toast had not been removed when the record was read.
func (r Record) Live() bool {
	return r.RemovedAt.IsZero()
}

// Filter narrows List results. Zero values match everything; Limit 0 means
// no limit.
type Filter struct {
	Kind  toast.Kind
	State State
	Limit int
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the journal's logger.
func WithLogger(l logging.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

// WithClock overrides the time source for removal timestamps.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// WithBuffer sets how many writes may queue before observers block.
func WithBuffer(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.buffer = n
		}
	}
}

type write struct {
	rec  Record
	sync chan struct{}
}

// Journal records toasts in SQLite. It implements toast.Observer; writes are
// queued and applied in order by a single goroutine.
type Journal struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
	buffer int

	mu     sync.RWMutex
	closed bool
	writes chan write
	done   chan struct{}
}

// Open opens or creates the journal at path.
func Open(path string, opts ...Option) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history: db path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	// One connection keeps the writer and readers of this process serialized.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, now: time.Now, buffer: 256}
	for _, opt := range opts {
		opt(j)
	}
	if j.logger == nil {
		j.logger = logging.GetGlobal()
	}
	if err := j.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	j.writes = make(chan write, j.buffer)
	j.done = make(chan struct{})
	go j.run()
	return j, nil
}

func (j *Journal) init() error {
	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := j.db.Exec(pragma); err != nil {
			return fmt.Errorf("history: %s: %w", pragma, err)
		}
	}
	if _, err := j.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("history: create schema: %w", err)
	}
	return nil
}

func (j *Journal) run() {
	defer close(j.done)
	for w := range j.writes {
		if w.sync != nil {
			close(w.sync)
			continue
		}
		if err := j.upsert(context.Background(), w.rec); err != nil {
			j.logger.Error("history write failed", "id", w.rec.ID, "error", err.Error())
		}
	}
}

const upsertSQL = `
INSERT INTO toasts (id, kind, title, description, position, duration_ms, created_at, removed_at, cause)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    removed_at = excluded.removed_at,
    cause = excluded.cause
WHERE toasts.removed_at IS NULL AND excluded.removed_at IS NOT NULL`

func (j *Journal) upsert(ctx context.Context, r Record) error {
	var removedAt any
	if !r.RemovedAt.IsZero() {
		removedAt = r.RemovedAt.UTC().Format(timeLayout)
	}
	_, err := j.db.ExecContext(ctx, upsertSQL,
		r.ID,
		r.Kind.String(),
		r.Title,
		r.Description,
		r.Position.String(),
		r.Duration.Milliseconds(),
		r.CreatedAt.UTC().Format(timeLayout),
		removedAt,
		r.Cause,
	)
	return err
}

func (j *Journal) enqueue(w write) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return false
	}
	j.writes <- w
	return true
}

func recordOf(t toast.Toast) Record {
	return Record{
		ID:          t.ID,
		Kind:        t.Kind,
		Title:       t.Title,
		Description: t.Description,
		Position:    t.Position,
		Duration:    t.Duration,
		CreatedAt:   t.CreatedAt,
	}
}

// ToastAdded journals a new toast.
func (j *Journal) ToastAdded(t toast.Toast) {
	if !j.enqueue(write{rec: recordOf(t)}) {
		j.logger.Debug("history closed, dropping add", "id", t.ID)
	}
}

// ToastRemoved records when and why a toast left.
func (j *Journal) ToastRemoved(t toast.Toast, cause toast.Cause) {
	rec := recordOf(t)
	rec.RemovedAt = j.now()
	rec.Cause = cause.String()
	if !j.enqueue(write{rec: rec}) {
		j.logger.Debug("history closed, dropping removal", "id", t.ID)
	}
}

// Sync waits until every queued write has been applied.
func (j *Journal) Sync(ctx context.Context) error {
	ch := make(chan struct{})
	if !j.enqueue(write{sync: ch}) {
		return ErrClosed
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MarkAbandoned closes records left live by a previous process. The process
// that owns the live toasts calls it once at startup.
func (j *Journal) MarkAbandoned(ctx context.Context) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`UPDATE toasts SET removed_at = ?, cause = ? WHERE removed_at IS NULL`,
		j.now().UTC().Format(timeLayout), CauseAbandoned)
	if err != nil {
		return 0, fmt.Errorf("history: mark abandoned: %w", err)
	}
	return res.RowsAffected()
}

// List returns records newest first. Pending writes are applied first.
func (j *Journal) List(ctx context.Context, f Filter) ([]Record, error) {
	if err := j.Sync(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		if !f.Kind.IsValid() {
			return nil, fmt.Errorf("%w: kind %q", ErrInvalidFilter, f.Kind)
		}
		where = append(where, "kind = ?")
		args = append(args, f.Kind.String())
	}
	switch f.State {
	case "", StateAll:
	case StateLive:
		where = append(where, "removed_at IS NULL")
	case StateRemoved:
		where = append(where, "removed_at IS NOT NULL")
	default:
		return nil, fmt.Errorf("%w: state %q", ErrInvalidFilter, f.State)
	}

	query := `SELECT id, kind, title, description, position, duration_ms, created_at, removed_at, cause FROM toasts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r              Record
			kind, position string
			durationMs     int64
			createdAt      string
			removedAt      sql.NullString
		)
		if err := rows.Scan(&r.ID, &kind, &r.Title, &r.Description, &position, &durationMs, &createdAt, &removedAt, &r.Cause); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r.Kind = toast.Kind(kind)
		r.Position = toast.Position(position)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("history: parse created_at of %s: %w", r.ID, err)
		}
		if removedAt.Valid {
			if r.RemovedAt, err = time.Parse(timeLayout, removedAt.String); err != nil {
				return nil, fmt.Errorf("history: parse removed_at of %s: %w", r.ID, err)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return records, nil
}

// Cleanup deletes removed records whose removal is older than days. Zero
// days deletes every removed record. With dryRun nothing is deleted. It
// returns the number of matching records.
func (j *Journal) Cleanup(ctx context.Context, days int, dryRun bool) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("history: days threshold must be >= 0")
	}
	if err := j.Sync(ctx); err != nil {
		return 0, err
	}
	cond := "removed_at IS NOT NULL"
	var args []any
	if days > 0 {
		cond += " AND removed_at < ?"
		args = append(args, j.now().UTC().AddDate(0, 0, -days).Format(timeLayout))
	}

	if dryRun {
		var n int64
		if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM toasts WHERE "+cond, args...).Scan(&n); err != nil {
			return 0, fmt.Errorf("history: count for cleanup: %w", err)
		}
		return n, nil
	}
	res, err := j.db.ExecContext(ctx, "DELETE FROM toasts WHERE "+cond, args...)
	if err != nil {
		return 0, fmt.Errorf("history: cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close drains queued writes and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.writes)
	j.mu.Unlock()

	<-j.done
	return j.db.Close()
}
