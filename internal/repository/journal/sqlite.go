package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	_ "modernc.org/sqlite" // Registers the "sqlite" driver.

	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	pb "github.com/oshokin/alarm-scheduler/internal/pb/v1"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT    NOT NULL,
	ts           TEXT    NOT NULL,
	kind         TEXT    NOT NULL,
	alarm_id     INTEGER,
	group_id     INTEGER,
	payload_json TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS events_run_id ON events (run_id);
`

// ErrClosed is returned by operations on a closed repository.
var ErrClosed = errors.New("journal is closed")

// Repository defines the journal operations used by the service and the CLI.
type Repository interface {
	Append(ctx context.Context, e alarm.Event) error
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Record is one journal row.
type Record struct {
	// At is the instant the event occurred.
	At time.Time
	// Payload is the event payload with protobuf JSON value semantics.
	Payload map[string]any
	// RunID identifies the process run that wrote the row.
	RunID string
	// Kind names the event.
	Kind alarm.EventKind
	// AlarmID is set for alarm events.
	AlarmID sql.NullInt64
	// GroupID is set for events bound to a group.
	GroupID sql.NullInt64
	// ID is the row number.
	ID int64
}

// SQLiteRepository stores events in a SQLite database file.
type SQLiteRepository struct {
	// db is the connection pool, limited to one connection.
	db *sql.DB
	// runID tags rows written by this process.
	runID string
	// mu serializes writes and Close.
	mu     sync.Mutex
	closed bool
}

// Open opens or creates the journal at path.
func Open(ctx context.Context, path string) (*SQLiteRepository, error) {
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLiteRepository{
		db:    db,
		runID: uuid.NewString(),
	}, nil
}

// RunID returns the identifier stamped on rows written by this repository.
func (r *SQLiteRepository) RunID() string {
	return r.runID
}

// Append writes one event.
func (r *SQLiteRepository) Append(ctx context.Context, e alarm.Event) error {
	payload, err := pb.FieldsToStruct(e.Fields())
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}

	data, err := protojson.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	fields := e.Fields()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO events (run_id, ts, kind, alarm_id, group_id, payload_json) VALUES (?, ?, ?, ?, ?, ?)`,
		r.runID,
		e.OccurredAt().UTC().Format(time.RFC3339Nano),
		string(e.Kind()),
		nullable(fields, "alarm_id"),
		nullable(fields, "group_id", "new_group_id"),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// Emit implements events.Sink. Failures are logged, never returned to the scheduler.
func (r *SQLiteRepository) Emit(ctx context.Context, e alarm.Event) {
	if err := r.Append(ctx, e); err != nil && !errors.Is(err, ErrClosed) {
		logger.ErrorKV(ctx, "Failed to append event to journal", "event", string(e.Kind()), "error", err)
	}
}

// Recent returns the latest events, newest first.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_id, ts, kind, alarm_id, group_id, payload_json FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var result []Record

	for rows.Next() {
		var (
			rec         Record
			ts, kind    string
			payloadJSON string
		)

		if err = rows.Scan(&rec.ID, &rec.RunID, &ts, &kind, &rec.AlarmID, &rec.GroupID, &payloadJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		if rec.At, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("event %d: parse time: %w", rec.ID, err)
		}

		var payload structpb.Struct
		if err = protojson.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("event %d: decode payload: %w", rec.ID, err)
		}

		rec.Kind = alarm.EventKind(kind)
		rec.Payload = payload.AsMap()
		result = append(result, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return result, nil
}

// Close closes the database. Later appends fail with ErrClosed.
func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	return r.db.Close()
}

// nullable returns the first integer field found among keys, or nil.
func nullable(fields map[string]any, keys ...string) any {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case int64:
			return v
		case uint64:
			return int64(v) //nolint:gosec // Ids fit in int64.
		}
	}

	return nil
}
