// Package trace persists extraction debug events to SQLite so a call can be inspected after the fact.
package trace

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	// sqlite driver
	_ "modernc.org/sqlite"

	"github.com/platinummonkey/garagescan/internal/logger"
	"github.com/platinummonkey/garagescan/internal/types"
)

// timeLayout keeps timestamps sortable as text; the driver's default time encoding is not
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps the SQL database connection holding debug events
type Store struct {
	*sql.DB
	path string

	mu  sync.Mutex
	seq map[string]int
}

// Call summarizes the events recorded for one extraction call
type Call struct {
	CallID    string
	Providers int
	Errors    int
	Events    int
	Started   time.Time
}

// New opens (or creates) the trace database and initializes the schema
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create trace directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to trace database: %w", err)
	}

	s := &Store{DB: sqlDB, path: path, seq: make(map[string]int)}

	if err := s.configure(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to configure trace database: %w", err)
	}

	if err := s.createSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := s.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (s *Store) createSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS debug_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		call_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		provider TEXT NOT NULL,
		created_at TEXT NOT NULL,
		payload TEXT,
		line TEXT,
		text TEXT,
		message TEXT
	)`

	if _, err := s.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create debug_events table: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_debug_events_call ON debug_events(call_id, seq)`
	if _, err := s.ExecContext(context.Background(), index); err != nil {
		return fmt.Errorf("failed to create debug_events index: %w", err)
	}
	return nil
}

// Record stores one event; events of a call keep their arrival order
func (s *Store) Record(ctx context.Context, ev types.DebugEvent) error {
	s.mu.Lock()
	s.seq[ev.CallID]++
	seq := s.seq[ev.CallID]
	s.mu.Unlock()

	at := ev.Time
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.ExecContext(ctx, `
		INSERT INTO debug_events (call_id, seq, kind, provider, created_at, payload, line, text, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.CallID, seq, string(ev.Kind), string(ev.Provider), at.UTC().Format(timeLayout),
		nullString(string(ev.Payload)), nullString(ev.Line), nullString(ev.Text), nullString(ev.Message),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", ev.Kind, err)
	}
	return nil
}

// Events returns the events of one call in arrival order
func (s *Store) Events(ctx context.Context, callID string) ([]types.DebugEvent, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT kind, provider, created_at, payload, line, text, message
		FROM debug_events WHERE call_id = ? ORDER BY seq`, callID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []types.DebugEvent
	for rows.Next() {
		var (
			kind, provider, createdAt   string
			payload, line, text, message sql.NullString
		)
		if err := rows.Scan(&kind, &provider, &createdAt, &payload, &line, &text, &message); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		at, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event time %q: %w", createdAt, err)
		}

		ev := types.DebugEvent{
			Kind:     types.DebugKind(kind),
			Provider: types.ProviderType(provider),
			CallID:   callID,
			Time:     at,
			Line:     line.String,
			Text:     text.String,
			Message:  message.String,
		}
		if payload.Valid {
			ev.Payload = []byte(payload.String)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Calls returns the most recent calls, newest first
func (s *Store) Calls(ctx context.Context, limit int) ([]Call, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.QueryContext(ctx, `
		SELECT call_id,
			COUNT(DISTINCT provider),
			SUM(CASE WHEN kind = 'error' THEN 1 ELSE 0 END),
			COUNT(*),
			MIN(created_at) AS started
		FROM debug_events
		GROUP BY call_id
		ORDER BY started DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls: %w", err)
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		var c Call
		var started string
		if err := rows.Scan(&c.CallID, &c.Providers, &c.Errors, &c.Events, &started); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		if c.Started, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("failed to parse call time %q: %w", started, err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// Observe returns an observer that records every debug event before forwarding it to next.
// Recording failures are logged and never interrupt the extraction.
func (s *Store) Observe(next *types.Observer) *types.Observer {
	obs := &types.Observer{
		OnDebug: func(ev types.DebugEvent) {
			if err := s.Record(context.Background(), ev); err != nil {
				logger.WithCallID(ev.CallID).WithError(err).Warn("Failed to record debug event")
			}
			if next.Debugging() {
				next.OnDebug(ev)
			}
		},
	}
	if next != nil {
		obs.OnProgress = next.OnProgress
	}
	return obs
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
