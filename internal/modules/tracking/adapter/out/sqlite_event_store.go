package out

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"microstep/internal/modules/tracking/domain"
	trackingout "microstep/internal/modules/tracking/port/out"
	apperrors "microstep/internal/platform/errors"

	_ "modernc.org/sqlite"
)

// SQLiteEventStore keeps the log in a single table ordered by insertion. A
// record whose id is already present is ignored, so retried batches do not
// duplicate.
type SQLiteEventStore struct {
	db *sql.DB
}

func NewSQLiteEventStore(dbPath string) (*SQLiteEventStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteEventStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

var _ trackingout.EventStore = (*SQLiteEventStore)(nil)

func (s *SQLiteEventStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS events (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  date TEXT NOT NULL,
  type TEXT NOT NULL,
  occurred_at TEXT NOT NULL,
  record TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS events_date_seq ON events (date, seq)`); err != nil {
		return fmt.Errorf("create events index: %w", err)
	}
	return nil
}

func (s *SQLiteEventStore) Append(ctx context.Context, date string, events []domain.TrackEvent) error {
	if !domain.ValidDate(date) {
		return fmt.Errorf("%w: date %q", apperrors.ErrInvalidInput, date)
	}
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const stmt = `
INSERT INTO events (id, date, type, occurred_at, record)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING;
`
	for _, event := range events {
		record, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", event.ID, err)
		}
		if _, err := tx.ExecContext(ctx, stmt,
			event.ID,
			date,
			string(event.Type),
			event.Timestamp.UTC().Format(time.RFC3339Nano),
			string(record),
		); err != nil {
			return fmt.Errorf("insert event %s: %w", event.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (s *SQLiteEventStore) Read(ctx context.Context, date string) ([]domain.TrackEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM events WHERE date = ? ORDER BY seq`, date)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []domain.TrackEvent{}
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event := domain.TrackEvent{}
		if err := json.Unmarshal([]byte(record), &event); err != nil {
			continue
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *SQLiteEventStore) Dates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT date FROM events ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer rows.Close()
	dates := []string{}
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}

func (s *SQLiteEventStore) Close() error {
	return s.db.Close()
}
