package out

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"microstep/internal/modules/tracking/domain"
	trackingout "microstep/internal/modules/tracking/port/out"
	apperrors "microstep/internal/platform/errors"
)

func sampleEvents(date string, ids ...string) []domain.TrackEvent {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	out := make([]domain.TrackEvent, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.TrackEvent{
			ID:        id,
			Type:      domain.TypeMicroCompleted,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Date:      date,
			Payload: domain.MicroCompleted{
				StepRef:          domain.StepRef{SessionID: "s1", TaskID: "t1", TaskTitle: "Write report", MicroAction: "open doc"},
				ActualSeconds:    90,
				EstimatedSeconds: domain.IntPtr(60),
			},
		})
	}
	return out
}

func storeContract(t *testing.T, store trackingout.EventStore) {
	t.Helper()
	ctx := context.Background()

	empty, err := store.Read(ctx, "2020-01-01")
	if err != nil {
		t.Fatalf("read unknown date: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty slice, got %#v", empty)
	}

	if err := store.Append(ctx, "2026-03-14", sampleEvents("2026-03-14", "a", "b")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, "2026-03-14", sampleEvents("2026-03-14", "c")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, "2026-03-15", sampleEvents("2026-03-15", "d")); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := store.Read(ctx, "2026-03-14")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 3 || events[0].ID != "a" || events[1].ID != "b" || events[2].ID != "c" {
		t.Fatalf("unexpected order: %#v", events)
	}
	completed, ok := events[0].Payload.(domain.MicroCompleted)
	if !ok {
		t.Fatalf("expected MicroCompleted payload, got %T", events[0].Payload)
	}
	if completed.ActualSeconds != 90 || completed.EstimatedSeconds == nil || *completed.EstimatedSeconds != 60 {
		t.Fatalf("payload not preserved: %#v", completed)
	}

	dates, err := store.Dates(ctx)
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2026-03-14" || dates[1] != "2026-03-15" {
		t.Fatalf("unexpected dates: %v", dates)
	}
}

func TestFileEventStoreContract(t *testing.T) {
	t.Parallel()
	storeContract(t, NewFileEventStore(t.TempDir()))
}

func TestSQLiteEventStoreContract(t *testing.T) {
	t.Parallel()
	store, err := NewSQLiteEventStore(filepath.Join(t.TempDir(), "microstep.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer store.Close()
	storeContract(t, store)
}

func TestMemoryEventStoreContract(t *testing.T) {
	t.Parallel()
	storeContract(t, NewMemoryEventStore())
}

func TestFileEventStoreRejectsBadDate(t *testing.T) {
	t.Parallel()
	store := NewFileEventStore(t.TempDir())
	err := store.Append(context.Background(), "../escape", sampleEvents("x", "a"))
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestFileEventStoreSkipsTornLine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileEventStore(dir)
	if err := store.Append(ctx, "2026-03-14", sampleEvents("2026-03-14", "a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	path := filepath.Join(dir, "events", "2026-03-14.jsonl")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := file.WriteString(`{"id":"b","type":"exec.micro_comp`); err != nil {
		t.Fatalf("write torn line: %v", err)
	}
	_ = file.Close()

	events, err := store.Read(ctx, "2026-03-14")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 1 || events[0].ID != "a" {
		t.Fatalf("expected only the intact event, got %#v", events)
	}
}

func TestSQLiteEventStoreIgnoresDuplicateIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := NewSQLiteEventStore(filepath.Join(t.TempDir(), "microstep.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer store.Close()

	batch := sampleEvents("2026-03-14", "a", "b", "c")
	if err := store.Append(ctx, "2026-03-14", batch); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, "2026-03-14", batch); err != nil {
		t.Fatalf("append retry: %v", err)
	}
	events, err := store.Read(ctx, "2026-03-14")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events after duplicate append, got %d", len(events))
	}
}
