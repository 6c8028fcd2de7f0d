package out

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"microstep/internal/modules/tracking/domain"
	trackingout "microstep/internal/modules/tracking/port/out"
	apperrors "microstep/internal/platform/errors"
)

const maxLineBytes = 1 << 20

// FileEventStore keeps one JSONL file per day under <dataDir>/events.
type FileEventStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileEventStore(dataDir string) trackingout.EventStore {
	return &FileEventStore{dir: filepath.Join(dataDir, "events")}
}

func (s *FileEventStore) Append(_ context.Context, date string, events []domain.TrackEvent) error {
	if !domain.ValidDate(date) {
		return fmt.Errorf("%w: date %q", apperrors.ErrInvalidInput, date)
	}
	if len(events) == 0 {
		return nil
	}

	buf := bytes.Buffer{}
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", event.ID, err)
		}
		buf.Write(payload)
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create events dir: %w", err)
	}
	file, err := os.OpenFile(s.path(date), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat event log: %w", err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		if truncErr := file.Truncate(info.Size()); truncErr != nil {
			return fmt.Errorf("write event log: %w (rollback: %v)", err, truncErr)
		}
		return fmt.Errorf("write event log: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Truncate(info.Size())
		return fmt.Errorf("sync event log: %w", err)
	}
	return nil
}

// Read returns the day's events in append order. Lines that do not decode
// are skipped, which covers a torn final line after a crash.
func (s *FileEventStore) Read(_ context.Context, date string) ([]domain.TrackEvent, error) {
	if !domain.ValidDate(date) {
		return []domain.TrackEvent{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.Open(s.path(date))
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.TrackEvent{}, nil
		}
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer file.Close()

	out := []domain.TrackEvent{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		event := domain.TrackEvent{}
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		out = append(out, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan event log: %w", err)
	}
	return out, nil
}

func (s *FileEventStore) Dates(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list events dir: %w", err)
	}
	dates := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		date, ok := strings.CutSuffix(entry.Name(), ".jsonl")
		if !ok || !domain.ValidDate(date) {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *FileEventStore) path(date string) string {
	return filepath.Join(s.dir, date+".jsonl")
}
