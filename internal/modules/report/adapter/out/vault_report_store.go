package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"microstep/internal/modules/report/domain"
	reportout "microstep/internal/modules/report/port/out"
	"microstep/internal/platform/markdown"
)

const reportSchemaVersion = 1

type ReportMeta struct {
	SchemaVersion int          `yaml:"schema_version"`
	Date          string       `yaml:"date"`
	Events        int          `yaml:"events"`
	Stats         domain.Stats `yaml:"stats"`
}

type VaultReportStore struct {
	dir string
}

func NewVaultReportStore(dataDir string) reportout.ReportStore {
	return &VaultReportStore{dir: filepath.Join(dataDir, "reports")}
}

func (s *VaultReportStore) Save(_ context.Context, summary domain.DailySummary, narrative string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	meta := ReportMeta{
		SchemaVersion: reportSchemaVersion,
		Date:          summary.Date,
		Events:        summary.EventCount,
		Stats:         summary.Stats,
	}
	rendered, err := markdown.RenderFrontmatter(meta, narrative)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, summary.Date+".md")
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Load reads back an exported report.
func (s *VaultReportStore) Load(date string) (ReportMeta, string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, date+".md"))
	if err != nil {
		return ReportMeta{}, "", fmt.Errorf("read report: %w", err)
	}
	meta := ReportMeta{}
	body, err := markdown.SplitFrontmatter(string(raw), &meta)
	if err != nil {
		return ReportMeta{}, "", err
	}
	return meta, body, nil
}
