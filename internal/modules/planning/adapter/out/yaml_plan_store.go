package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"microstep/internal/modules/planning/domain"
	planningout "microstep/internal/modules/planning/port/out"
	tracking "microstep/internal/modules/tracking/domain"
	apperrors "microstep/internal/platform/errors"
)

type YAMLPlanStore struct {
	dir string
}

func NewYAMLPlanStore(dataDir string) planningout.PlanStore {
	return &YAMLPlanStore{dir: filepath.Join(dataDir, "plans")}
}

func (s *YAMLPlanStore) path(date string) string {
	return filepath.Join(s.dir, date+".yaml")
}

func (s *YAMLPlanStore) Load(_ context.Context, date string) (domain.Plan, error) {
	if !tracking.ValidDate(date) {
		return domain.Plan{}, fmt.Errorf("%w: date %q", apperrors.ErrInvalidInput, date)
	}
	raw, err := os.ReadFile(s.path(date))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Plan{}, fmt.Errorf("%w: plan for %s", apperrors.ErrNotFound, date)
		}
		return domain.Plan{}, fmt.Errorf("read plan: %w", err)
	}
	plan := domain.Plan{}
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return domain.Plan{}, fmt.Errorf("decode plan %s: %w", date, err)
	}
	if plan.Date == "" {
		plan.Date = date
	}
	if plan.Tasks == nil {
		plan.Tasks = []domain.Task{}
	}
	return plan, nil
}

// Save writes the plan through a temp file so a crash never leaves a
// half-written plan behind.
func (s *YAMLPlanStore) Save(_ context.Context, plan domain.Plan) (string, error) {
	if !tracking.ValidDate(plan.Date) {
		return "", fmt.Errorf("%w: date %q", apperrors.ErrInvalidInput, plan.Date)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create plan dir: %w", err)
	}
	raw, err := yaml.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	path := s.path(plan.Date)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return "", fmt.Errorf("write plan: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("replace plan: %w", err)
	}
	return path, nil
}
