package out

import (
	"context"

	"microstep/internal/modules/focus/domain"
	focusout "microstep/internal/modules/focus/port/out"
	apperrors "microstep/internal/platform/errors"
)

// NoopAdvisor is used when no advisor binary is configured.
type NoopAdvisor struct{}

func NewNoopAdvisor() focusout.Advisor {
	return NoopAdvisor{}
}

func (NoopAdvisor) SuggestFirstActions(context.Context, domain.AdvisorContext) ([]string, error) {
	return []string{}, apperrors.ErrAdvisorUnavailable
}

func (NoopAdvisor) SuggestStuckCauses(context.Context, domain.AdvisorContext) ([]string, error) {
	return []string{}, apperrors.ErrAdvisorUnavailable
}

func (NoopAdvisor) SuggestPivot(context.Context, domain.AdvisorContext, string) (domain.PivotOffer, error) {
	return domain.PivotOffer{}, apperrors.ErrAdvisorUnavailable
}
