package in

import (
	"context"

	"microstep/internal/modules/focus/dto"
)

type Usecase interface {
	Current(ctx context.Context) dto.SessionOutput
	Start(ctx context.Context, input dto.StartInput) (dto.SessionOutput, error)
	ConfirmFirstAction(ctx context.Context, input dto.ActionInput) (dto.SessionOutput, error)
	CompleteAction(ctx context.Context) (dto.SessionOutput, error)
	RequestUnstuck(ctx context.Context) (dto.SessionOutput, error)
	AdvanceTo(ctx context.Context, input dto.ActionInput) (dto.SessionOutput, error)
	EnterFlow(ctx context.Context) (dto.SessionOutput, error)
	FinishTask(ctx context.Context) (dto.SessionOutput, error)
	SubmitReason(ctx context.Context, input dto.ReasonInput) (dto.PivotOutput, error)
	ResumeWithoutPivot(ctx context.Context) (dto.SessionOutput, error)
	ChoosePivot(ctx context.Context, input dto.ActionInput) (dto.SessionOutput, error)
	ContinueOriginal(ctx context.Context) (dto.SessionOutput, error)
	Exit(ctx context.Context) (dto.SessionOutput, error)
	SuggestFirstActions(ctx context.Context) (dto.SuggestionsOutput, error)
	SuggestStuckCauses(ctx context.Context) (dto.SuggestionsOutput, error)
}
