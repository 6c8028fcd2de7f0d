package in

import (
	"context"

	"microstep/internal/modules/focus/dto"
	focusin "microstep/internal/modules/focus/port/in"
)

type CLIHandler struct {
	usecase focusin.Usecase
}

func NewCLIHandler(usecase focusin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

// Usecase exposes the port for drivers that need the whole surface, such as
// the terminal UI.
func (h CLIHandler) Usecase() focusin.Usecase {
	return h.usecase
}

func (h CLIHandler) Start(ctx context.Context, taskRef string) (dto.SessionOutput, error) {
	return h.usecase.Start(ctx, dto.StartInput{TaskRef: taskRef})
}

func (h CLIHandler) Current(ctx context.Context) dto.SessionOutput {
	return h.usecase.Current(ctx)
}

func (h CLIHandler) Exit(ctx context.Context) (dto.SessionOutput, error) {
	return h.usecase.Exit(ctx)
}

// RunScript drives a session from line commands. It always leaves the
// session closed, exiting it when the script ends early.
func (h CLIHandler) RunScript(ctx context.Context, script ScriptIO) error {
	return NewScriptDriver(h.usecase, script).Run(ctx)
}
