package in

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"microstep/internal/modules/focus/dto"
	focusin "microstep/internal/modules/focus/port/in"
)

const (
	sourceSelf    = "self"
	sourceAdvisor = "advisor"
)

type ScriptIO struct {
	In  io.Reader
	Out io.Writer
}

// ScriptDriver reads one command per line:
//
//	first <label> [~secs]   confirm the first action
//	next <label> [~secs]    advance from relay
//	done                    complete the current action
//	stuck                   ask for help
//	reason <text>           submit the stuck reason (asks for a pivot)
//	resume                  go back to the action without a pivot
//	pivot <label|#n>        choose a pivot, #n picks an offered one
//	continue                keep the original action as the pivot
//	flow | finish | exit
//	suggest | causes | status
//
// Blank lines and lines starting with "//" are ignored.
type ScriptDriver struct {
	usecase focusin.Usecase
	in      io.Reader
	out     io.Writer
	pivots  []string
	causes  []string
	firsts  []string
}

func NewScriptDriver(usecase focusin.Usecase, script ScriptIO) *ScriptDriver {
	out := script.Out
	if out == nil {
		out = io.Discard
	}
	return &ScriptDriver{usecase: usecase, in: script.In, out: out}
}

var errQuit = errors.New("quit")

func (d *ScriptDriver) Run(ctx context.Context) error {
	d.print(d.usecase.Current(ctx))
	scanner := bufio.NewScanner(d.in)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}
		err := d.exec(ctx, text)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(d.out, "line %d: %v\n", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if phase := d.usecase.Current(ctx).Phase; phase != "idle" {
		state, err := d.usecase.Exit(context.WithoutCancel(ctx))
		if err == nil {
			d.print(state)
		}
	}
	return nil
}

func (d *ScriptDriver) exec(ctx context.Context, text string) error {
	verb, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(verb) {
	case "first":
		return d.show(d.usecase.ConfirmFirstAction(ctx, d.pickAction(rest, d.firsts)))
	case "next":
		return d.show(d.usecase.AdvanceTo(ctx, d.pickAction(rest, d.firsts)))
	case "done":
		return d.show(d.usecase.CompleteAction(ctx))
	case "stuck":
		if err := d.show(d.usecase.RequestUnstuck(ctx)); err != nil {
			return err
		}
		return d.suggestCauses(ctx)
	case "reason":
		source := sourceSelf
		if strings.HasPrefix(rest, "#") {
			source = sourceAdvisor
		}
		out, err := d.usecase.SubmitReason(ctx, dto.ReasonInput{Reason: d.pick(rest, d.causes), Source: source})
		if err != nil {
			return err
		}
		d.print(out.Session)
		d.pivots = out.Pivots
		switch {
		case out.Stale:
			fmt.Fprintln(d.out, "advisor: reply arrived too late")
		case out.Err != "":
			fmt.Fprintf(d.out, "advisor: %s\n", out.Err)
		default:
			if out.Empathy != "" {
				fmt.Fprintf(d.out, "advisor: %s\n", out.Empathy)
			}
			d.list("pivot", out.Pivots)
		}
		return nil
	case "resume":
		return d.show(d.usecase.ResumeWithoutPivot(ctx))
	case "pivot":
		return d.show(d.usecase.ChoosePivot(ctx, d.pickAction(rest, d.pivots)))
	case "continue":
		return d.show(d.usecase.ContinueOriginal(ctx))
	case "flow":
		return d.show(d.usecase.EnterFlow(ctx))
	case "finish":
		return d.show(d.usecase.FinishTask(ctx))
	case "exit":
		if err := d.show(d.usecase.Exit(ctx)); err != nil {
			return err
		}
		return errQuit
	case "suggest":
		out, err := d.usecase.SuggestFirstActions(ctx)
		if err != nil {
			return err
		}
		d.firsts = out.Items
		d.report("first", out)
		return nil
	case "causes":
		return d.suggestCauses(ctx)
	case "status":
		d.print(d.usecase.Current(ctx))
		return nil
	default:
		return fmt.Errorf("unknown command %q", verb)
	}
}

func (d *ScriptDriver) suggestCauses(ctx context.Context) error {
	out, err := d.usecase.SuggestStuckCauses(ctx)
	if err != nil {
		return err
	}
	d.causes = out.Items
	d.report("cause", out)
	return nil
}

// pick resolves "#n" against the last list shown, else returns arg as is.
func (d *ScriptDriver) pick(arg string, items []string) string {
	if !strings.HasPrefix(arg, "#") {
		return arg
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil || idx < 1 || idx > len(items) {
		return ""
	}
	return items[idx-1]
}

// pickAction splits off the "~secs" estimate before resolving "#n", so
// "#2 ~60" picks the second item with a one minute estimate.
func (d *ScriptDriver) pickAction(arg string, items []string) dto.ActionInput {
	input := actionInput(arg)
	if strings.HasPrefix(input.Label, "#") {
		input.Label = d.pick(input.Label, items)
		input.Source = sourceAdvisor
	}
	return input
}

func (d *ScriptDriver) show(out dto.SessionOutput, err error) error {
	if err != nil {
		return err
	}
	d.print(out)
	return nil
}

func (d *ScriptDriver) print(s dto.SessionOutput) {
	switch {
	case s.Phase == "idle":
		fmt.Fprintln(d.out, "[idle]")
	case s.Label == "":
		fmt.Fprintf(d.out, "[%s] %s\n", s.Phase, s.TaskTitle)
	default:
		fmt.Fprintf(d.out, "[%s] %s > %s\n", s.Phase, s.TaskTitle, s.Label)
	}
}

func (d *ScriptDriver) report(kind string, out dto.SuggestionsOutput) {
	switch {
	case out.Stale:
		fmt.Fprintln(d.out, "advisor: reply arrived too late")
	case out.Err != "":
		fmt.Fprintf(d.out, "advisor: %s\n", out.Err)
	default:
		d.list(kind, out.Items)
	}
}

func (d *ScriptDriver) list(kind string, items []string) {
	for i, item := range items {
		fmt.Fprintf(d.out, "  %s #%d %s\n", kind, i+1, item)
	}
}

// actionInput parses "label ~90" into a label with an estimate in seconds.
func actionInput(arg string) dto.ActionInput {
	input := dto.ActionInput{Label: arg, Source: sourceSelf}
	if idx := strings.LastIndex(arg, " ~"); idx >= 0 {
		if secs, err := strconv.Atoi(strings.TrimSpace(arg[idx+2:])); err == nil && secs > 0 {
			input.Label = strings.TrimSpace(arg[:idx])
			input.EstimatedSeconds = secs
		}
	}
	return input
}
