package in_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	focusin "microstep/internal/modules/focus/adapter/in"
	"microstep/internal/modules/focus/domain"
	"microstep/internal/modules/focus/service"
	"microstep/internal/modules/focus/usecase"
	tracking "microstep/internal/modules/tracking/domain"
	apperrors "microstep/internal/platform/errors"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now moves time forward a little on every read so durations are non-zero.
func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(10 * time.Second)
	return c.now
}

type counterID struct {
	mu sync.Mutex
	n  int
}

func (g *counterID) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "s" + strings.Repeat("x", g.n)
}

type memRecorder struct {
	mu       sync.Mutex
	types    []tracking.EventType
	payloads []tracking.Payload
}

func (r *memRecorder) Track(p tracking.Payload) tracking.TrackEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, p.Type())
	r.payloads = append(r.payloads, p)
	return tracking.TrackEvent{Type: p.Type(), Payload: p}
}

type cannedAdvisor struct{}

func (cannedAdvisor) SuggestFirstActions(context.Context, domain.AdvisorContext) ([]string, error) {
	return []string{"Open the doc", "Write one line"}, nil
}

func (cannedAdvisor) SuggestStuckCauses(context.Context, domain.AdvisorContext) ([]string, error) {
	return []string{"Too vague", "Too big"}, nil
}

func (cannedAdvisor) SuggestPivot(context.Context, domain.AdvisorContext, string) (domain.PivotOffer, error) {
	return domain.PivotOffer{Empathy: "That happens.", Pivots: []string{"Write the title only"}}, nil
}

type oneTask struct{}

func (oneTask) Task(_ context.Context, ref string) (domain.Task, error) {
	if ref != "report" {
		return domain.Task{}, apperrors.ErrNotFound
	}
	return domain.Task{ID: "t1", Title: "Write report"}, nil
}

func (oneTask) Snapshot(context.Context) ([]tracking.PlannedTask, error) {
	return []tracking.PlannedTask{{ID: "t1", Title: "Write report"}}, nil
}

func (oneTask) MarkDone(context.Context, domain.Task) error { return nil }

func newHandler(t *testing.T) (focusin.CLIHandler, *memRecorder) {
	t.Helper()
	rec := &memRecorder{}
	clk := &stepClock{now: time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)}
	ctrl := service.NewSessionController(clk, &counterID{}, rec, cannedAdvisor{}, oneTask{}, nil, time.Second)
	return focusin.NewCLIHandler(usecase.NewInteractor(ctrl, clk)), rec
}

func TestScriptRunsStuckAndPivotCycle(t *testing.T) {
	handler, rec := newHandler(t)
	ctx := context.Background()
	if _, err := handler.Start(ctx, "report"); err != nil {
		t.Fatalf("start: %v", err)
	}

	script := strings.Join([]string{
		"// warm up",
		"suggest",
		"first #2 ~60",
		"stuck",
		"reason #1",
		"pivot #1",
		"done",
		"finish",
	}, "\n")
	out := &bytes.Buffer{}
	if err := handler.RunScript(ctx, focusin.ScriptIO{In: strings.NewReader(script), Out: out}); err != nil {
		t.Fatalf("run: %v", err)
	}

	text := out.String()
	for _, want := range []string{"first #2 Write one line", "cause #1 Too vague", "advisor: That happens.", "[executing] Write report > Write the title only", "[done]"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "line ") {
		t.Fatalf("unexpected command error:\n%s", text)
	}
	if got := handler.Current(ctx).Phase; got != "idle" {
		t.Fatalf("script end should close the session, got %s", got)
	}
	last := rec.types[len(rec.types)-1]
	if last != tracking.TypeSessionEnded {
		t.Fatalf("expected session to end last, got %s", last)
	}
}

func TestScriptPicksSuggestionWithEstimate(t *testing.T) {
	handler, rec := newHandler(t)
	ctx := context.Background()
	if _, err := handler.Start(ctx, "report"); err != nil {
		t.Fatalf("start: %v", err)
	}
	script := "suggest\nfirst #2 ~60\nstuck\nreason Too big\npivot #1 ~45\n"
	out := &bytes.Buffer{}
	if err := handler.RunScript(ctx, focusin.ScriptIO{In: strings.NewReader(script), Out: out}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out.String(), "line ") {
		t.Fatalf("unexpected command error:\n%s", out.String())
	}

	var started []tracking.MicroStarted
	var chosen tracking.PivotChosen
	for _, p := range rec.payloads {
		switch v := p.(type) {
		case tracking.MicroStarted:
			started = append(started, v)
		case tracking.PivotChosen:
			chosen = v
		}
	}
	if len(started) != 2 {
		t.Fatalf("expected two started actions, got %+v", started)
	}
	if started[0].MicroAction != "Write one line" || started[0].EstimatedSeconds == nil || *started[0].EstimatedSeconds != 60 {
		t.Fatalf("first pick lost label or estimate: %+v", started[0])
	}
	if started[1].MicroAction != "Write the title only" || started[1].EstimatedSeconds == nil || *started[1].EstimatedSeconds != 45 {
		t.Fatalf("pivot pick lost label or estimate: %+v", started[1])
	}
	if chosen.ChosenPivot != "Write the title only" || chosen.PivotSource != tracking.SourceAdvisor {
		t.Fatalf("unexpected pivot: %+v", chosen)
	}
}

func TestScriptExitsOpenSessionAtEOF(t *testing.T) {
	handler, rec := newHandler(t)
	ctx := context.Background()
	if _, err := handler.Start(ctx, "report"); err != nil {
		t.Fatalf("start: %v", err)
	}
	out := &bytes.Buffer{}
	if err := handler.RunScript(ctx, focusin.ScriptIO{In: strings.NewReader("first Open editor\n"), Out: out}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !containsType(rec.types, tracking.TypeAbandonExit) {
		t.Fatalf("expected abandon on implicit exit, got %v", rec.types)
	}
}

func TestScriptReportsBadCommandsAndContinues(t *testing.T) {
	handler, _ := newHandler(t)
	ctx := context.Background()
	if _, err := handler.Start(ctx, "report"); err != nil {
		t.Fatalf("start: %v", err)
	}
	out := &bytes.Buffer{}
	script := "jump\ndone\nfirst Open editor\nexit\nfirst ignored\n"
	if err := handler.RunScript(ctx, focusin.ScriptIO{In: strings.NewReader(script), Out: out}); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, `line 1: unknown command "jump"`) {
		t.Fatalf("expected unknown command report:\n%s", text)
	}
	if !strings.Contains(text, "line 2: illegal transition") {
		t.Fatalf("expected illegal transition report:\n%s", text)
	}
	if strings.Contains(text, "ignored") {
		t.Fatalf("commands after exit must not run:\n%s", text)
	}
}

func containsType(types []tracking.EventType, want tracking.EventType) bool {
	for _, got := range types {
		if got == want {
			return true
		}
	}
	return false
}
