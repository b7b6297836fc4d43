package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vidsage/internal/tools"
)

type stubRetriever struct {
	windows []ContextWindow
	err     error
	calls   int
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, k int, sourceFilter string) ([]ContextWindow, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.windows, nil
}

func newExecutor(t *testing.T, extra ...*tools.Tool) (*Executor, *tools.Registry) {
	t.Helper()
	r := tools.NewRegistry()
	tools.RegisterArithmetic(r)
	tools.RegisterAlgebra(r)
	for _, tool := range extra {
		r.MustRegister(tool)
	}
	return NewExecutor(r, &stubRetriever{}, time.Second), r
}

func TestExecuteChainedPlan(t *testing.T) {
	e, _ := newExecutor(t)
	plan := &Plan{Steps: []Step{
		{Number: 1, Action: ActionToolCall, ToolName: "t_factorial", Params: map[string]ParamValue{"n": Lit(5)}},
		{Number: 2, Action: ActionToolCall, ToolName: "t_fibonacci", Params: map[string]ParamValue{"n": Lit(5)}},
		{Number: 3, Action: ActionToolCall, ToolName: "t_multiply", Params: map[string]ParamValue{"a": Ref(1), "b": Ref(2)}},
	}}

	budget := NewBudget(50)
	res, err := e.Execute(context.Background(), plan, ExecOptions{}, budget)
	if err != nil {
		t.Fatal(err)
	}
	if res.Partial {
		t.Fatal("unexpected partial result")
	}
	if res.Answer.Text != "600" {
		t.Fatalf("answer = %q, want 600", res.Answer.Text)
	}
	if budget.Used() != 3 {
		t.Fatalf("iterations = %d, want 3", budget.Used())
	}
	for i, want := range []string{"120", "5", "600"} {
		if res.Trace[i].Status != StepOK || res.Trace[i].Result != want {
			t.Fatalf("trace[%d] = %+v, want ok %q", i, res.Trace[i], want)
		}
	}
}

func TestExecuteSkipsDependentOfFailedStep(t *testing.T) {
	e, _ := newExecutor(t)
	plan := &Plan{Steps: []Step{
		{Number: 1, Action: ActionToolCall, ToolName: "t_divide", Params: map[string]ParamValue{"a": Lit(1), "b": Lit(0)}},
		{Number: 2, Action: ActionToolCall, ToolName: "t_multiply", Params: map[string]ParamValue{"a": Ref(1), "b": Lit(2)}},
	}}

	res, err := e.Execute(context.Background(), plan, ExecOptions{}, NewBudget(50))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Partial {
		t.Fatal("expected partial result")
	}
	if res.Trace[0].Status != StepFailed {
		t.Fatalf("trace[0] = %+v, want failed", res.Trace[0])
	}
	if res.Trace[1].Status != StepSkipped {
		t.Fatalf("trace[1] = %+v, want skipped", res.Trace[1])
	}
}

func TestExecuteFailedNonFinalStepWithoutDependentsContinues(t *testing.T) {
	e, _ := newExecutor(t)
	plan := &Plan{Steps: []Step{
		{Number: 1, Action: ActionToolCall, ToolName: "t_divide", Params: map[string]ParamValue{"a": Lit(1), "b": Lit(0)}},
		{Number: 2, Action: ActionToolCall, ToolName: "t_add", Params: map[string]ParamValue{"a": Lit(2), "b": Lit(3)}},
	}}

	res, err := e.Execute(context.Background(), plan, ExecOptions{}, NewBudget(50))
	if err != nil {
		t.Fatal(err)
	}
	if res.Partial {
		t.Fatal("independent steps should still run after an unrelated failure")
	}
	if res.Trace[1].Status != StepOK || res.Trace[1].Result != "5" {
		t.Fatalf("trace[1] = %+v, want ok 5", res.Trace[1])
	}
	if res.Answer.Text != "5" {
		t.Fatalf("answer = %q, want 5", res.Answer.Text)
	}
}

func TestExecuteRetriesIdempotentOnce(t *testing.T) {
	attempts := 0
	flaky := &tools.Tool{
		Name:        "t_flaky_read",
		Description: "fails on the first call only",
		Category:    tools.CategoryGeneral,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			attempts++
			if attempts == 1 {
				return "", fmt.Errorf("transient")
			}
			return "recovered", nil
		},
	}
	e, _ := newExecutor(t, flaky)
	plan := &Plan{Steps: []Step{
		{Number: 1, Action: ActionToolCall, ToolName: "t_flaky_read", Params: map[string]ParamValue{}},
	}}

	res, err := e.Execute(context.Background(), plan, ExecOptions{}, NewBudget(50))
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
	if res.Trace[0].Status != StepOK || res.Trace[0].Result != "recovered" {
		t.Fatalf("trace[0] = %+v, want ok recovered", res.Trace[0])
	}
}

func TestExecuteNeverRetriesSideEffects(t *testing.T) {
	attempts := 0
	send := &tools.Tool{
		Name:        "t_flaky_send",
		Description: "side-effecting send that always fails",
		Category:    tools.CategoryNotify,
		Idempotent:  false,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			attempts++
			return "", fmt.Errorf("smtp down")
		},
	}
	e, _ := newExecutor(t, send)
	plan := &Plan{Steps: []Step{
		{Number: 1, Action: ActionToolCall, ToolName: "t_flaky_send", Params: map[string]ParamValue{}},
	}}

	if _, err := e.Execute(context.Background(), plan, ExecOptions{}, NewBudget(50)); err != nil {
		t.Fatal(err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry for side effects)", attempts)
	}
}

func TestExecuteFallbackSubstitution(t *testing.T) {
	send := &tools.Tool{
		Name:        "t_broken_send",
		Description: "always fails",
		Category:    tools.CategoryNotify,
		Idempotent:  false,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "", fmt.Errorf("unreachable")
		},
	}
	e, _ := newExecutor(t, send)
	plan := &Plan{
		Steps: []Step{
			{Number: 1, Action: ActionToolCall, ToolName: "t_broken_send", Params: map[string]ParamValue{"message": Lit("hi")}},
			{Number: 2, Action: ActionRespond, Params: map[string]ParamValue{"message": Ref(1)}},
		},
		Fallbacks: []Fallback{
			{ForStep: 1, Condition: "delivery failure", Steps: []Step{
				{Number: 1, Action: ActionRespond, Params: map[string]ParamValue{"message": Lit("queued for later delivery")}},
			}},
		},
	}

	budget := NewBudget(50)
	res, err := e.Execute(context.Background(), plan, ExecOptions{}, budget)
	if err != nil {
		t.Fatal(err)
	}
	if res.Partial {
		t.Fatal("fallback should have recovered the run")
	}
	// Step 2 consumes step 1's substituted result.
	if res.Answer.Text != "queued for later delivery" {
		t.Fatalf("answer = %q", res.Answer.Text)
	}
	// Primary attempt, fallback step, dependent step.
	if budget.Used() != 3 {
		t.Fatalf("iterations = %d, want 3", budget.Used())
	}
}

func TestExecuteIterationCeiling(t *testing.T) {
	e, _ := newExecutor(t)
	steps := make([]Step, 5)
	for i := range steps {
		steps[i] = Step{
			Number: i + 1,
			Action: ActionToolCall, ToolName: "t_add",
			Params: map[string]ParamValue{"a": Lit(i), "b": Lit(1)},
		}
	}
	plan := &Plan{Steps: steps}

	res, err := e.Execute(context.Background(), plan, ExecOptions{}, NewBudget(3))
	if !errors.Is(err, ErrIterationLimit) {
		t.Fatalf("expected ErrIterationLimit, got %v", err)
	}
	if len(res.Trace) == 0 {
		t.Fatal("partial trace must not be empty")
	}
	if !res.Partial {
		t.Fatal("ceiling hit must be reported as partial")
	}
}

func TestExecuteRetrievalStep(t *testing.T) {
	r := tools.NewRegistry()
	ret := &stubRetriever{windows: []ContextWindow{
		{SourceID: "vid1", Text: "first passage", Score: 0.9},
		{SourceID: "vid1", Text: "second passage", Score: 0.5},
	}}
	e := NewExecutor(r, ret, time.Second)
	plan := &Plan{Steps: []Step{
		{Number: 1, Action: ActionRetrieval, Params: map[string]ParamValue{"query": Lit("what is discussed")}},
	}}

	res, err := e.Execute(context.Background(), plan, ExecOptions{TopK: 2, SourceFilter: "vid1"}, NewBudget(50))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Contexts) != 2 {
		t.Fatalf("contexts = %d, want 2", len(res.Contexts))
	}
	if res.Trace[0].Status != StepOK {
		t.Fatalf("trace[0] = %+v", res.Trace[0])
	}
}

func TestExecuteCancellationStopsScheduling(t *testing.T) {
	e, _ := newExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := &Plan{Steps: []Step{
		{Number: 1, Action: ActionToolCall, ToolName: "t_add", Params: map[string]ParamValue{"a": Lit(1), "b": Lit(1)}},
	}}
	res, err := e.Execute(ctx, plan, ExecOptions{}, NewBudget(50))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trace) != 0 {
		t.Fatalf("no steps should run after cancellation, got %d", len(res.Trace))
	}
	if !res.Partial {
		t.Fatal("cancelled run must be partial")
	}
	if !res.Canceled {
		t.Fatal("cancelled run must be marked canceled, not a broken dependency")
	}
}
