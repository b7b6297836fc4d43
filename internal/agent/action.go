package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"vidsage/internal/logging"
	"vidsage/internal/tools"
)

// Retriever is the search surface the action stage dispatches
// retrieval_query steps to.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, sourceFilter string) ([]ContextWindow, error)
}

// ExecOptions carries per-request execution settings.
type ExecOptions struct {
	TopK         int
	SourceFilter string
}

// ExecResult is the raw output of running one plan. Partial means not
// every step ran; Canceled narrows that to caller cancellation rather
// than a broken dependency.
type ExecResult struct {
	Answer   FinalAnswer
	Contexts []ContextWindow
	Trace    ExecutionTrace
	Partial  bool
	Canceled bool
}

// StepObserver is notified after each tool call, for instrumentation.
type StepObserver func(tool string, status StepStatus, elapsed time.Duration)

// Executor runs validated plans step by step, strictly in order. Steps
// within one plan are never reordered or parallelized; placeholder
// resolution depends on it.
type Executor struct {
	registry    *tools.Registry
	retriever   Retriever
	stepTimeout time.Duration
	observe     StepObserver
	log         *zap.SugaredLogger
}

// NewExecutor builds an action stage.
func NewExecutor(registry *tools.Registry, retriever Retriever, stepTimeout time.Duration) *Executor {
	return &Executor{
		registry:    registry,
		retriever:   retriever,
		stepTimeout: stepTimeout,
		log:         logging.Get(logging.CategoryAction),
	}
}

// SetObserver installs an instrumentation hook for tool calls.
func (e *Executor) SetObserver(fn StepObserver) {
	e.observe = fn
}

// Execute runs the plan. Each executed step spends one iteration from
// the budget; fallback steps count as additional iterations. Skipped
// steps do not count. A dependent step whose input failed is marked
// skipped and terminates the run as partial.
func (e *Executor) Execute(ctx context.Context, plan *Plan, opts ExecOptions, budget *Budget) (*ExecResult, error) {
	res := &ExecResult{}
	status := make(map[int]StepStatus, len(plan.Steps))
	results := make(map[int]string, len(plan.Steps))

	for _, step := range plan.Steps {
		if ctx.Err() != nil {
			res.Partial = true
			res.Canceled = true
			e.log.Infow("cancellation observed, no further steps scheduled", "next_step", step.Number)
			break
		}

		args, badRef, err := resolveParams(step, status, results)
		if err != nil {
			// The producing step did not succeed; this step cannot run.
			res.Trace = append(res.Trace, TraceEntry{
				Step:   step.Number,
				Status: StepSkipped,
				Err:    err.Error(),
			})
			status[step.Number] = StepSkipped
			res.Partial = true
			e.log.Warnw("step skipped, dependency unavailable",
				"step", step.Number, "depends_on", badRef)
			break
		}

		if err := budget.Spend(); err != nil {
			res.Partial = true
			return res, err
		}

		entry := e.runStep(ctx, step, args, opts, res)
		res.Trace = append(res.Trace, entry)
		status[step.Number] = entry.Status
		if entry.Status == StepOK {
			results[step.Number] = entry.Result
			continue
		}

		// Primary attempt failed; try the fallback if one covers it.
		fb := plan.FallbackFor(step.Number)
		if fb == nil {
			continue
		}
		e.log.Infow("substituting fallback", "step", step.Number, "condition", fb.Condition)
		ok := true
		fbResults := make(map[int]string, len(fb.Steps))
		fbStatus := make(map[int]StepStatus, len(fb.Steps))
		var last string
		for _, fstep := range fb.Steps {
			if err := budget.Spend(); err != nil {
				res.Partial = true
				return res, err
			}
			fargs, _, ferr := resolveParams(fstep, fbStatus, fbResults)
			if ferr != nil {
				ok = false
				break
			}
			fentry := e.runStep(ctx, fstep, fargs, opts, res)
			fentry.Step = step.Number
			res.Trace = append(res.Trace, fentry)
			fbStatus[fstep.Number] = fentry.Status
			if fentry.Status != StepOK {
				ok = false
				break
			}
			fbResults[fstep.Number] = fentry.Result
			last = fentry.Result
		}
		if ok && len(fb.Steps) > 0 {
			status[step.Number] = StepOK
			results[step.Number] = last
		}
	}

	res.Answer = ShapeAnswer(plan.Steps, res.Trace)
	return res, nil
}

// runStep dispatches one step and records elapsed time. A failed
// idempotent call is retried once; side-effecting calls never are.
func (e *Executor) runStep(ctx context.Context, step Step, args map[string]any, opts ExecOptions, res *ExecResult) TraceEntry {
	start := time.Now()
	output, err := e.dispatch(ctx, step, args, opts, res)
	if err != nil && e.retryable(step) && ctx.Err() == nil {
		e.log.Debugw("retrying idempotent step", "step", step.Number, "error", err)
		output, err = e.dispatch(ctx, step, args, opts, res)
	}
	elapsed := time.Since(start)

	entry := TraceEntry{
		Step:    step.Number,
		Elapsed: elapsed,
	}
	if err != nil {
		entry.Status = StepFailed
		entry.Err = err.Error()
		e.log.Warnw("step failed", "step", step.Number, "action", step.Action, "error", err)
	} else {
		entry.Status = StepOK
		entry.Result = output
		e.log.Debugw("step ok", "step", step.Number, "action", step.Action, "elapsed", elapsed)
	}
	if e.observe != nil && step.Action == ActionToolCall {
		e.observe(step.ToolName, entry.Status, elapsed)
	}
	return entry
}

func (e *Executor) dispatch(ctx context.Context, step Step, args map[string]any, opts ExecOptions, res *ExecResult) (string, error) {
	stepCtx := ctx
	if e.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
	}

	switch step.Action {
	case ActionToolCall:
		result, err := e.registry.Execute(stepCtx, step.ToolName, args)
		if err != nil {
			if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: %s timed out", ErrExternalService, step.ToolName)
			}
			return "", err
		}
		return result.Output, nil

	case ActionRetrieval:
		query, _ := args["query"].(string)
		if query == "" {
			return "", fmt.Errorf("%w: retrieval step missing query", ErrInvalidInput)
		}
		windows, err := e.retriever.Retrieve(stepCtx, query, opts.TopK, opts.SourceFilter)
		if err != nil {
			return "", fmt.Errorf("%w: retrieval: %v", ErrExternalService, err)
		}
		res.Contexts = append(res.Contexts, windows...)
		texts := make([]string, len(windows))
		for i, w := range windows {
			texts[i] = w.Text
		}
		return strings.Join(texts, "\n"), nil

	case ActionRespond:
		msg, _ := args["message"].(string)
		return msg, nil

	default:
		return "", fmt.Errorf("%w: action %q", ErrPlanOrdering, step.Action)
	}
}

// retryable reports whether a failed step may be re-attempted once.
// Retrieval queries are read-only; tool calls only when the tool is
// flagged idempotent.
func (e *Executor) retryable(step Step) bool {
	switch step.Action {
	case ActionRetrieval:
		return true
	case ActionToolCall:
		tool := e.registry.Get(step.ToolName)
		return tool != nil && tool.Idempotent
	}
	return false
}

// resolveParams substitutes recorded results for step references. It
// fails when a referenced step has no ok result, reporting which
// reference broke.
func resolveParams(step Step, status map[int]StepStatus, results map[int]string) (map[string]any, int, error) {
	args := make(map[string]any, len(step.Params))
	for name, p := range step.Params {
		switch p.Kind {
		case ParamLiteral:
			args[name] = p.Literal
		case ParamReference:
			if status[p.Step] != StepOK {
				return nil, p.Step, fmt.Errorf("%w: step %d needs result of step %d (status %q)",
					ErrUnresolvedReference, step.Number, p.Step, status[p.Step])
			}
			args[name] = results[p.Step]
		}
	}
	return args, 0, nil
}
