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

// FactStore is the session-scoped memory the orchestrator reads and
// appends to. Appends must be safe under concurrency; reads and writes
// do not count as iterations.
type FactStore interface {
	Append(ctx context.Context, sessionID string, f Fact) error
	Query(ctx context.Context, sessionID string, k int) ([]Fact, error)
	Preferences(ctx context.Context, sessionID string) (map[string]string, error)
}

// Settings bound one orchestration run.
type Settings struct {
	MaxIterations  int
	FactQueryLimit int
	DefaultTopK    int
}

// Orchestrator composes perception, memory, decision, and action for
// each request. One request owns its intent, plan, and trace; nothing
// is shared across concurrent requests except the injected stores.
type Orchestrator struct {
	perceiver *Perceiver
	decider   *Decider
	executor  *Executor
	memory    FactStore
	registry  *tools.Registry
	settings  Settings
	log       *zap.SugaredLogger
}

// NewOrchestrator wires the four stages around shared services.
func NewOrchestrator(p *Perceiver, d *Decider, e *Executor, memory FactStore, registry *tools.Registry, settings Settings) *Orchestrator {
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = 50
	}
	if settings.FactQueryLimit <= 0 {
		settings.FactQueryLimit = 5
	}
	if settings.DefaultTopK <= 0 {
		settings.DefaultTopK = 3
	}
	return &Orchestrator{
		perceiver: p,
		decider:   d,
		executor:  e,
		memory:    memory,
		registry:  registry,
		settings:  settings,
		log:       logging.Get(logging.CategoryAgent),
	}
}

// Handle runs one request to a terminal state. Iterations count one per
// perception call, one per decision call, and one per executed step;
// the ceiling aborts the request with the partial trace attached.
func (o *Orchestrator) Handle(ctx context.Context, req Request) Outcome {
	budget := NewBudget(o.settings.MaxIterations)
	state := StateStarted
	transition := func(next State) {
		o.log.Debugw("state transition", "request_id", req.ID, "from", state, "to", next)
		state = next
	}
	o.log.Infow("request started", "request_id", req.ID, "session_id", req.SessionID)

	priorFacts, err := o.memory.Query(ctx, req.SessionID, o.settings.FactQueryLimit)
	if err != nil {
		o.log.Warnw("fact query failed, continuing without memory", "error", err)
	}
	if len(req.Preferences) == 0 {
		if prefs, err := o.memory.Preferences(ctx, req.SessionID); err == nil {
			req.Preferences = prefs
		}
	}

	transition(StatePerceiving)
	if err := budget.Spend(); err != nil {
		return o.fail(req, budget, nil, err, "iteration ceiling reached before perception")
	}
	intent, remember, err := o.perceiver.Perceive(ctx, req, priorFacts)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return o.fail(req, budget, nil, err, "the request was empty or malformed; please provide a question")
		}
		return o.fail(req, budget, nil, err, "could not interpret the request")
	}
	o.rememberAll(ctx, req.SessionID, "perception", intent.Confidence, remember)

	if intent.ClarificationNeeded || !intent.SelfCheck.ClarityVerified {
		transition(StateClarifying)
		o.log.Infow("clarification required", "request_id", req.ID,
			"reason", intent.SelfCheck.Reasoning, "iterations", budget.Used())
		return Outcome{
			State:      state,
			Message:    clarifyMessage(intent),
			Iterations: budget.Used(),
			Err:        ErrClarificationNeeded,
		}
	}

	if !intent.RequiresTools {
		answer := answerFromFacts(priorFacts)
		o.log.Infow("answered from memory", "request_id", req.ID, "iterations", budget.Used())
		return Outcome{
			State:      StateCompleted,
			Message:    "answered from remembered context",
			Answer:     answer,
			Values:     []string{answer},
			Iterations: budget.Used(),
		}
	}

	transition(StateDeciding)
	if err := budget.Spend(); err != nil {
		return o.fail(req, budget, nil, err, "iteration ceiling reached before planning")
	}
	plan, err := o.decider.Decide(ctx, intent, priorFacts, o.registry.Descriptors())
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownTool):
			return o.fail(req, budget, nil, err, "the plan referenced an unavailable tool")
		case errors.Is(err, ErrPlanOrdering):
			return o.fail(req, budget, nil, err, "the plan was not well ordered")
		default:
			return o.fail(req, budget, nil, err, "could not produce a plan")
		}
	}

	transition(StateExecuting)
	opts := ExecOptions{TopK: req.TopK, SourceFilter: req.SourceFilter}
	if opts.TopK <= 0 {
		opts.TopK = o.settings.DefaultTopK
	}
	res, err := o.executor.Execute(ctx, plan, opts, budget)
	if err != nil {
		out := o.fail(req, budget, res.Trace, err, "the request exceeded its iteration ceiling")
		out.Values = res.Answer.Values
		out.Answer = res.Answer.Text
		return out
	}

	if res.Answer.Text != "" {
		o.rememberAll(ctx, req.SessionID, "action", 0.8,
			[]string{fmt.Sprintf("Q: %s A: %s", strings.TrimSpace(req.Text), res.Answer.Text)})
	}

	out := Outcome{
		Answer:     res.Answer.Text,
		Values:     res.Answer.Values,
		Contexts:   res.Contexts,
		Trace:      res.Trace,
		Iterations: budget.Used(),
	}
	switch {
	case res.Canceled:
		out.State = StatePartial
		out.Message = "the request was canceled before all steps ran"
		out.Err = ctx.Err()
	case res.Partial:
		out.State = StatePartial
		out.Message = "some steps could not run; partial results included"
		out.Err = ErrUnresolvedReference
	case anyFailed(res.Trace):
		if len(res.Answer.Values) == 0 {
			out.State = StateFailed
			out.Message = "all steps failed"
		} else {
			out.State = StatePartial
			out.Message = "some steps failed; partial results included"
		}
	default:
		out.State = StateCompleted
		out.Message = "completed"
	}
	o.log.Infow("request finished", "request_id", req.ID,
		"state", out.State, "iterations", out.Iterations, "steps", len(res.Trace))
	return out
}

func (o *Orchestrator) fail(req Request, budget *Budget, trace ExecutionTrace, err error, msg string) Outcome {
	o.log.Warnw("request failed", "request_id", req.ID, "error", err, "iterations", budget.Used())
	return Outcome{
		State:      StateFailed,
		Message:    msg,
		Trace:      trace,
		Iterations: budget.Used(),
		Err:        err,
	}
}

func (o *Orchestrator) rememberAll(ctx context.Context, sessionID, source string, relevance float64, contents []string) {
	for _, content := range contents {
		if strings.TrimSpace(content) == "" {
			continue
		}
		fact := Fact{
			Content:   content,
			Timestamp: time.Now(),
			Source:    source,
			Relevance: relevance,
		}
		if err := o.memory.Append(ctx, sessionID, fact); err != nil {
			o.log.Warnw("fact append failed", "error", err)
		}
	}
}

func anyFailed(trace ExecutionTrace) bool {
	last := make(map[int]StepStatus)
	for _, e := range trace {
		last[e.Step] = e.Status
	}
	for _, s := range last {
		if s == StepFailed {
			return true
		}
	}
	return false
}

func clarifyMessage(intent *Intent) string {
	if intent.SelfCheck.Reasoning != "" && intent.SelfCheck.Reasoning != "intent validated" {
		return "please refine your question: " + intent.SelfCheck.Reasoning
	}
	return "please refine your question"
}

func answerFromFacts(facts []Fact) string {
	if len(facts) == 0 {
		return "no remembered context is available for this session"
	}
	limit := 3
	if len(facts) < limit {
		limit = len(facts)
	}
	parts := make([]string, limit)
	for i := 0; i < limit; i++ {
		parts[i] = facts[i].Content
	}
	return strings.Join(parts, "; ")
}
