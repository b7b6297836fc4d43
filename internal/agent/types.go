package agent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Request is one user question handed to the orchestrator. Immutable
// once created.
type Request struct {
	ID           string
	SessionID    string
	Text         string
	Preferences  map[string]string
	SourceFilter string
	TopK         int
}

// SelfCheck is the perception stage's own validation of its output.
type SelfCheck struct {
	ClarityVerified  bool   `json:"clarity_verified"`
	EntitiesComplete bool   `json:"entities_complete"`
	Reasoning        string `json:"reasoning"`
}

// Intent is the structured interpretation of a request. Produced once
// per request by perception, consumed only by the decision stage.
type Intent struct {
	Category            string            `json:"category"`
	Entities            map[string]string `json:"entities"`
	ThoughtType         string            `json:"thought_type"`
	RequiresTools       bool              `json:"requires_tools"`
	Confidence          float64           `json:"confidence"`
	ClarificationNeeded bool              `json:"clarification_needed"`
	SelfCheck           SelfCheck         `json:"self_check"`
}

// Fact is one remembered statement, scoped to a session. Appended,
// never mutated.
type Fact struct {
	Content   string
	Timestamp time.Time
	Source    string
	Relevance float64
}

// ActionType classifies what a plan step does.
type ActionType string

const (
	ActionToolCall  ActionType = "tool_call"
	ActionRetrieval ActionType = "retrieval_query"
	ActionRespond   ActionType = "respond"
)

// ParamKind distinguishes literal step parameters from references to
// earlier step results.
type ParamKind int

const (
	ParamLiteral ParamKind = iota
	ParamReference
)

// ParamValue is a tagged step parameter: either a literal value or a
// reference to the result of an earlier step.
type ParamValue struct {
	Kind    ParamKind
	Literal any
	Step    int
}

// Lit wraps a literal parameter value.
func Lit(v any) ParamValue { return ParamValue{Kind: ParamLiteral, Literal: v} }

// Ref builds a reference to the result of step n.
func Ref(n int) ParamValue { return ParamValue{Kind: ParamReference, Step: n} }

var resultRefPattern = regexp.MustCompile(`^RESULT_FROM_STEP_(\d+)$`)

// ParseParamValue converts a decoded JSON value into a ParamValue,
// recognising the RESULT_FROM_STEP_<n> convention the planner emits.
func ParseParamValue(v any) ParamValue {
	if s, ok := v.(string); ok {
		if m := resultRefPattern.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				return Ref(n)
			}
		}
	}
	return Lit(v)
}

// Step is one unit of a plan.
type Step struct {
	Number    int
	Action    ActionType
	ToolName  string
	Params    map[string]ParamValue
	Reasoning string
}

// References returns the step numbers this step's parameters refer to.
func (s Step) References() []int {
	var refs []int
	for _, p := range s.Params {
		if p.Kind == ParamReference {
			refs = append(refs, p.Step)
		}
	}
	return refs
}

// Fallback is an alternative step sequence used when the named step
// fails. Consulted only on failure of ForStep.
type Fallback struct {
	ForStep   int
	Condition string
	Steps     []Step
}

// PlanCheck records the decision stage's validation notes.
type PlanCheck struct {
	FallbackCovered bool
	Warnings        []string
}

// Plan is an ordered, validated sequence of steps.
type Plan struct {
	Steps     []Step
	Fallbacks []Fallback
	SelfCheck PlanCheck
}

// FallbackFor returns the fallback attached to a step, if any.
func (p *Plan) FallbackFor(step int) *Fallback {
	for i := range p.Fallbacks {
		if p.Fallbacks[i].ForStep == step {
			return &p.Fallbacks[i]
		}
	}
	return nil
}

// StepStatus is the recorded outcome of one executed step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// TraceEntry is one row of the execution trace.
type TraceEntry struct {
	Step    int
	Status  StepStatus
	Result  string
	Err     string
	Elapsed time.Duration
}

// ExecutionTrace grows monotonically during execution and is immutable
// once the request completes.
type ExecutionTrace []TraceEntry

// Entry returns the trace entry for a step number, or nil.
func (t ExecutionTrace) Entry(step int) *TraceEntry {
	for i := range t {
		if t[i].Step == step {
			return &t[i]
		}
	}
	return nil
}

// ContextWindow is one retrieved, context-expanded passage.
type ContextWindow struct {
	SourceID string  `json:"source_id"`
	Text     string  `json:"text"`
	Start    float64 `json:"offset"`
	End      float64 `json:"end"`
	Score    float64 `json:"score"`
}

// State tracks a request through the orchestrator.
type State string

const (
	StateStarted    State = "STARTED"
	StatePerceiving State = "PERCEIVING"
	StateClarifying State = "CLARIFYING"
	StateDeciding   State = "DECIDING"
	StateExecuting  State = "EXECUTING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
	StatePartial    State = "PARTIAL"
)

// Terminal reports whether a state ends the request.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StatePartial, StateClarifying:
		return true
	}
	return false
}

// FinalAnswer is the shaped result of an execution.
type FinalAnswer struct {
	Values []string
	Text   string
}

// Outcome is what the orchestrator returns for one request.
type Outcome struct {
	State      State
	Message    string
	Answer     string
	Values     []string
	Contexts   []ContextWindow
	Trace      ExecutionTrace
	Iterations int
	Err        error
}

// Budget counts iterations against a hard ceiling. One iteration is a
// perception call, a decision call, or an executed step.
type Budget struct {
	max  int
	used int
}

// NewBudget creates a budget with the given ceiling.
func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Spend consumes one iteration, failing once the ceiling is exceeded.
func (b *Budget) Spend() error {
	b.used++
	if b.used > b.max {
		return fmt.Errorf("%w: %d iterations (ceiling %d)", ErrIterationLimit, b.used, b.max)
	}
	return nil
}

// Used returns the iterations consumed so far.
func (b *Budget) Used() int { return b.used }

// Remaining returns how many iterations are left.
func (b *Budget) Remaining() int { return b.max - b.used }
