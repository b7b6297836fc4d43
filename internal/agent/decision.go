package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"vidsage/internal/llm"
	"vidsage/internal/logging"
	"vidsage/internal/tools"
)

const decisionSystemPrompt = `You plan tool usage for an assistant. Given a structured intent, known
facts, and a tool catalog, produce a JSON plan:
{
  "steps": [
    {
      "step_number": 1,
      "action_type": "tool_call | retrieval_query | respond",
      "tool_name": "t_...",
      "parameters": {"arg": value or "RESULT_FROM_STEP_<n>"},
      "reasoning": "why this step"
    }
  ],
  "fallbacks": [
    {"for_step": 2, "condition": "what failure this covers",
     "steps": [ ...same step shape... ]}
  ]
}
Rules: step_number starts at 1 and is contiguous. A parameter may be the
exact string RESULT_FROM_STEP_<n> to consume the result of an earlier
step; n must be smaller than the consuming step's number. Only use tool
names from the catalog. retrieval_query steps take a "query" parameter
and search indexed transcripts. respond steps take a "message"
parameter. Attach a fallback for any step with a side effect.`

type planPayload struct {
	Steps     []stepPayload     `json:"steps"`
	Fallbacks []fallbackPayload `json:"fallbacks"`
}

type stepPayload struct {
	StepNumber int            `json:"step_number"`
	ActionType string         `json:"action_type"`
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
	Reasoning  string         `json:"reasoning"`
}

type fallbackPayload struct {
	ForStep   int           `json:"for_step"`
	Condition string        `json:"condition"`
	Steps     []stepPayload `json:"steps"`
}

// Decider turns an intent plus facts into a validated plan against the
// tool catalog.
type Decider struct {
	llm llm.Completer
	log *zap.SugaredLogger
}

// NewDecider builds a decision stage on the given completion client.
func NewDecider(completer llm.Completer) *Decider {
	return &Decider{
		llm: completer,
		log: logging.Get(logging.CategoryDecide),
	}
}

// Decide produces a plan and validates it before anything executes.
// Validation failures are returned as ErrUnknownTool or ErrPlanOrdering
// and the plan must not be run.
func (d *Decider) Decide(ctx context.Context, intent *Intent, facts []Fact, catalog []tools.Descriptor) (*Plan, error) {
	// Present the catalog best-fit first so the planner's tool choice
	// follows the deterministic tie-break, not catalog order.
	prompt := buildDecisionPrompt(intent, facts, rankDescriptors(intent, catalog))
	raw, err := d.llm.Complete(ctx, decisionSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: decision: %v", ErrExternalService, err)
	}

	var payload planPayload
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: decision returned malformed plan: %v", ErrExternalService, err)
	}

	plan := &Plan{
		Steps:     make([]Step, 0, len(payload.Steps)),
		Fallbacks: make([]Fallback, 0, len(payload.Fallbacks)),
	}
	for _, s := range payload.Steps {
		plan.Steps = append(plan.Steps, decodeStep(s))
	}
	for _, f := range payload.Fallbacks {
		fb := Fallback{ForStep: f.ForStep, Condition: f.Condition}
		for _, s := range f.Steps {
			fb.Steps = append(fb.Steps, decodeStep(s))
		}
		plan.Fallbacks = append(plan.Fallbacks, fb)
	}

	if err := ValidatePlan(plan, catalog); err != nil {
		return nil, err
	}
	annotateFallbackCoverage(plan, catalog)

	d.log.Debugw("plan validated",
		"steps", len(plan.Steps),
		"fallbacks", len(plan.Fallbacks),
		"warnings", len(plan.SelfCheck.Warnings))
	return plan, nil
}

func decodeStep(s stepPayload) Step {
	params := make(map[string]ParamValue, len(s.Parameters))
	for k, v := range s.Parameters {
		params[k] = ParseParamValue(v)
	}
	return Step{
		Number:    s.StepNumber,
		Action:    ActionType(s.ActionType),
		ToolName:  s.ToolName,
		Params:    params,
		Reasoning: s.Reasoning,
	}
}

// ValidatePlan rejects plans before execution: unknown tool names,
// forward or self references, and non-contiguous step numbering. No
// side-effecting call may run on an invalid plan.
func ValidatePlan(plan *Plan, catalog []tools.Descriptor) error {
	if len(plan.Steps) == 0 {
		return fmt.Errorf("%w: plan has no steps", ErrPlanOrdering)
	}

	known := make(map[string]bool, len(catalog))
	for _, d := range catalog {
		known[d.Name] = true
	}

	for i, step := range plan.Steps {
		if step.Number != i+1 {
			return fmt.Errorf("%w: step at position %d numbered %d", ErrPlanOrdering, i+1, step.Number)
		}
		switch step.Action {
		case ActionToolCall:
			if !known[step.ToolName] {
				return fmt.Errorf("%w: step %d names %q", ErrUnknownTool, step.Number, step.ToolName)
			}
		case ActionRetrieval, ActionRespond:
		default:
			return fmt.Errorf("%w: step %d has action %q", ErrPlanOrdering, step.Number, step.Action)
		}
		for _, ref := range step.References() {
			if ref < 1 || ref >= step.Number {
				return fmt.Errorf("%w: step %d references step %d", ErrPlanOrdering, step.Number, ref)
			}
		}
	}

	for _, fb := range plan.Fallbacks {
		if fb.ForStep < 1 || fb.ForStep > len(plan.Steps) {
			return fmt.Errorf("%w: fallback for unknown step %d", ErrPlanOrdering, fb.ForStep)
		}
		for _, step := range fb.Steps {
			if step.Action == ActionToolCall && !known[step.ToolName] {
				return fmt.Errorf("%w: fallback step names %q", ErrUnknownTool, step.ToolName)
			}
		}
	}
	return nil
}

// annotateFallbackCoverage records, per plan self-check, whether every
// side-effecting step carries a fallback. Missing coverage is a warning,
// not a validation failure.
func annotateFallbackCoverage(plan *Plan, catalog []tools.Descriptor) {
	idempotent := make(map[string]bool, len(catalog))
	for _, d := range catalog {
		idempotent[d.Name] = d.Idempotent
	}

	covered := true
	for _, step := range plan.Steps {
		if step.Action != ActionToolCall || idempotent[step.ToolName] {
			continue
		}
		if plan.FallbackFor(step.Number) == nil {
			covered = false
			plan.SelfCheck.Warnings = append(plan.SelfCheck.Warnings,
				fmt.Sprintf("step %d (%s) has a side effect but no fallback", step.Number, step.ToolName))
		}
	}
	plan.SelfCheck.FallbackCovered = covered
}

// SelectTool breaks ties among candidate tools for one intent: prefer
// the tool whose schema names the most extracted entities, then the
// tool with fewer required parameters, then lexicographic name for
// determinism.
func SelectTool(intent *Intent, candidates []tools.Descriptor) (tools.Descriptor, error) {
	if len(candidates) == 0 {
		return tools.Descriptor{}, fmt.Errorf("%w: no candidate tools", ErrUnknownTool)
	}
	return rankDescriptors(intent, candidates)[0], nil
}

// rankDescriptors orders candidates best-fit first: most entity overlap
// with the schema, then fewer required parameters, then name.
func rankDescriptors(intent *Intent, candidates []tools.Descriptor) []tools.Descriptor {
	overlap := func(d tools.Descriptor) int {
		n := 0
		for name := range d.Schema.Properties {
			if _, ok := intent.Entities[name]; ok {
				n++
			}
		}
		return n
	}

	ranked := make([]tools.Descriptor, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		oi, oj := overlap(ranked[i]), overlap(ranked[j])
		if oi != oj {
			return oi > oj
		}
		ri, rj := ranked[i].RequiredCount(), ranked[j].RequiredCount()
		if ri != rj {
			return ri < rj
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

func buildDecisionPrompt(intent *Intent, facts []Fact, catalog []tools.Descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Intent category: %s\nThought type: %s\nRequires tools: %t\n",
		intent.Category, intent.ThoughtType, intent.RequiresTools)
	if len(intent.Entities) > 0 {
		b.WriteString("Entities:\n")
		keys := make([]string, 0, len(intent.Entities))
		for k := range intent.Entities {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, intent.Entities[k])
		}
	}
	if len(facts) > 0 {
		b.WriteString("Known facts:\n")
		for _, f := range facts {
			fmt.Fprintf(&b, "- %s\n", f.Content)
		}
	}
	b.WriteString("Tool catalog:\n")
	for _, d := range catalog {
		fmt.Fprintf(&b, "- %s: %s (required: %s)\n",
			d.Name, d.Description, strings.Join(d.Schema.Required, ", "))
	}
	return b.String()
}
