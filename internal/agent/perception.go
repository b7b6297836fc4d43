package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vidsage/internal/llm"
	"vidsage/internal/logging"
)

const perceptionSystemPrompt = `You interpret a user's request for an assistant that can query indexed
video transcripts and run deterministic calculation tools.
Respond with a single JSON object, no prose, with this shape:
{
  "category": "calculation | transcript_question | preference | other",
  "entities": {"name": "value", ...},
  "thought_type": "short label for the kind of reasoning needed",
  "requires_tools": true or false,
  "confidence": 0.0 to 1.0,
  "clarification_needed": true or false,
  "facts_to_remember": ["statement", ...]
}
Set requires_tools to false only when the request can be answered from the
known facts alone. Extract every number, list, and named quantity into
entities. Set clarification_needed when the request is ambiguous.`

// perceptionPayload is the raw JSON the model returns.
type perceptionPayload struct {
	Category            string            `json:"category"`
	Entities            map[string]any    `json:"entities"`
	ThoughtType         string            `json:"thought_type"`
	RequiresTools       bool              `json:"requires_tools"`
	Confidence          float64           `json:"confidence"`
	ClarificationNeeded bool              `json:"clarification_needed"`
	FactsToRemember     []string          `json:"facts_to_remember"`
	Preferences         map[string]string `json:"preferences"`
}

// Perceiver turns raw request text plus prior facts into a structured
// intent.
type Perceiver struct {
	llm llm.Completer
	log *zap.SugaredLogger
}

// NewPerceiver builds a perception stage on the given completion client.
func NewPerceiver(completer llm.Completer) *Perceiver {
	return &Perceiver{
		llm: completer,
		log: logging.Get(logging.CategoryPerceive),
	}
}

// Perceive interprets a request. It returns ErrInvalidInput for blank
// text and populates the intent's self-check from its own validation of
// the model output. Facts the model flags for remembering are returned
// alongside the intent.
func (p *Perceiver) Perceive(ctx context.Context, req Request, priorFacts []Fact) (*Intent, []string, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, nil, fmt.Errorf("%w: empty request text", ErrInvalidInput)
	}

	prompt := buildPerceptionPrompt(text, req.Preferences, priorFacts)
	raw, err := p.llm.Complete(ctx, perceptionSystemPrompt, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: perception: %v", ErrExternalService, err)
	}

	var payload perceptionPayload
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &payload); err != nil {
		return nil, nil, fmt.Errorf("%w: perception returned malformed intent: %v", ErrExternalService, err)
	}

	intent := &Intent{
		Category:            payload.Category,
		Entities:            stringifyEntities(payload.Entities),
		ThoughtType:         payload.ThoughtType,
		RequiresTools:       payload.RequiresTools,
		Confidence:          clamp01(payload.Confidence),
		ClarificationNeeded: payload.ClarificationNeeded,
	}
	intent.SelfCheck = checkIntent(intent)

	p.log.Debugw("perceived intent",
		"category", intent.Category,
		"requires_tools", intent.RequiresTools,
		"confidence", intent.Confidence,
		"clarity_verified", intent.SelfCheck.ClarityVerified)

	return intent, payload.FactsToRemember, nil
}

// checkIntent derives the self-check deterministically from the parsed
// intent rather than trusting model-reported flags alone.
func checkIntent(in *Intent) SelfCheck {
	var reasons []string

	clarity := !in.ClarificationNeeded
	if in.Category == "" {
		clarity = false
		reasons = append(reasons, "no category identified")
	}
	if in.Confidence < 0.3 {
		clarity = false
		reasons = append(reasons, "low confidence")
	}
	if in.ClarificationNeeded {
		reasons = append(reasons, "model requested clarification")
	}

	complete := true
	if in.RequiresTools && len(in.Entities) == 0 {
		complete = false
		reasons = append(reasons, "tools required but no entities extracted")
	}

	reasoning := "intent validated"
	if len(reasons) > 0 {
		reasoning = strings.Join(reasons, "; ")
	}
	return SelfCheck{
		ClarityVerified:  clarity,
		EntitiesComplete: complete,
		Reasoning:        reasoning,
	}
}

func buildPerceptionPrompt(text string, prefs map[string]string, facts []Fact) string {
	var b strings.Builder
	b.WriteString("Request: ")
	b.WriteString(text)
	b.WriteString("\n")
	if len(prefs) > 0 {
		b.WriteString("User preferences:\n")
		for k, v := range prefs {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}
	if len(facts) > 0 {
		b.WriteString("Known facts from this session:\n")
		for _, f := range facts {
			fmt.Fprintf(&b, "- %s\n", f.Content)
		}
	}
	return b.String()
}

func stringifyEntities(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
