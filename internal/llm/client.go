// Package llm provides the natural-language completion client used by the
// perception and decision stages. The orchestration core only depends on
// the Completer interface; the Gemini implementation lives in gemini.go.
package llm

import (
	"context"
	"strings"
)

// Completer is the contract the cognitive stages require from a
// completion service: one prompt in, one text completion out.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// StripFences removes a surrounding markdown code fence from an LLM
// response, if present. Models frequently wrap JSON in ```json blocks
// even when asked not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
