package agent

import "errors"

// Request-level error taxonomy. Validation errors abort before any
// side-effecting call runs; external errors follow the retry and
// fallback policy in the action stage.
var (
	// ErrInvalidInput marks an empty or malformed request. Recovered
	// locally as a user-visible message, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClarificationNeeded is not a failure; the request needs a
	// refined question from the user.
	ErrClarificationNeeded = errors.New("clarification needed")

	// ErrUnknownTool marks a plan step naming a tool absent from the
	// catalog. Caught at validation, before execution.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrPlanOrdering marks a forward or self reference, a cycle, or
	// non-contiguous step numbering. Caught at validation.
	ErrPlanOrdering = errors.New("plan ordering violation")

	// ErrUnresolvedReference marks a step whose referenced result is
	// unavailable because the producing step did not succeed.
	ErrUnresolvedReference = errors.New("unresolved step reference")

	// ErrExternalService wraps timeouts and failures from tools, the
	// retrieval index, or the language model.
	ErrExternalService = errors.New("external service failure")

	// ErrIterationLimit marks a request that exceeded the iteration
	// ceiling. Fatal for the request; the partial trace is returned.
	ErrIterationLimit = errors.New("iteration limit exceeded")
)
