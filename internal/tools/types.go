// Package tools provides the typed tool registry the decision stage plans
// against and the action stage dispatches to. Each tool is a standalone
// descriptor with a JSON-style parameter schema and a single execute
// function; the registry is built once at startup and read-only afterwards.
package tools

import (
	"context"
)

// Category groups tools by reasoning domain. The decision stage can
// narrow the catalog by category before tie-breaking on schema fit.
type Category string

const (
	CategoryArithmetic Category = "arithmetic"
	CategoryAlgebra    Category = "algebra"
	CategoryGeometry   Category = "geometry"
	CategoryLogic      Category = "logic"
	CategoryStatistics Category = "statistics"
	CategoryNotify     Category = "notify"
	CategoryGeneral    Category = "general"
)

// Property describes a single parameter for the tool schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Schema defines the expected arguments of a tool.
type Schema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool defines a registered tool.
type Tool struct {
	// Name is the unique registry key.
	Name string

	// Description explains what the tool does, surfaced to the planner.
	Description string

	// Category classifies the tool by reasoning domain.
	Category Category

	// Schema defines the expected arguments.
	Schema Schema

	// Execute runs the tool.
	Execute ExecuteFunc

	// Idempotent marks tools with no external side effect. Only
	// idempotent tools may be retried automatically; non-idempotent
	// ones go through fallback substitution instead.
	Idempotent bool
}

// Validate checks the tool definition.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// Descriptor is the introspection view of a tool, consumed by the
// decision stage to ground plan generation.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      Schema `json:"parameter_schema"`
	Idempotent  bool   `json:"idempotent"`
}

// RequiredCount returns how many parameters the tool requires.
func (d Descriptor) RequiredCount() int {
	return len(d.Schema.Required)
}

// Result wraps a tool execution with metadata.
type Result struct {
	ToolName string
	Output   string
	Err      error
	Elapsed  int64 // milliseconds
}

// OK reports whether the tool executed without error.
func (r *Result) OK() bool {
	return r.Err == nil
}
