package tools

import (
	"context"
	"fmt"
)

// RegisterLogic adds the boolean logic tool pack to the registry.
func RegisterLogic(r *Registry) {
	boolList := Schema{
		Required: []string{"values"},
		Properties: map[string]Property{
			"values": {Type: "array", Description: "list of booleans"},
		},
	}
	twoBools := Schema{
		Required: []string{"a", "b"},
		Properties: map[string]Property{
			"a": {Type: "boolean", Description: "first value"},
			"b": {Type: "boolean", Description: "second value"},
		},
	}

	r.MustRegister(&Tool{
		Name:        "t_and",
		Description: "Logical AND over a list of booleans",
		Category:    CategoryLogic,
		Schema:      boolList,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			vs, err := boolSliceArg(args, "values")
			if err != nil {
				return "", err
			}
			out := true
			for _, v := range vs {
				out = out && v
			}
			return fmt.Sprintf("%t", out), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_or",
		Description: "Logical OR over a list of booleans",
		Category:    CategoryLogic,
		Schema:      boolList,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			vs, err := boolSliceArg(args, "values")
			if err != nil {
				return "", err
			}
			out := false
			for _, v := range vs {
				out = out || v
			}
			return fmt.Sprintf("%t", out), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_not",
		Description: "Logical negation of a boolean",
		Category:    CategoryLogic,
		Schema: Schema{
			Required: []string{"value"},
			Properties: map[string]Property{
				"value": {Type: "boolean", Description: "value to negate"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			v, err := boolArg(args, "value")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%t", !v), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_xor",
		Description: "Exclusive OR of two booleans",
		Category:    CategoryLogic,
		Schema:      twoBools,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			a, err := boolArg(args, "a")
			if err != nil {
				return "", err
			}
			b, err := boolArg(args, "b")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%t", a != b), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_implies",
		Description: "Material implication: premise implies conclusion",
		Category:    CategoryLogic,
		Schema: Schema{
			Required: []string{"premise", "conclusion"},
			Properties: map[string]Property{
				"premise":    {Type: "boolean", Description: "premise"},
				"conclusion": {Type: "boolean", Description: "conclusion"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			p, err := boolArg(args, "premise")
			if err != nil {
				return "", err
			}
			c, err := boolArg(args, "conclusion")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%t", !p || c), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_majority",
		Description: "True if more than half the booleans are true",
		Category:    CategoryLogic,
		Schema:      boolList,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			vs, err := boolSliceArg(args, "values")
			if err != nil {
				return "", err
			}
			if len(vs) == 0 {
				return "", fmt.Errorf("%w: values must not be empty", ErrInvalidArgType)
			}
			count := 0
			for _, v := range vs {
				if v {
					count++
				}
			}
			return fmt.Sprintf("%t", count*2 > len(vs)), nil
		},
	})
}
