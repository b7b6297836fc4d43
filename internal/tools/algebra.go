package tools

import (
	"context"
	"fmt"
	"math"
)

// RegisterAlgebra adds the algebra tool pack to the registry.
func RegisterAlgebra(r *Registry) {
	r.MustRegister(&Tool{
		Name:        "t_solve_linear",
		Description: "Solve a*x + b = 0 for x",
		Category:    CategoryAlgebra,
		Schema: Schema{
			Required: []string{"a", "b"},
			Properties: map[string]Property{
				"a": {Type: "number", Description: "coefficient of x"},
				"b": {Type: "number", Description: "constant term"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			a, err := floatArg(args, "a")
			if err != nil {
				return "", err
			}
			b, err := floatArg(args, "b")
			if err != nil {
				return "", err
			}
			if a == 0 {
				return "", fmt.Errorf("no unique solution: a is zero")
			}
			return formatNumber(-b / a), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_solve_quadratic",
		Description: "Solve a*x^2 + b*x + c = 0; returns real roots in ascending order",
		Category:    CategoryAlgebra,
		Schema: Schema{
			Required: []string{"a", "b", "c"},
			Properties: map[string]Property{
				"a": {Type: "number", Description: "quadratic coefficient"},
				"b": {Type: "number", Description: "linear coefficient"},
				"c": {Type: "number", Description: "constant term"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			a, err := floatArg(args, "a")
			if err != nil {
				return "", err
			}
			b, err := floatArg(args, "b")
			if err != nil {
				return "", err
			}
			c, err := floatArg(args, "c")
			if err != nil {
				return "", err
			}
			if a == 0 {
				if b == 0 {
					return "", fmt.Errorf("not an equation in x")
				}
				return formatNumber(-c / b), nil
			}
			disc := b*b - 4*a*c
			if disc < 0 {
				return "", fmt.Errorf("no real roots (discriminant %v)", disc)
			}
			sq := math.Sqrt(disc)
			r1 := (-b - sq) / (2 * a)
			r2 := (-b + sq) / (2 * a)
			if r1 > r2 {
				r1, r2 = r2, r1
			}
			if r1 == r2 {
				return formatNumber(r1), nil
			}
			return formatNumbers([]float64{r1, r2}), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_consecutive_integers",
		Description: "Find n consecutive integers that sum to the given total",
		Category:    CategoryAlgebra,
		Schema: Schema{
			Required: []string{"sum", "count"},
			Properties: map[string]Property{
				"sum":   {Type: "number", Description: "target sum"},
				"count": {Type: "integer", Description: "how many consecutive integers"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			sum, err := floatArg(args, "sum")
			if err != nil {
				return "", err
			}
			count, err := intArg(args, "count")
			if err != nil {
				return "", err
			}
			if count < 1 {
				return "", fmt.Errorf("count must be >= 1")
			}
			// sum = count*first + count*(count-1)/2
			first := (sum - float64(count*(count-1))/2) / float64(count)
			if first != math.Trunc(first) {
				return "", fmt.Errorf("no integer solution for sum=%v count=%d", sum, count)
			}
			out := make([]float64, count)
			for i := range out {
				out[i] = first + float64(i)
			}
			return formatNumbers(out), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_evaluate_polynomial",
		Description: "Evaluate a polynomial at x; coefficients ordered highest degree first",
		Category:    CategoryAlgebra,
		Schema: Schema{
			Required: []string{"coefficients", "x"},
			Properties: map[string]Property{
				"coefficients": {Type: "array", Description: "coefficients, highest degree first"},
				"x":            {Type: "number", Description: "evaluation point"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			coeffs, err := floatSliceArg(args, "coefficients")
			if err != nil {
				return "", err
			}
			x, err := floatArg(args, "x")
			if err != nil {
				return "", err
			}
			var v float64
			for _, c := range coeffs {
				v = v*x + c
			}
			return formatNumber(v), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_arithmetic_series_sum",
		Description: "Sum of an arithmetic series given first term, last term, and term count",
		Category:    CategoryAlgebra,
		Schema: Schema{
			Required: []string{"first", "last", "n"},
			Properties: map[string]Property{
				"first": {Type: "number", Description: "first term"},
				"last":  {Type: "number", Description: "last term"},
				"n":     {Type: "integer", Description: "number of terms"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			first, err := floatArg(args, "first")
			if err != nil {
				return "", err
			}
			last, err := floatArg(args, "last")
			if err != nil {
				return "", err
			}
			n, err := intArg(args, "n")
			if err != nil {
				return "", err
			}
			return formatNumber(float64(n) * (first + last) / 2), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_geometric_series_sum",
		Description: "Sum of the first n terms of a geometric series",
		Category:    CategoryAlgebra,
		Schema: Schema{
			Required: []string{"first", "ratio", "n"},
			Properties: map[string]Property{
				"first": {Type: "number", Description: "first term"},
				"ratio": {Type: "number", Description: "common ratio"},
				"n":     {Type: "integer", Description: "number of terms"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			first, err := floatArg(args, "first")
			if err != nil {
				return "", err
			}
			ratio, err := floatArg(args, "ratio")
			if err != nil {
				return "", err
			}
			n, err := intArg(args, "n")
			if err != nil {
				return "", err
			}
			if ratio == 1 {
				return formatNumber(first * float64(n)), nil
			}
			return formatNumber(first * (1 - math.Pow(ratio, float64(n))) / (1 - ratio)), nil
		},
	})
}
