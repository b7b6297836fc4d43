package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// RegisterStatistics adds the statistics tool pack to the registry.
func RegisterStatistics(r *Registry) {
	numberList := Schema{
		Required: []string{"numbers"},
		Properties: map[string]Property{
			"numbers": {Type: "array", Description: "list of numbers"},
		},
	}

	overList := func(name, desc string, f func(vs []float64) (string, error)) *Tool {
		return &Tool{
			Name:        name,
			Description: desc,
			Category:    CategoryStatistics,
			Schema:      numberList,
			Idempotent:  true,
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				vs, err := floatSliceArg(args, "numbers")
				if err != nil {
					return "", err
				}
				if len(vs) == 0 {
					return "", fmt.Errorf("%w: numbers must not be empty", ErrInvalidArgType)
				}
				return f(vs)
			},
		}
	}

	r.MustRegister(overList("t_mean", "Arithmetic mean of a list of numbers", func(vs []float64) (string, error) {
		return formatNumber(mean(vs)), nil
	}))

	r.MustRegister(overList("t_median", "Median of a list of numbers", func(vs []float64) (string, error) {
		sorted := append([]float64(nil), vs...)
		sort.Float64s(sorted)
		n := len(sorted)
		if n%2 == 1 {
			return formatNumber(sorted[n/2]), nil
		}
		return formatNumber((sorted[n/2-1] + sorted[n/2]) / 2), nil
	}))

	r.MustRegister(overList("t_mode", "Most frequent value(s) in a list of numbers", func(vs []float64) (string, error) {
		counts := make(map[float64]int)
		best := 0
		for _, v := range vs {
			counts[v]++
			if counts[v] > best {
				best = counts[v]
			}
		}
		var modes []float64
		for v, c := range counts {
			if c == best {
				modes = append(modes, v)
			}
		}
		sort.Float64s(modes)
		return formatNumbers(modes), nil
	}))

	r.MustRegister(overList("t_variance", "Sample variance of a list of numbers", func(vs []float64) (string, error) {
		if len(vs) < 2 {
			return "", fmt.Errorf("variance needs at least 2 values")
		}
		return formatNumber(variance(vs)), nil
	}))

	r.MustRegister(overList("t_stddev", "Sample standard deviation of a list of numbers", func(vs []float64) (string, error) {
		if len(vs) < 2 {
			return "", fmt.Errorf("standard deviation needs at least 2 values")
		}
		return formatNumber(math.Sqrt(variance(vs))), nil
	}))

	r.MustRegister(overList("t_range", "Difference between the largest and smallest value", func(vs []float64) (string, error) {
		lo, hi := vs[0], vs[0]
		for _, v := range vs[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		return formatNumber(hi - lo), nil
	}))

	r.MustRegister(&Tool{
		Name:        "t_percentile",
		Description: "The pth percentile of a list of numbers (linear interpolation)",
		Category:    CategoryStatistics,
		Schema: Schema{
			Required: []string{"numbers", "p"},
			Properties: map[string]Property{
				"numbers": {Type: "array", Description: "list of numbers"},
				"p":       {Type: "number", Description: "percentile 0-100"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			vs, err := floatSliceArg(args, "numbers")
			if err != nil {
				return "", err
			}
			p, err := floatArg(args, "p")
			if err != nil {
				return "", err
			}
			if len(vs) == 0 {
				return "", fmt.Errorf("%w: numbers must not be empty", ErrInvalidArgType)
			}
			if p < 0 || p > 100 {
				return "", fmt.Errorf("percentile must be within 0-100, got %v", p)
			}
			sorted := append([]float64(nil), vs...)
			sort.Float64s(sorted)
			if len(sorted) == 1 {
				return formatNumber(sorted[0]), nil
			}
			rank := p / 100 * float64(len(sorted)-1)
			lo := int(math.Floor(rank))
			hi := int(math.Ceil(rank))
			frac := rank - float64(lo)
			return formatNumber(sorted[lo] + frac*(sorted[hi]-sorted[lo])), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_z_score",
		Description: "Z-score of a value given a mean and standard deviation",
		Category:    CategoryStatistics,
		Schema: Schema{
			Required: []string{"value", "mean", "stddev"},
			Properties: map[string]Property{
				"value":  {Type: "number", Description: "observed value"},
				"mean":   {Type: "number", Description: "population mean"},
				"stddev": {Type: "number", Description: "population standard deviation"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			v, err := floatArg(args, "value")
			if err != nil {
				return "", err
			}
			m, err := floatArg(args, "mean")
			if err != nil {
				return "", err
			}
			sd, err := floatArg(args, "stddev")
			if err != nil {
				return "", err
			}
			if sd <= 0 {
				return "", fmt.Errorf("stddev must be positive")
			}
			return formatNumber((v - m) / sd), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_correlation",
		Description: "Pearson correlation coefficient of two equal-length number lists",
		Category:    CategoryStatistics,
		Schema: Schema{
			Required: []string{"x", "y"},
			Properties: map[string]Property{
				"x": {Type: "array", Description: "first series"},
				"y": {Type: "array", Description: "second series"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			xs, err := floatSliceArg(args, "x")
			if err != nil {
				return "", err
			}
			ys, err := floatSliceArg(args, "y")
			if err != nil {
				return "", err
			}
			if len(xs) != len(ys) || len(xs) < 2 {
				return "", fmt.Errorf("correlation needs two equal-length series of at least 2 values")
			}
			mx, my := mean(xs), mean(ys)
			var cov, vx, vy float64
			for i := range xs {
				dx := xs[i] - mx
				dy := ys[i] - my
				cov += dx * dy
				vx += dx * dx
				vy += dy * dy
			}
			if vx == 0 || vy == 0 {
				return "", fmt.Errorf("correlation undefined for constant series")
			}
			return formatNumber(cov / math.Sqrt(vx*vy)), nil
		},
	})
}

func mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func variance(vs []float64) float64 {
	m := mean(vs)
	var sum float64
	for _, v := range vs {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(vs)-1)
}
