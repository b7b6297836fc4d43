package tools

import (
	"context"
	"fmt"
	"math"
)

// RegisterArithmetic adds the arithmetic tool pack to the registry.
func RegisterArithmetic(r *Registry) {
	twoNumbers := Schema{
		Required: []string{"a", "b"},
		Properties: map[string]Property{
			"a": {Type: "number", Description: "first operand"},
			"b": {Type: "number", Description: "second operand"},
		},
	}
	oneNumber := Schema{
		Required: []string{"number"},
		Properties: map[string]Property{
			"number": {Type: "number", Description: "operand"},
		},
	}
	numberList := Schema{
		Required: []string{"numbers"},
		Properties: map[string]Property{
			"numbers": {Type: "array", Description: "list of numbers"},
		},
	}

	binary := func(name, desc string, f func(a, b float64) (float64, error)) *Tool {
		return &Tool{
			Name:        name,
			Description: desc,
			Category:    CategoryArithmetic,
			Schema:      twoNumbers,
			Idempotent:  true,
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				a, err := floatArg(args, "a")
				if err != nil {
					return "", err
				}
				b, err := floatArg(args, "b")
				if err != nil {
					return "", err
				}
				v, err := f(a, b)
				if err != nil {
					return "", err
				}
				return formatNumber(v), nil
			},
		}
	}

	unary := func(name, desc string, f func(v float64) (float64, error)) *Tool {
		return &Tool{
			Name:        name,
			Description: desc,
			Category:    CategoryArithmetic,
			Schema:      oneNumber,
			Idempotent:  true,
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				x, err := floatArg(args, "number")
				if err != nil {
					return "", err
				}
				v, err := f(x)
				if err != nil {
					return "", err
				}
				return formatNumber(v), nil
			},
		}
	}

	overList := func(name, desc string, f func(vs []float64) (float64, error)) *Tool {
		return &Tool{
			Name:        name,
			Description: desc,
			Category:    CategoryArithmetic,
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
				v, err := f(vs)
				if err != nil {
					return "", err
				}
				return formatNumber(v), nil
			},
		}
	}

	r.MustRegister(binary("t_add", "Add two numbers", func(a, b float64) (float64, error) {
		return a + b, nil
	}))
	r.MustRegister(binary("t_subtract", "Subtract the second number from the first", func(a, b float64) (float64, error) {
		return a - b, nil
	}))
	r.MustRegister(binary("t_multiply", "Multiply two numbers", func(a, b float64) (float64, error) {
		return a * b, nil
	}))
	r.MustRegister(binary("t_divide", "Divide the first number by the second", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	}))
	r.MustRegister(binary("t_modulo", "Remainder of dividing the first number by the second", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("modulo by zero")
		}
		return math.Mod(a, b), nil
	}))
	r.MustRegister(binary("t_percentage", "Calculate a percent of b (a percent, b number)", func(a, b float64) (float64, error) {
		return a / 100 * b, nil
	}))

	r.MustRegister(unary("t_absolute", "Absolute value of a number", func(v float64) (float64, error) {
		return math.Abs(v), nil
	}))
	r.MustRegister(unary("t_square", "Square of a number", func(v float64) (float64, error) {
		return v * v, nil
	}))
	r.MustRegister(unary("t_square_root", "Square root of a non-negative number", func(v float64) (float64, error) {
		if v < 0 {
			return 0, fmt.Errorf("square root of negative number")
		}
		return math.Sqrt(v), nil
	}))
	r.MustRegister(unary("t_cube", "Cube of a number", func(v float64) (float64, error) {
		return v * v * v, nil
	}))
	r.MustRegister(unary("t_cube_root", "Cube root of a number", func(v float64) (float64, error) {
		return math.Cbrt(v), nil
	}))

	r.MustRegister(overList("t_sum_list", "Sum of a list of numbers", func(vs []float64) (float64, error) {
		var sum float64
		for _, v := range vs {
			sum += v
		}
		return sum, nil
	}))
	r.MustRegister(overList("t_product_list", "Product of a list of numbers", func(vs []float64) (float64, error) {
		prod := 1.0
		for _, v := range vs {
			prod *= v
		}
		return prod, nil
	}))
	r.MustRegister(overList("t_average", "Arithmetic mean of a list of numbers", func(vs []float64) (float64, error) {
		var sum float64
		for _, v := range vs {
			sum += v
		}
		return sum / float64(len(vs)), nil
	}))
	r.MustRegister(overList("t_max", "Largest value in a list of numbers", func(vs []float64) (float64, error) {
		m := vs[0]
		for _, v := range vs[1:] {
			m = math.Max(m, v)
		}
		return m, nil
	}))
	r.MustRegister(overList("t_min", "Smallest value in a list of numbers", func(vs []float64) (float64, error) {
		m := vs[0]
		for _, v := range vs[1:] {
			m = math.Min(m, v)
		}
		return m, nil
	}))

	intSchema := Schema{
		Required: []string{"n"},
		Properties: map[string]Property{
			"n": {Type: "integer", Description: "non-negative integer"},
		},
	}

	r.MustRegister(&Tool{
		Name:        "t_factorial",
		Description: "Factorial of a non-negative integer n (n!)",
		Category:    CategoryArithmetic,
		Schema:      intSchema,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			n, err := intArg(args, "n")
			if err != nil {
				return "", err
			}
			if n < 0 {
				return "", fmt.Errorf("factorial of negative number")
			}
			if n > 20 {
				return "", fmt.Errorf("factorial of %d overflows", n)
			}
			result := int64(1)
			for i := int64(2); i <= int64(n); i++ {
				result *= i
			}
			return fmt.Sprintf("%d", result), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_fibonacci",
		Description: "The nth Fibonacci number (1-indexed: 1, 1, 2, 3, 5, ...)",
		Category:    CategoryArithmetic,
		Schema:      intSchema,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			n, err := intArg(args, "n")
			if err != nil {
				return "", err
			}
			if n < 1 {
				return "", fmt.Errorf("fibonacci index must be >= 1")
			}
			if n > 92 {
				return "", fmt.Errorf("fibonacci(%d) overflows", n)
			}
			a, b := int64(1), int64(1)
			for i := 3; i <= n; i++ {
				a, b = b, a+b
			}
			return fmt.Sprintf("%d", b), nil
		},
	})

	twoInts := Schema{
		Required: []string{"a", "b"},
		Properties: map[string]Property{
			"a": {Type: "integer", Description: "first integer"},
			"b": {Type: "integer", Description: "second integer"},
		},
	}

	r.MustRegister(&Tool{
		Name:        "t_gcd",
		Description: "Greatest common divisor of two integers",
		Category:    CategoryArithmetic,
		Schema:      twoInts,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			a, err := intArg(args, "a")
			if err != nil {
				return "", err
			}
			b, err := intArg(args, "b")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d", gcd(abs(a), abs(b))), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_lcm",
		Description: "Least common multiple of two integers",
		Category:    CategoryArithmetic,
		Schema:      twoInts,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			a, err := intArg(args, "a")
			if err != nil {
				return "", err
			}
			b, err := intArg(args, "b")
			if err != nil {
				return "", err
			}
			if a == 0 || b == 0 {
				return "0", nil
			}
			return fmt.Sprintf("%d", abs(a*b)/gcd(abs(a), abs(b))), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_is_prime",
		Description: "Whether an integer is prime",
		Category:    CategoryArithmetic,
		Schema:      intSchema,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			n, err := intArg(args, "n")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%t", isPrime(n)), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_power",
		Description: "Raise base to the given exponent",
		Category:    CategoryArithmetic,
		Schema: Schema{
			Required: []string{"base", "exponent"},
			Properties: map[string]Property{
				"base":     {Type: "number", Description: "base"},
				"exponent": {Type: "number", Description: "exponent"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			base, err := floatArg(args, "base")
			if err != nil {
				return "", err
			}
			exp, err := floatArg(args, "exponent")
			if err != nil {
				return "", err
			}
			v := math.Pow(base, exp)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return "", fmt.Errorf("power result out of range")
			}
			return formatNumber(v), nil
		},
	})
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for i := 3; i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}
