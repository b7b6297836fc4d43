package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Argument coercion helpers. Plans arrive as decoded JSON, and chained
// steps substitute prior results as strings, so every numeric tool has
// to accept float64, int, json.Number and numeric strings alike.

func floatArg(args map[string]any, name string) (float64, error) {
	v, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingRequiredArg, name)
	}
	return coerceFloat(v, name)
}

func coerceFloat(v any, name string) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q is not numeric", ErrInvalidArgType, name, x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrInvalidArgType, name, v)
	}
}

func intArg(args map[string]any, name string) (int, error) {
	f, err := floatArg(args, name)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s=%v is not an integer", ErrInvalidArgType, name, f)
	}
	return int(f), nil
}

func boolArg(args map[string]any, name string) (bool, error) {
	v, ok := args[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingRequiredArg, name)
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(x)))
		if err != nil {
			return false, fmt.Errorf("%w: %s=%q is not boolean", ErrInvalidArgType, name, x)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: %s has type %T", ErrInvalidArgType, name, v)
	}
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredArg, name)
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v), nil
	}
	return s, nil
}

func floatSliceArg(args map[string]any, name string) ([]float64, error) {
	v, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredArg, name)
	}
	switch x := v.(type) {
	case []float64:
		return x, nil
	case []any:
		out := make([]float64, len(x))
		for i, item := range x {
			f, err := coerceFloat(item, name)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	case string:
		// Comma-separated list, common when a list arrives as text.
		parts := strings.Split(x, ",")
		out := make([]float64, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s contains %q", ErrInvalidArgType, name, p)
			}
			out = append(out, f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s has type %T", ErrInvalidArgType, name, v)
	}
}

func boolSliceArg(args map[string]any, name string) ([]bool, error) {
	v, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredArg, name)
	}
	switch x := v.(type) {
	case []bool:
		return x, nil
	case []any:
		out := make([]bool, len(x))
		for i, item := range x {
			b, ok := item.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] has type %T", ErrInvalidArgType, name, i, item)
			}
			out[i] = b
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s has type %T", ErrInvalidArgType, name, v)
	}
}

// formatNumber renders a float without trailing zeros so chained steps
// receive "600", not "600.000000".
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNumbers(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatNumber(v)
	}
	return strings.Join(parts, ", ")
}
