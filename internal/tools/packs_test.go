package tools

import (
	"context"
	"strings"
	"testing"
)

func TestToolOutputs(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{"t_add", map[string]any{"a": 2.0, "b": 3.0}, "5"},
		{"t_subtract", map[string]any{"a": 10.0, "b": 4.0}, "6"},
		{"t_multiply", map[string]any{"a": 120.0, "b": 5.0}, "600"},
		{"t_divide", map[string]any{"a": 7.0, "b": 2.0}, "3.5"},
		{"t_modulo", map[string]any{"a": 10.0, "b": 3.0}, "1"},
		{"t_percentage", map[string]any{"a": 25.0, "b": 80.0}, "20"},
		{"t_absolute", map[string]any{"number": -4.5}, "4.5"},
		{"t_square", map[string]any{"number": 12.0}, "144"},
		{"t_square_root", map[string]any{"number": 81.0}, "9"},
		{"t_cube", map[string]any{"number": 3.0}, "27"},
		{"t_cube_root", map[string]any{"number": 27.0}, "3"},
		{"t_sum_list", map[string]any{"numbers": []any{1.0, 2.0, 3.0}}, "6"},
		{"t_product_list", map[string]any{"numbers": []any{2.0, 3.0, 4.0}}, "24"},
		{"t_average", map[string]any{"numbers": []any{2.0, 4.0, 6.0}}, "4"},
		{"t_max", map[string]any{"numbers": []any{3.0, 9.0, 1.0}}, "9"},
		{"t_min", map[string]any{"numbers": []any{3.0, 9.0, 1.0}}, "1"},
		{"t_factorial", map[string]any{"n": 5}, "120"},
		{"t_fibonacci", map[string]any{"n": 5}, "5"},
		{"t_gcd", map[string]any{"a": 12, "b": 18}, "6"},
		{"t_lcm", map[string]any{"a": 4, "b": 6}, "12"},
		{"t_is_prime", map[string]any{"n": 17}, "true"},
		{"t_is_prime", map[string]any{"n": 18}, "false"},
		{"t_power", map[string]any{"base": 2.0, "exponent": 10.0}, "1024"},
		{"t_solve_linear", map[string]any{"a": 2.0, "b": -8.0}, "4"},
		{"t_solve_quadratic", map[string]any{"a": 1.0, "b": -5.0, "c": 6.0}, "2, 3"},
		{"t_consecutive_integers", map[string]any{"sum": 41.0, "count": 2}, "20, 21"},
		{"t_evaluate_polynomial", map[string]any{"coefficients": []any{1.0, 0.0, -4.0}, "x": 3.0}, "5"},
		{"t_arithmetic_series_sum", map[string]any{"first": 1.0, "last": 100.0, "n": 100}, "5050"},
		{"t_geometric_series_sum", map[string]any{"first": 1.0, "ratio": 2.0, "n": 10}, "1023"},
		{"t_circle_area", map[string]any{"radius": 1.0}, "3.141592653589793"},
		{"t_rectangle_area", map[string]any{"length": 3.0, "width": 4.0}, "12"},
		{"t_triangle_area", map[string]any{"base": 10.0, "height": 6.0}, "30"},
		{"t_hypotenuse", map[string]any{"a": 3.0, "b": 4.0}, "5"},
		{"t_distance_2d", map[string]any{"x1": 0.0, "y1": 0.0, "x2": 6.0, "y2": 8.0}, "10"},
		{"t_and", map[string]any{"values": []any{true, true, false}}, "false"},
		{"t_or", map[string]any{"values": []any{false, true}}, "true"},
		{"t_not", map[string]any{"value": true}, "false"},
		{"t_xor", map[string]any{"a": true, "b": false}, "true"},
		{"t_implies", map[string]any{"premise": true, "conclusion": false}, "false"},
		{"t_majority", map[string]any{"values": []any{true, true, false}}, "true"},
		{"t_mean", map[string]any{"numbers": []any{1.0, 2.0, 3.0, 4.0}}, "2.5"},
		{"t_median", map[string]any{"numbers": []any{5.0, 1.0, 3.0}}, "3"},
		{"t_median", map[string]any{"numbers": []any{4.0, 1.0, 3.0, 2.0}}, "2.5"},
		{"t_mode", map[string]any{"numbers": []any{1.0, 2.0, 2.0, 3.0}}, "2"},
		{"t_variance", map[string]any{"numbers": []any{2.0, 4.0, 4.0, 4.0, 5.0, 5.0, 7.0, 9.0}}, "4.571428571428571"},
		{"t_range", map[string]any{"numbers": []any{3.0, 10.0, 1.0}}, "9"},
		{"t_percentile", map[string]any{"numbers": []any{1.0, 2.0, 3.0, 4.0, 5.0}, "p": 50.0}, "3"},
		{"t_z_score", map[string]any{"value": 130.0, "mean": 100.0, "stddev": 15.0}, "2"},
		{"t_correlation", map[string]any{"x": []any{1.0, 2.0, 3.0}, "y": []any{2.0, 4.0, 6.0}}, "1"},
	}

	for _, tt := range tests {
		res, err := r.Execute(context.Background(), tt.tool, tt.args)
		if err != nil {
			t.Errorf("%s(%v): %v", tt.tool, tt.args, err)
			continue
		}
		if res.Output != tt.want {
			t.Errorf("%s(%v) = %q, want %q", tt.tool, tt.args, res.Output, tt.want)
		}
	}
}

func TestToolErrors(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		tool string
		args map[string]any
	}{
		{"t_divide", map[string]any{"a": 1.0, "b": 0.0}},
		{"t_square_root", map[string]any{"number": -1.0}},
		{"t_factorial", map[string]any{"n": 21}},
		{"t_factorial", map[string]any{"n": -1}},
		{"t_fibonacci", map[string]any{"n": 0}},
		{"t_solve_linear", map[string]any{"a": 0.0, "b": 3.0}},
		{"t_solve_quadratic", map[string]any{"a": 1.0, "b": 0.0, "c": 1.0}},
		{"t_consecutive_integers", map[string]any{"sum": 10.0, "count": 4}},
		{"t_circle_area", map[string]any{"radius": -2.0}},
		{"t_variance", map[string]any{"numbers": []any{1.0}}},
		{"t_percentile", map[string]any{"numbers": []any{1.0}, "p": 150.0}},
		{"t_z_score", map[string]any{"value": 1.0, "mean": 0.0, "stddev": 0.0}},
		{"t_correlation", map[string]any{"x": []any{1.0, 2.0}, "y": []any{1.0}}},
	}

	for _, tt := range tests {
		res, err := r.Execute(context.Background(), tt.tool, tt.args)
		if err == nil {
			t.Errorf("%s(%v) succeeded with %q, want error", tt.tool, tt.args, res.Output)
		}
	}
}

func TestChainedStringArguments(t *testing.T) {
	// Chained steps substitute a prior result verbatim, so numeric tools
	// must accept string operands.
	r := newTestRegistry(t)

	res, err := r.Execute(context.Background(), "t_multiply", map[string]any{"a": "120", "b": "5"})
	if err != nil {
		t.Fatalf("t_multiply with string args: %v", err)
	}
	if res.Output != "600" {
		t.Fatalf("got %q, want 600", res.Output)
	}

	res, err = r.Execute(context.Background(), "t_sum_list", map[string]any{"numbers": "20, 21"})
	if err != nil {
		t.Fatalf("t_sum_list with string list: %v", err)
	}
	if res.Output != "41" {
		t.Fatalf("got %q, want 41", res.Output)
	}
}

func TestNotifierRecordsSends(t *testing.T) {
	r := NewRegistry()
	n := NewNotifier()
	RegisterNotify(r, n)

	res, err := r.Execute(context.Background(), "t_send_notification", map[string]any{
		"message": "done",
		"channel": "ops",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(res.Output, "sent to ops") {
		t.Fatalf("unexpected receipt %q", res.Output)
	}
	sent := n.Sent()
	if len(sent) != 1 || sent[0].Message != "done" || sent[0].Channel != "ops" {
		t.Fatalf("unexpected record %+v", sent)
	}
}
