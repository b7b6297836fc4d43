package tools

import (
	"context"
	"fmt"
	"math"
)

// RegisterGeometry adds the geometry tool pack to the registry.
func RegisterGeometry(r *Registry) {
	radius := Schema{
		Required: []string{"radius"},
		Properties: map[string]Property{
			"radius": {Type: "number", Description: "radius"},
		},
	}

	positive := func(name string, v float64) error {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, v)
		}
		return nil
	}

	r.MustRegister(&Tool{
		Name:        "t_circle_area",
		Description: "Area of a circle from its radius",
		Category:    CategoryGeometry,
		Schema:      radius,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			v, err := floatArg(args, "radius")
			if err != nil {
				return "", err
			}
			if err := positive("radius", v); err != nil {
				return "", err
			}
			return formatNumber(math.Pi * v * v), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_circle_circumference",
		Description: "Circumference of a circle from its radius",
		Category:    CategoryGeometry,
		Schema:      radius,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			v, err := floatArg(args, "radius")
			if err != nil {
				return "", err
			}
			if err := positive("radius", v); err != nil {
				return "", err
			}
			return formatNumber(2 * math.Pi * v), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_rectangle_area",
		Description: "Area of a rectangle from length and width",
		Category:    CategoryGeometry,
		Schema: Schema{
			Required: []string{"length", "width"},
			Properties: map[string]Property{
				"length": {Type: "number", Description: "length"},
				"width":  {Type: "number", Description: "width"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			l, err := floatArg(args, "length")
			if err != nil {
				return "", err
			}
			w, err := floatArg(args, "width")
			if err != nil {
				return "", err
			}
			if err := positive("length", l); err != nil {
				return "", err
			}
			if err := positive("width", w); err != nil {
				return "", err
			}
			return formatNumber(l * w), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_triangle_area",
		Description: "Area of a triangle from base and height",
		Category:    CategoryGeometry,
		Schema: Schema{
			Required: []string{"base", "height"},
			Properties: map[string]Property{
				"base":   {Type: "number", Description: "base length"},
				"height": {Type: "number", Description: "height"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			b, err := floatArg(args, "base")
			if err != nil {
				return "", err
			}
			h, err := floatArg(args, "height")
			if err != nil {
				return "", err
			}
			if err := positive("base", b); err != nil {
				return "", err
			}
			if err := positive("height", h); err != nil {
				return "", err
			}
			return formatNumber(b * h / 2), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_sphere_volume",
		Description: "Volume of a sphere from its radius",
		Category:    CategoryGeometry,
		Schema:      radius,
		Idempotent:  true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			v, err := floatArg(args, "radius")
			if err != nil {
				return "", err
			}
			if err := positive("radius", v); err != nil {
				return "", err
			}
			return formatNumber(4.0 / 3.0 * math.Pi * v * v * v), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_cylinder_volume",
		Description: "Volume of a cylinder from radius and height",
		Category:    CategoryGeometry,
		Schema: Schema{
			Required: []string{"radius", "height"},
			Properties: map[string]Property{
				"radius": {Type: "number", Description: "base radius"},
				"height": {Type: "number", Description: "height"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			rr, err := floatArg(args, "radius")
			if err != nil {
				return "", err
			}
			h, err := floatArg(args, "height")
			if err != nil {
				return "", err
			}
			if err := positive("radius", rr); err != nil {
				return "", err
			}
			if err := positive("height", h); err != nil {
				return "", err
			}
			return formatNumber(math.Pi * rr * rr * h), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_hypotenuse",
		Description: "Hypotenuse of a right triangle from its two legs",
		Category:    CategoryGeometry,
		Schema: Schema{
			Required: []string{"a", "b"},
			Properties: map[string]Property{
				"a": {Type: "number", Description: "first leg"},
				"b": {Type: "number", Description: "second leg"},
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
			if err := positive("a", a); err != nil {
				return "", err
			}
			if err := positive("b", b); err != nil {
				return "", err
			}
			return formatNumber(math.Hypot(a, b)), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "t_distance_2d",
		Description: "Euclidean distance between two points in the plane",
		Category:    CategoryGeometry,
		Schema: Schema{
			Required: []string{"x1", "y1", "x2", "y2"},
			Properties: map[string]Property{
				"x1": {Type: "number", Description: "first point x"},
				"y1": {Type: "number", Description: "first point y"},
				"x2": {Type: "number", Description: "second point x"},
				"y2": {Type: "number", Description: "second point y"},
			},
		},
		Idempotent: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			x1, err := floatArg(args, "x1")
			if err != nil {
				return "", err
			}
			y1, err := floatArg(args, "y1")
			if err != nil {
				return "", err
			}
			x2, err := floatArg(args, "x2")
			if err != nil {
				return "", err
			}
			y2, err := floatArg(args, "y2")
			if err != nil {
				return "", err
			}
			return formatNumber(math.Hypot(x2-x1, y2-y1)), nil
		},
	})
}
