package solver

import (
	"math"
	"testing"
)

func TestEval(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"1+1", 2},
		{"28 - 4 + 2", 26},
		{"2*3+4", 10},
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"10/4", 2.5},
		{"-5+3", -2},
		{"2*-3", -6},
		{"-(2+3)", -5},
		{"1.5*2", 3},
		{"100 × 2", 200},
		{"9 ÷ 3", 3},
		{"((1+2)*(3+4))", 21},
	}
	for _, c := range cases {
		t.Run(c.expr, func(t *testing.T) {
			got, ok := Eval(c.expr)
			if !ok {
				t.Fatalf("Eval(%q) rejected, want %v", c.expr, c.want)
			}
			if math.Abs(got-c.want) > 1e-9 {
				t.Errorf("Eval(%q) = %v, want %v", c.expr, got, c.want)
			}
		})
	}
}

func TestEvalRejects(t *testing.T) {
	rejected := []string{
		"",
		"hello",
		"1+x",
		"2**3",
		"1/0",        // division by zero must not produce an answer
		"(1+2",       // unbalanced
		"1+2)",       // unbalanced
		"1 2",        // two numbers, no operator
		"+",          // operator only
		"1+",         // dangling operator
		"eval(1)",    // no dynamic evaluation
		"__import__", // not in the grammar
	}
	for _, expr := range rejected {
		if got, ok := Eval(expr); ok {
			t.Errorf("Eval(%q) = %v, want rejection", expr, got)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		26:      "26",
		2.5:     "2.5",
		-3:      "-3",
		0.33333: "0.33333",
	}
	for n, want := range cases {
		if got := FormatNumber(n); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", n, got, want)
		}
	}
}
