package eval

import (
	"errors"
	"math"
	"testing"

	"github.com/dohr-michael/graphcalc/internal/expr"
)

func evalText(t *testing.T, text string, env Env) (float64, error) {
	t.Helper()
	e, err := expr.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return Evaluate(e, env)
}

func TestEvaluate(t *testing.T) {
	env := Env{"x": 3, "y": 0.5}
	tests := []struct {
		in   string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"2 ^ 3 ^ 2", 512},
		{"2 ** 10", 1024},
		{"-2^2", 4},
		{"x * y", 1.5},
		{"10 / 4", 2.5},
		{"sin(0) + cos(0)", 1},
		{"log(1)", 0},
		{"(x - 1) / (x + 1)", 0.5},
		{"8 - 3 - 2", 3},
	}
	for _, tt := range tests {
		got, err := evalText(t, tt.in, env)
		if err != nil {
			t.Fatalf("Evaluate(%q): %v", tt.in, err)
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Evaluate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"1 / 0", ErrDivisionByZero},
		{"x / (x - x)", ErrDivisionByZero},
		{"0 ^ -1", ErrDivisionByZero},
		{"log(0)", ErrDomain},
		{"log(-1)", ErrDomain},
		{"(-8) ^ 0.5", ErrDomain},
		{"10 ^ 400", ErrDomain},
		{"z + 1", ErrUndefinedVariable},
	}
	for _, tt := range tests {
		_, err := evalText(t, tt.in, Env{"x": 2})
		if !errors.Is(err, tt.want) {
			t.Errorf("Evaluate(%q) error = %v, want %v", tt.in, err, tt.want)
		}
	}
}

func TestUndefinedVariableNamesTheVariable(t *testing.T) {
	_, err := evalText(t, "a + b", Env{"a": 1})
	if err == nil || err.Error() != "undefined variable: b" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnvClone(t *testing.T) {
	env := Env{"a": 1}
	c := env.Clone()
	c["a"] = 2
	if env["a"] != 1 {
		t.Fatal("Clone shares storage with the original")
	}
	if got := Env(nil).Clone(); got == nil {
		t.Fatal("Clone of nil Env returned nil")
	}
}
