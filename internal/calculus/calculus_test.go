package calculus

import (
	"errors"
	"math"
	"testing"

	"github.com/dohr-michael/graphcalc/internal/eval"
	"github.com/dohr-michael/graphcalc/internal/expr"
)

func TestDifferentiate(t *testing.T) {
	tests := []struct {
		in, v, want string
	}{
		{"x^2", "x", "2*x"},
		{"x**3", "x", "3*x^2"},
		{"3*x + 1", "x", "3"},
		{"sin(x)", "x", "cos(x)"},
		{"cos(x)", "x", "-sin(x)"},
		{"log(x)", "x", "1/x"},
		{"tan(x)", "x", "1/cos(x)^2"},
		{"a*x", "x", "a"},
		{"y^2 + x", "y", "2*y"},
		{"5", "x", "0"},
	}
	for _, tt := range tests {
		d, err := Differentiate(expr.MustParse(tt.in), tt.v)
		if err != nil {
			t.Fatalf("Differentiate(%q): %v", tt.in, err)
		}
		if got := d.String(); got != tt.want {
			t.Errorf("d/d%s %s = %q, want %q", tt.v, tt.in, got, tt.want)
		}
	}
}

// Symbolic derivatives must agree with a central difference.
func TestDifferentiateNumerically(t *testing.T) {
	cases := []string{
		"x^x",
		"2^x",
		"sin(x)*cos(x)",
		"(x^2 + 1)/(x - 3)",
		"log(x^2 + 1)",
		"tan(x/2) - x",
		"-x^3",
	}
	for _, in := range cases {
		e := expr.MustParse(in)
		d, err := Differentiate(e, "x")
		if err != nil {
			t.Fatalf("Differentiate(%q): %v", in, err)
		}
		for _, x := range []float64{0.4, 1.3, 2.2} {
			const h = 1e-6
			hi, err1 := eval.Evaluate(e, eval.Env{"x": x + h})
			lo, err2 := eval.Evaluate(e, eval.Env{"x": x - h})
			got, err3 := eval.Evaluate(d, eval.Env{"x": x})
			if err := errors.Join(err1, err2, err3); err != nil {
				t.Fatalf("%s at %v: %v", in, x, err)
			}
			want := (hi - lo) / (2 * h)
			if math.Abs(got-want) > 1e-4*math.Max(1, math.Abs(want)) {
				t.Errorf("d/dx %s at %v = %v, want ~%v (derivative %s)", in, x, got, want, d)
			}
		}
	}
}

func TestDifferentiateInvalidVariable(t *testing.T) {
	for _, v := range []string{"", "1x", "sin", "x y"} {
		if _, err := Differentiate(expr.MustParse("x"), v); !errors.Is(err, ErrDifferentiation) {
			t.Errorf("Differentiate(var=%q) error = %v, want ErrDifferentiation", v, err)
		}
	}
}

func TestSimplify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"0 + x", "x"},
		{"x * 1", "x"},
		{"x ^ 1", "x"},
		{"x ^ 0", "1"},
		{"1 ^ x", "1"},
		{"-(-x)", "x"},
		{"2 * (3 * x)", "6*x"},
		{"x * 4", "4*x"},
		{"x - x", "0"},
		{"2 + 3 * 4", "14"},
		{"1 / 0", "1/0"},
		{"log(0)", "log(0)"},
		{"x + -y", "x - y"},
	}
	for _, tt := range tests {
		if got := Simplify(expr.MustParse(tt.in)).String(); got != tt.want {
			t.Errorf("Simplify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIntegrate(t *testing.T) {
	tests := []struct {
		in           string
		lower, upper float64
		want         float64
	}{
		{"x^2", 0, 1, 1.0 / 3},
		{"sin(x)", 0, math.Pi, 2},
		{"1/x", 1, 2, math.Ln2},
		{"a*x", 0, 2, 6},
		{"cos(x)", -10, 10, 2 * math.Sin(10)},
	}
	for _, tt := range tests {
		res, err := Integrate(expr.MustParse(tt.in), "x", tt.lower, tt.upper, Options{Env: eval.Env{"a": 3}})
		if err != nil {
			t.Fatalf("Integrate(%q): %v", tt.in, err)
		}
		if math.Abs(res.Value-tt.want) > 1e-7 {
			t.Errorf("Integrate(%q) = %v, want %v", tt.in, res.Value, tt.want)
		}
		if res.AbsErr < 0 || res.AbsErr > 1e-6 {
			t.Errorf("Integrate(%q) AbsErr = %v", tt.in, res.AbsErr)
		}
	}
}

// xlogx is an antiderivative of x*log(x).
func xlogx(x float64) float64 { return x*x/2*math.Log(x) - x*x/4 }

func TestIntegrateLargeMagnitude(t *testing.T) {
	const r = 24.8832 // x range after five zoom-outs from (-10, 10)
	tests := []struct {
		in           string
		lower, upper float64
		want         float64
	}{
		{"x^4", 0, 100, 2e9},
		{"x^6", -r, r, 2 * math.Pow(r, 7) / 7},
		{"x^2", 0, 1000, 1e9 / 3},
		{"x*log(x)", 1, 1e4, xlogx(1e4) - xlogx(1)},
	}
	for _, tt := range tests {
		res, err := Integrate(expr.MustParse(tt.in), "x", tt.lower, tt.upper, Options{})
		if err != nil {
			t.Fatalf("Integrate(%q, %v, %v): %v", tt.in, tt.lower, tt.upper, err)
		}
		if rel := math.Abs(res.Value-tt.want) / tt.want; rel > 1e-9 {
			t.Errorf("Integrate(%q) = %v, want %v (rel err %g)", tt.in, res.Value, tt.want, rel)
		}
		if res.AbsErr > 1e-9*tt.want {
			t.Errorf("Integrate(%q) AbsErr = %v", tt.in, res.AbsErr)
		}
	}
}

func TestIntegrateEdges(t *testing.T) {
	e := expr.MustParse("x")
	res, err := Integrate(e, "x", 2, 2, Options{})
	if err != nil || res.Value != 0 {
		t.Fatalf("empty interval = %v, %v; want 0, nil", res, err)
	}
	if _, err := Integrate(e, "x", 3, 1, Options{}); !errors.Is(err, ErrIntegration) {
		t.Errorf("reversed bounds error = %v", err)
	}
	if _, err := Integrate(e, "x", 0, math.Inf(1), Options{}); !errors.Is(err, ErrIntegration) {
		t.Errorf("infinite bound error = %v", err)
	}
}

func TestIntegratePole(t *testing.T) {
	tests := []struct {
		in           string
		lower, upper float64
	}{
		{"1/x", -1, 1},
		{"1/x", 0, 1},
		{"1/(x - 0.3)^2", 0, 1},
	}
	for _, tt := range tests {
		_, err := Integrate(expr.MustParse(tt.in), "x", tt.lower, tt.upper, Options{})
		if !errors.Is(err, ErrIntegration) {
			t.Errorf("Integrate(%q) error = %v, want ErrIntegration", tt.in, err)
		}
	}
}

func TestIntegrateWrapsEvaluatorError(t *testing.T) {
	_, err := Integrate(expr.MustParse("x + b"), "x", 0, 1, Options{})
	if !errors.Is(err, ErrIntegration) || !errors.Is(err, eval.ErrUndefinedVariable) {
		t.Fatalf("error = %v, want ErrIntegration wrapping ErrUndefinedVariable", err)
	}
}

func TestIntegrateBudget(t *testing.T) {
	_, err := Integrate(expr.MustParse("sin(1/x)"), "x", 0.001, 1, Options{MaxEvals: 50})
	if !errors.Is(err, ErrIntegration) {
		t.Fatalf("error = %v, want budget exhaustion", err)
	}
}
