package expr

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		in   string
		want Expr
	}{
		{"1 + 2 * 3", Binary{Add, Number{1}, Binary{Mul, Number{2}, Number{3}}}},
		{"8 - 3 - 2", Binary{Sub, Binary{Sub, Number{8}, Number{3}}, Number{2}}},
		{"2 ^ 3 ^ 2", Binary{Pow, Number{2}, Binary{Pow, Number{3}, Number{2}}}},
		{"2 ** 3", Binary{Pow, Number{2}, Number{3}}},
		{"-2^2", Binary{Pow, Neg{Number{2}}, Number{2}}},
		{"+x", Variable{"x"}},
		{"sin(x) / 2", Binary{Div, Call{Sin, Variable{"x"}}, Number{2}}},
		{"(1 + 2) * 3", Binary{Mul, Binary{Add, Number{1}, Number{2}}, Number{3}}},
		{"1.5e3", Number{1500}},
		{".5", Number{0.5}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if !Equal(got, tt.want) {
			t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		in      string
		pos     int
		message string
	}{
		{"", 0, "empty expression"},
		{"1 +", 3, "unexpected end"},
		{"(1 + 2", 0, "missing closing parenthesis"},
		{"1 + 2)", 5, "unbalanced ')'"},
		{"2x", 1, "missing operator"},
		{"x = 1", 2, "assignment"},
		{"1; 2", 1, "separators"},
		{"foo(1)", 0, "unknown function"},
		{"sin x", 0, "parenthesized argument"},
		{"x.y", 1, "member access"},
		{"1 $ 2", 2, "unexpected character"},
		{"()", 0, "empty parentheses"},
		{"* 2", 0, "unexpected"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.in)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", tt.in)
			continue
		}
		if !errors.Is(err, ErrParse) {
			t.Errorf("Parse(%q) error %v does not match ErrParse", tt.in, err)
		}
		var perr *Error
		if !errors.As(err, &perr) {
			t.Fatalf("Parse(%q) error %T is not *Error", tt.in, err)
		}
		if perr.Pos != tt.pos {
			t.Errorf("Parse(%q) pos = %d, want %d", tt.in, perr.Pos, tt.pos)
		}
		if !strings.Contains(perr.Msg, tt.message) {
			t.Errorf("Parse(%q) msg = %q, want it to contain %q", tt.in, perr.Msg, tt.message)
		}
	}
}

func TestParseDeclared(t *testing.T) {
	if _, err := Parse("x * y", Declared("x", "y")); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err := Parse("x * z", Declared("x", "y"))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for undeclared name, got %v", err)
	}
	// functions are always available
	if _, err := Parse("cos(x)", Declared("x")); err != nil {
		t.Fatalf("Parse: %v", err)
	}
}

func TestParseDeepNesting(t *testing.T) {
	in := strings.Repeat("(", 1000) + "1" + strings.Repeat(")", 1000)
	if _, err := Parse(in); !errors.Is(err, ErrParse) {
		t.Fatalf("expected nesting error, got %v", err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1+2*3", "1 + 2*3"},
		{"(1+2)*3", "(1 + 2)*3"},
		{"a-(b-c)", "a - (b - c)"},
		{"a/(b*c)", "a/(b*c)"},
		{"2^3^2", "2^3^2"},
		{"(2^3)^2", "(2^3)^2"},
		{"-x^2", "(-x)^2"},
		{"-(x^2)", "-(x^2)"},
		{"sin(x)**2", "sin(x)^2"},
		{"log(x + 1)", "log(x + 1)"},
	}
	for _, tt := range tests {
		e := MustParse(tt.in)
		got := e.String()
		if got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.in, got, tt.want)
		}
		back, err := Parse(got)
		if err != nil {
			t.Fatalf("reparse %q: %v", got, err)
		}
		if !Equal(back, e) {
			t.Errorf("reparse %q changed tree: %s", got, back)
		}
	}
}

func TestFreeVariables(t *testing.T) {
	got := FreeVariables(MustParse("y * sin(x) + x / a"))
	if diff := cmp.Diff([]string{"a", "x", "y"}, got); diff != "" {
		t.Errorf("FreeVariables mismatch (-want +got):\n%s", diff)
	}
	if got := FreeVariables(MustParse("1 + 2")); len(got) != 0 {
		t.Errorf("FreeVariables(const) = %v, want empty", got)
	}
	if !DependsOn(MustParse("3 * cos(t)"), "t") {
		t.Error("DependsOn(t) = false")
	}
}

func TestFormatNumber(t *testing.T) {
	for in, want := range map[float64]string{3: "3", 0.5: "0.5", 1e21: "1e+21", -2.25: "-2.25"} {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}
