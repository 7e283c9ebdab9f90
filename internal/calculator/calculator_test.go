package calculator

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/dohr-michael/graphcalc/internal/calculus"
	"github.com/dohr-michael/graphcalc/internal/compile"
	"github.com/dohr-michael/graphcalc/internal/eval"
	"github.com/dohr-michael/graphcalc/internal/expr"
	"github.com/dohr-michael/graphcalc/internal/session"
	"github.com/dohr-michael/graphcalc/internal/storage/dirstore"
)

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	store := session.New(dirstore.New(t.TempDir()), session.Options{})
	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	return New(store, Options{})
}

func TestEvaluateRecordsHistory(t *testing.T) {
	ctx := context.Background()
	c := newCalculator(t)

	if err := c.Store().SetVar(ctx, "a", 4); err != nil {
		t.Fatalf("SetVar: %v", err)
	}
	res, err := c.Evaluate(ctx, "a^2 / 8")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Value != 2 || res.Result != "2" {
		t.Errorf("Evaluate = %+v", res)
	}

	h := c.Store().History()
	if len(h) != 1 || h[0] != (session.HistoryEntry{Expression: "a^2 / 8", Result: "2"}) {
		t.Errorf("History = %+v", h)
	}
}

func TestEvaluateFailureLeavesHistory(t *testing.T) {
	ctx := context.Background()
	c := newCalculator(t)

	for text, want := range map[string]error{
		"1/0":        eval.ErrDivisionByZero,
		"q + 1":      eval.ErrUndefinedVariable,
		"__import__": eval.ErrUndefinedVariable,
		"x = 3":      expr.ErrParse,
		"log(-1)":    eval.ErrDomain,
	} {
		if _, err := c.Evaluate(ctx, text); !errors.Is(err, want) {
			t.Errorf("Evaluate(%q) = %v, want %v", text, err, want)
		}
	}
	if n := len(c.Store().History()); n != 0 {
		t.Errorf("history has %d entries after failures", n)
	}
}

func TestDerive(t *testing.T) {
	c := newCalculator(t)

	got, err := c.Derive("x^2", "")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if got != "2*x" {
		t.Errorf("Derive = %q, want 2*x", got)
	}
	if _, err := c.Derive("x^2", "9"); !errors.Is(err, calculus.ErrDifferentiation) {
		t.Errorf("Derive bad variable = %v", err)
	}
}

func TestIntegrateDefaultsToXRange(t *testing.T) {
	ctx := context.Background()
	c := newCalculator(t)

	if err := c.Store().SetRange(ctx, session.AxisX, 0, 3); err != nil {
		t.Fatalf("SetRange: %v", err)
	}
	res, err := c.Integrate(ctx, "x^2", "", nil)
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if res.Lower != 0 || res.Upper != 3 || math.Abs(res.Value-9) > 1e-9 {
		t.Errorf("Integrate = %+v", res)
	}

	res, err = c.Integrate(ctx, "cos(t)", "t", &Bounds{Lower: 0, Upper: math.Pi / 2})
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if math.Abs(res.Value-1) > 1e-9 {
		t.Errorf("Integrate cos = %v", res.Value)
	}
}

func TestIntegrateAfterZoomOut(t *testing.T) {
	ctx := context.Background()
	c := newCalculator(t)

	for range 5 {
		if err := c.Store().ZoomOut(ctx); err != nil {
			t.Fatalf("ZoomOut: %v", err)
		}
	}
	r := c.Store().PlotRange().X.Max
	res, err := c.Integrate(ctx, "x^6", "", nil)
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	want := 2 * math.Pow(r, 7) / 7
	if math.Abs(res.Value-want)/want > 1e-9 {
		t.Errorf("Integrate = %v, want %v", res.Value, want)
	}
}

func TestPlot2D(t *testing.T) {
	c := newCalculator(t)

	s, err := c.Plot2D("1/x", 5)
	if err != nil {
		t.Fatalf("Plot2D: %v", err)
	}
	if len(s.X) != 5 || s.X[0] != -10 || s.X[4] != 10 {
		t.Errorf("X = %v", s.X)
	}
	if !math.IsNaN(s.Y[2]) || s.Y[4] != 0.1 {
		t.Errorf("Y = %v", s.Y)
	}

	if _, err := c.Plot2D("x + y", 5); !errors.Is(err, compile.ErrCompilation) {
		t.Errorf("Plot2D with y = %v, want ErrCompilation", err)
	}
}

func TestPlot3D(t *testing.T) {
	c := newCalculator(t)

	g, err := c.Plot3D("x*y", 0)
	if err != nil {
		t.Fatalf("Plot3D: %v", err)
	}
	if r, cols := g.Z.Dims(); r != DefaultSamples3D || cols != DefaultSamples3D {
		t.Errorf("dims = %dx%d", r, cols)
	}
	if got := g.Z.At(0, 0); got != 100 {
		t.Errorf("Z[0][0] = %v, want 100", got)
	}
}

func TestSetOptions(t *testing.T) {
	c := newCalculator(t)

	c.SetOptions(Options{Samples2D: 11})
	s, err := c.Plot2D("x", 0)
	if err != nil {
		t.Fatalf("Plot2D: %v", err)
	}
	if len(s.X) != 11 {
		t.Errorf("samples = %d, want 11", len(s.X))
	}
	if got := c.Options().Samples3D; got != DefaultSamples3D {
		t.Errorf("Samples3D = %d, want default", got)
	}
	if _, err := c.Plot2D("x", MaxSamples+1); err != nil {
		t.Fatalf("Plot2D: %v", err)
	}
}
