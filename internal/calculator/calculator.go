// Package calculator strings the expression pipeline together:
// text -> parse -> {evaluate, differentiate, integrate, sample}, against the
// session's active variables.
package calculator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dohr-michael/graphcalc/internal/calculus"
	"github.com/dohr-michael/graphcalc/internal/compile"
	"github.com/dohr-michael/graphcalc/internal/eval"
	"github.com/dohr-michael/graphcalc/internal/expr"
	"github.com/dohr-michael/graphcalc/internal/session"
)

const (
	DefaultSamples2D = 400
	DefaultSamples3D = 100
	// MaxSamples caps a single axis so one request cannot allocate unbounded grids.
	MaxSamples = 4096
)

// Options configures a Calculator. Zero values take defaults.
type Options struct {
	Integration calculus.Options
	Samples2D   int
	Samples3D   int
}

// Calculator is safe for concurrent use; all state lives in the session store.
type Calculator struct {
	store *session.Store
	opts  atomic.Pointer[Options]
}

// New creates a Calculator over store.
func New(store *session.Store, opts Options) *Calculator {
	c := &Calculator{store: store}
	c.SetOptions(opts)
	return c
}

// SetOptions replaces the sampling and integration settings. Requests
// already running keep the settings they started with.
func (c *Calculator) SetOptions(opts Options) {
	if opts.Samples2D <= 0 {
		opts.Samples2D = DefaultSamples2D
	}
	if opts.Samples3D <= 0 {
		opts.Samples3D = DefaultSamples3D
	}
	c.opts.Store(&opts)
}

// Options returns the active settings.
func (c *Calculator) Options() Options { return *c.opts.Load() }

// Store returns the underlying session store.
func (c *Calculator) Store() *session.Store { return c.store }

// Evaluation is the outcome of Evaluate.
type Evaluation struct {
	Expression string  `json:"expression"`
	Value      float64 `json:"value"`
	Result     string  `json:"result"`
}

// Evaluate computes text against the active environment, appends it to the
// history and persists the session. Parse and evaluation failures leave the
// session untouched.
func (c *Calculator) Evaluate(ctx context.Context, text string) (Evaluation, error) {
	e, err := expr.Parse(text)
	if err != nil {
		return Evaluation{}, err
	}
	v, err := eval.Evaluate(e, c.store.Env())
	if err != nil {
		return Evaluation{}, err
	}

	res := Evaluation{Expression: text, Value: v, Result: expr.FormatNumber(v)}
	c.store.AppendHistory(res.Expression, res.Result)
	if err := c.store.Persist(ctx); err != nil {
		return res, fmt.Errorf("evaluate: %w", err)
	}
	slog.Debug("evaluated", "expression", text, "result", res.Result)
	return res, nil
}

// Derive returns the rendered derivative of text with respect to variable
// ("x" when empty).
func (c *Calculator) Derive(text, variable string) (string, error) {
	if variable == "" {
		variable = "x"
	}
	e, err := expr.Parse(text)
	if err != nil {
		return "", err
	}
	d, err := calculus.Differentiate(e, variable)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// Bounds are explicit integration limits.
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Integration is the outcome of Integrate.
type Integration struct {
	Expression string  `json:"expression"`
	Variable   string  `json:"variable"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Value      float64 `json:"value"`
	AbsErr     float64 `json:"abs_err"`
}

// Integrate computes the definite integral of text. Without bounds the
// session's x range is used.
func (c *Calculator) Integrate(ctx context.Context, text, variable string, bounds *Bounds) (Integration, error) {
	if err := ctx.Err(); err != nil {
		return Integration{}, err
	}
	if variable == "" {
		variable = "x"
	}
	e, err := expr.Parse(text)
	if err != nil {
		return Integration{}, err
	}
	if bounds == nil {
		r := c.store.PlotRange().X
		bounds = &Bounds{Lower: r.Min, Upper: r.Max}
	}

	opts := c.opts.Load().Integration
	opts.Env = c.store.Env()
	res, err := calculus.Integrate(e, variable, bounds.Lower, bounds.Upper, opts)
	if err != nil {
		return Integration{}, err
	}
	return Integration{
		Expression: text,
		Variable:   variable,
		Lower:      bounds.Lower,
		Upper:      bounds.Upper,
		Value:      res.Value,
		AbsErr:     res.AbsErr,
	}, nil
}

func clampSamples(n, def int) int {
	switch {
	case n <= 0:
		return def
	case n > MaxSamples:
		return MaxSamples
	}
	return n
}

// Plot2D samples text as a function of x over the session's x range.
func (c *Calculator) Plot2D(text string, samples int) (compile.Series, error) {
	e, err := expr.Parse(text)
	if err != nil {
		return compile.Series{}, err
	}
	f, err := compile.Compile1(e, "x", c.store.Env())
	if err != nil {
		return compile.Series{}, err
	}
	r := c.store.PlotRange().X
	return compile.Sample1(f, compile.Range{Min: r.Min, Max: r.Max}, clampSamples(samples, c.opts.Load().Samples2D)), nil
}

// Plot3D samples text as a function of x and y over both session ranges.
func (c *Calculator) Plot3D(text string, samples int) (*compile.Grid, error) {
	e, err := expr.Parse(text)
	if err != nil {
		return nil, err
	}
	f, err := compile.Compile2(e, "x", "y", c.store.Env())
	if err != nil {
		return nil, err
	}
	pr := c.store.PlotRange()
	n := min(clampSamples(samples, c.opts.Load().Samples3D), 1024)
	return compile.Sample2(f,
		compile.Range{Min: pr.X.Min, Max: pr.X.Max},
		compile.Range{Min: pr.Y.Min, Max: pr.Y.Max},
		n)
}
