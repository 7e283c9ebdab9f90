package calculus

import (
	"fmt"
	"math"

	"github.com/dohr-michael/graphcalc/internal/eval"
	"github.com/dohr-michael/graphcalc/internal/expr"
)

// Integration defaults.
const (
	DefaultTolerance = 1e-8
	// DefaultRelTolerance bounds the error relative to each piece's own
	// magnitude, so large integrals stop refining once rounding dominates.
	DefaultRelTolerance = 1e-12
	DefaultMaxDepth  = 50
	DefaultMaxEvals  = 200000

	// minDepth forces a few subdivisions before the error estimate is
	// trusted, so periodic integrands cannot fool the first step.
	minDepth = 4
)

// Options tunes Integrate. Zero fields take the defaults above.
type Options struct {
	Tolerance    float64
	RelTolerance float64
	MaxDepth     int
	MaxEvals     int
	Env          eval.Env // bindings for every free variable other than the integration variable
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.RelTolerance <= 0 {
		o.RelTolerance = DefaultRelTolerance
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxEvals <= 0 {
		o.MaxEvals = DefaultMaxEvals
	}
	return o
}

// Result is a definite integral with its estimated absolute error.
type Result struct {
	Value  float64
	AbsErr float64
}

// Integrate computes the definite integral of e over [lower, upper] with
// respect to variable using adaptive Simpson quadrature.
func Integrate(e expr.Expr, variable string, lower, upper float64, opts Options) (Result, error) {
	if err := validVariable(variable); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrIntegration, err)
	}
	if !finite(lower) || !finite(upper) {
		return Result{}, fmt.Errorf("%w: bounds must be finite", ErrIntegration)
	}
	if lower > upper {
		return Result{}, fmt.Errorf("%w: lower bound %s exceeds upper bound %s",
			ErrIntegration, expr.FormatNumber(lower), expr.FormatNumber(upper))
	}
	if lower == upper {
		return Result{}, nil
	}

	opts = opts.withDefaults()
	in := &integrator{
		expr:     e,
		variable: variable,
		env:      opts.Env.Clone(),
		maxDepth: opts.MaxDepth,
		maxEvals: opts.MaxEvals,
		relTol:   opts.RelTolerance,
	}

	mid := lower + (upper-lower)/2
	fa, err := in.eval(lower)
	if err != nil {
		return Result{}, err
	}
	fm, err := in.eval(mid)
	if err != nil {
		return Result{}, err
	}
	fb, err := in.eval(upper)
	if err != nil {
		return Result{}, err
	}
	whole := (upper - lower) / 6 * (fa + 4*fm + fb)
	value, err := in.step(lower, fa, mid, fm, upper, fb, whole, opts.Tolerance, 0)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: value, AbsErr: in.absErr}, nil
}

type integrator struct {
	expr     expr.Expr
	variable string
	env      eval.Env
	evals    int
	maxDepth int
	maxEvals int
	relTol   float64
	absErr   float64
}

func (in *integrator) eval(x float64) (float64, error) {
	in.evals++
	if in.evals > in.maxEvals {
		return 0, fmt.Errorf("%w: evaluation budget of %d exhausted", ErrIntegration, in.maxEvals)
	}
	in.env[in.variable] = x
	v, err := eval.Evaluate(in.expr, in.env)
	if err != nil {
		return 0, fmt.Errorf("%w: at %s=%s: %w", ErrIntegration, in.variable, expr.FormatNumber(x), err)
	}
	return v, nil
}

// step refines Simpson's estimate `whole` over [a, b] with midpoint m.
func (in *integrator) step(a, fa, m, fm, b, fb, whole, tol float64, depth int) (float64, error) {
	lm, rm := a+(m-a)/2, m+(b-m)/2
	if !(a < lm && lm < m && m < rm && rm < b) {
		return 0, fmt.Errorf("%w: interval collapsed near %s", ErrIntegration, expr.FormatNumber(m))
	}
	flm, err := in.eval(lm)
	if err != nil {
		return 0, err
	}
	frm, err := in.eval(rm)
	if err != nil {
		return 0, err
	}
	left := (m - a) / 6 * (fa + 4*flm + fm)
	right := (b - m) / 6 * (fm + 4*frm + fb)
	delta := left + right - whole
	if !finite(delta) {
		return 0, fmt.Errorf("%w: non-finite partial sum near %s", ErrIntegration, expr.FormatNumber(m))
	}
	limit := max(tol, in.relTol*math.Abs(left+right))
	if depth >= minDepth && math.Abs(delta) <= 15*limit {
		in.absErr += math.Abs(delta) / 15
		return left + right + delta/15, nil
	}
	if depth >= in.maxDepth {
		return 0, fmt.Errorf("%w: tolerance not met on [%s, %s] after %d subdivisions",
			ErrIntegration, expr.FormatNumber(a), expr.FormatNumber(b), depth)
	}
	l, err := in.step(a, fa, lm, flm, m, fm, left, tol/2, depth+1)
	if err != nil {
		return 0, err
	}
	r, err := in.step(m, fm, rm, frm, b, fb, right, tol/2, depth+1)
	if err != nil {
		return 0, err
	}
	sum := l + r
	if !finite(sum) {
		return 0, fmt.Errorf("%w: non-finite partial sum on [%s, %s]",
			ErrIntegration, expr.FormatNumber(a), expr.FormatNumber(b))
	}
	return sum, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
