// Package compile turns expression trees into vectorized numeric functions
// for plot sampling.
//
// The vector path applies the evaluator's scalar policy element-wise. Where
// the scalar evaluator would fail, the vector path yields NaN at that point
// instead, so a single pole does not discard a whole plot.
package compile

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dohr-michael/graphcalc/internal/eval"
	"github.com/dohr-michael/graphcalc/internal/expr"
)

var (
	ErrCompilation = errors.New("compilation failed")
	ErrShape       = errors.New("shape mismatch")
)

// Func1 evaluates a one-variable expression at every element of xs.
type Func1 func(xs []float64) []float64

// Func2 evaluates a two-variable expression at every (xs[i], ys[i]) pair.
type Func2 func(xs, ys []float64) ([]float64, error)

// node evaluates a compiled subtree at one point.
type node func(p *[2]float64) float64

// Compile1 compiles e as a function of variable. Names bound in env are
// folded as constants; variable shadows a binding of the same name.
func Compile1(e expr.Expr, variable string, env eval.Env) (Func1, error) {
	if err := checkNames(variable); err != nil {
		return nil, err
	}
	fn, err := build(e, []string{variable}, env)
	if err != nil {
		return nil, err
	}
	return func(xs []float64) []float64 {
		out := make([]float64, len(xs))
		var p [2]float64
		for i, x := range xs {
			p[0] = x
			out[i] = fn(&p)
		}
		return out
	}, nil
}

// Compile2 compiles e as a function of var1 and var2.
func Compile2(e expr.Expr, var1, var2 string, env eval.Env) (Func2, error) {
	if err := checkNames(var1, var2); err != nil {
		return nil, err
	}
	fn, err := build(e, []string{var1, var2}, env)
	if err != nil {
		return nil, err
	}
	return func(xs, ys []float64) ([]float64, error) {
		if len(xs) != len(ys) {
			return nil, fmt.Errorf("%w: %d x values, %d y values", ErrShape, len(xs), len(ys))
		}
		out := make([]float64, len(xs))
		var p [2]float64
		for i := range xs {
			p[0], p[1] = xs[i], ys[i]
			out[i] = fn(&p)
		}
		return out, nil
	}, nil
}

func checkNames(names ...string) error {
	for i, name := range names {
		e, err := expr.Parse(name)
		if err != nil {
			return fmt.Errorf("%w: invalid variable name %q", ErrCompilation, name)
		}
		if _, ok := e.(expr.Variable); !ok {
			return fmt.Errorf("%w: invalid variable name %q", ErrCompilation, name)
		}
		for _, prev := range names[:i] {
			if prev == name {
				return fmt.Errorf("%w: variable %q declared twice", ErrCompilation, name)
			}
		}
	}
	return nil
}

func build(e expr.Expr, vars []string, env eval.Env) (node, error) {
	var unbound []string
	for _, name := range expr.FreeVariables(e) {
		if indexOf(vars, name) < 0 {
			if _, ok := env[name]; !ok {
				unbound = append(unbound, name)
			}
		}
	}
	if len(unbound) > 0 {
		return nil, fmt.Errorf("%w: unbound variables %s", ErrCompilation, strings.Join(unbound, ", "))
	}
	return compileNode(e, vars, env)
}

func indexOf(vars []string, name string) int {
	for i, v := range vars {
		if v == name {
			return i
		}
	}
	return -1
}

func constNode(v float64) node {
	return func(*[2]float64) float64 { return v }
}

func compileNode(e expr.Expr, vars []string, env eval.Env) (node, error) {
	switch n := e.(type) {
	case expr.Number:
		return constNode(n.Value), nil
	case expr.Variable:
		if i := indexOf(vars, n.Name); i >= 0 {
			return func(p *[2]float64) float64 { return p[i] }, nil
		}
		return constNode(env[n.Name]), nil
	case expr.Neg:
		x, err := compileNode(n.X, vars, env)
		if err != nil {
			return nil, err
		}
		return func(p *[2]float64) float64 { return -x(p) }, nil
	case expr.Call:
		arg, err := compileNode(n.Arg, vars, env)
		if err != nil {
			return nil, err
		}
		fn := n.Func
		return func(p *[2]float64) float64 {
			a := arg(p)
			if math.IsNaN(a) {
				return a
			}
			v, err := eval.Call(fn, a)
			if err != nil {
				return math.NaN()
			}
			return v
		}, nil
	case expr.Binary:
		left, err := compileNode(n.Left, vars, env)
		if err != nil {
			return nil, err
		}
		right, err := compileNode(n.Right, vars, env)
		if err != nil {
			return nil, err
		}
		op := n.Op
		return func(p *[2]float64) float64 {
			a, b := left(p), right(p)
			if math.IsNaN(a) || math.IsNaN(b) {
				return math.NaN()
			}
			v, err := eval.Binary(op, a, b)
			if err != nil {
				return math.NaN()
			}
			return v
		}, nil
	}
	return nil, fmt.Errorf("%w: unsupported node %T", ErrCompilation, e)
}
