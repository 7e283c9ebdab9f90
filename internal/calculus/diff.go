// Package calculus implements symbolic differentiation, algebraic
// simplification and adaptive numerical integration over expression trees.
package calculus

import (
	"errors"
	"fmt"

	"github.com/dohr-michael/graphcalc/internal/expr"
)

var (
	ErrDifferentiation = errors.New("differentiation failed")
	ErrIntegration     = errors.New("integration failed")
)

// Differentiate returns the simplified derivative of e with respect to
// variable. Every other variable is treated as a constant.
func Differentiate(e expr.Expr, variable string) (expr.Expr, error) {
	if err := validVariable(variable); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDifferentiation, err)
	}
	d, err := derive(e, variable)
	if err != nil {
		return nil, err
	}
	return Simplify(d), nil
}

func validVariable(name string) error {
	if name == "" {
		return errors.New("empty variable name")
	}
	e, err := expr.Parse(name)
	if err != nil {
		return fmt.Errorf("invalid variable name %q", name)
	}
	if _, ok := e.(expr.Variable); !ok {
		return fmt.Errorf("invalid variable name %q", name)
	}
	return nil
}

func derive(e expr.Expr, v string) (expr.Expr, error) {
	switch n := e.(type) {
	case expr.Number:
		return num(0), nil
	case expr.Variable:
		if n.Name == v {
			return num(1), nil
		}
		return num(0), nil
	case expr.Neg:
		dx, err := derive(n.X, v)
		if err != nil {
			return nil, err
		}
		return expr.Neg{X: dx}, nil
	case expr.Call:
		du, err := derive(n.Arg, v)
		if err != nil {
			return nil, err
		}
		return deriveCall(n, du)
	case expr.Binary:
		return deriveBinary(n, v)
	}
	return nil, fmt.Errorf("%w: unsupported node %T", ErrDifferentiation, e)
}

// deriveCall applies the chain rule for the fixed unary functions.
func deriveCall(c expr.Call, du expr.Expr) (expr.Expr, error) {
	u := c.Arg
	switch c.Func {
	case expr.Sin:
		return mul(expr.Call{Func: expr.Cos, Arg: u}, du), nil
	case expr.Cos:
		return mul(expr.Neg{X: expr.Call{Func: expr.Sin, Arg: u}}, du), nil
	case expr.Tan:
		return div(du, pow(expr.Call{Func: expr.Cos, Arg: u}, num(2))), nil
	case expr.Log:
		return div(du, u), nil
	}
	return nil, fmt.Errorf("%w: unsupported function %s", ErrDifferentiation, c.Func)
}

func deriveBinary(b expr.Binary, v string) (expr.Expr, error) {
	u, w := b.Left, b.Right
	du, err := derive(u, v)
	if err != nil {
		return nil, err
	}
	dw, err := derive(w, v)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case expr.Add:
		return add(du, dw), nil
	case expr.Sub:
		return sub(du, dw), nil
	case expr.Mul:
		return add(mul(du, w), mul(u, dw)), nil
	case expr.Div:
		return div(sub(mul(du, w), mul(u, dw)), pow(w, num(2))), nil
	case expr.Pow:
		switch {
		case !expr.DependsOn(w, v):
			// w * u^(w-1) * u'
			return mul(mul(w, pow(u, sub(w, num(1)))), du), nil
		case !expr.DependsOn(u, v):
			// u^w * log(u) * w'
			return mul(mul(b, expr.Call{Func: expr.Log, Arg: u}), dw), nil
		default:
			// u^w * (w' * log(u) + w * u' / u)
			return mul(b, add(mul(dw, expr.Call{Func: expr.Log, Arg: u}), div(mul(w, du), u))), nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported operator %q", ErrDifferentiation, rune(b.Op))
}

func num(v float64) expr.Expr     { return expr.Number{Value: v} }
func add(a, b expr.Expr) expr.Expr { return expr.Binary{Op: expr.Add, Left: a, Right: b} }
func sub(a, b expr.Expr) expr.Expr { return expr.Binary{Op: expr.Sub, Left: a, Right: b} }
func mul(a, b expr.Expr) expr.Expr { return expr.Binary{Op: expr.Mul, Left: a, Right: b} }
func div(a, b expr.Expr) expr.Expr { return expr.Binary{Op: expr.Div, Left: a, Right: b} }
func pow(a, b expr.Expr) expr.Expr { return expr.Binary{Op: expr.Pow, Left: a, Right: b} }
