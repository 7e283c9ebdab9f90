// Package eval computes the value of an expression tree against a
// restricted variable namespace.
package eval

import (
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/dohr-michael/graphcalc/internal/expr"
)

var (
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrDomain            = errors.New("math domain error")
)

// Env maps variable names to values.
type Env map[string]float64

// Clone returns an independent copy. A nil Env clones to an empty one.
func (e Env) Clone() Env {
	out := make(Env, len(e))
	maps.Copy(out, e)
	return out
}

// Evaluate computes e under env. It never returns a non-finite value.
func Evaluate(e expr.Expr, env Env) (float64, error) {
	switch n := e.(type) {
	case expr.Number:
		return n.Value, nil
	case expr.Variable:
		v, ok := env[n.Name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUndefinedVariable, n.Name)
		}
		return v, nil
	case expr.Neg:
		x, err := Evaluate(n.X, env)
		if err != nil {
			return 0, err
		}
		return -x, nil
	case expr.Call:
		x, err := Evaluate(n.Arg, env)
		if err != nil {
			return 0, err
		}
		return Call(n.Func, x)
	case expr.Binary:
		a, err := Evaluate(n.Left, env)
		if err != nil {
			return 0, err
		}
		b, err := Evaluate(n.Right, env)
		if err != nil {
			return 0, err
		}
		return Binary(n.Op, a, b)
	case nil:
		return 0, fmt.Errorf("%w: empty expression", ErrDomain)
	}
	return 0, fmt.Errorf("%w: unsupported node %T", ErrDomain, e)
}

// Binary applies op to a and b under the calculator's numeric policy.
func Binary(op expr.Op, a, b float64) (float64, error) {
	var r float64
	switch op {
	case expr.Add:
		r = a + b
	case expr.Sub:
		r = a - b
	case expr.Mul:
		r = a * b
	case expr.Div:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		r = a / b
	case expr.Pow:
		if a == 0 && b < 0 {
			return 0, fmt.Errorf("%w: zero raised to a negative power", ErrDivisionByZero)
		}
		r = math.Pow(a, b)
	default:
		return 0, fmt.Errorf("%w: unknown operator %q", ErrDomain, rune(op))
	}
	if !finite(r) {
		return 0, fmt.Errorf("%w: %s %c %s is not finite", ErrDomain, expr.FormatNumber(a), rune(op), expr.FormatNumber(b))
	}
	return r, nil
}

// Call applies fn to x under the calculator's numeric policy.
func Call(fn expr.Func, x float64) (float64, error) {
	if fn == expr.Log && x <= 0 {
		return 0, fmt.Errorf("%w: log(%s)", ErrDomain, expr.FormatNumber(x))
	}
	r := fn.Apply(x)
	if !finite(r) {
		return 0, fmt.Errorf("%w: %s(%s) is not finite", ErrDomain, fn, expr.FormatNumber(x))
	}
	return r, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
