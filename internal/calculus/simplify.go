package calculus

import (
	"github.com/dohr-michael/graphcalc/internal/eval"
	"github.com/dohr-michael/graphcalc/internal/expr"
)

// Simplify rewrites e bottom-up with constant folding and the usual
// identities. Folding only happens when the folded value is finite, so
// expressions like 1/0 survive as written.
func Simplify(e expr.Expr) expr.Expr {
	switch n := e.(type) {
	case expr.Neg:
		return simplifyNeg(Simplify(n.X))
	case expr.Call:
		arg := Simplify(n.Arg)
		if c, ok := arg.(expr.Number); ok {
			if v, err := eval.Call(n.Func, c.Value); err == nil {
				return num(v)
			}
		}
		return expr.Call{Func: n.Func, Arg: arg}
	case expr.Binary:
		return simplifyBinary(n.Op, Simplify(n.Left), Simplify(n.Right))
	}
	return e
}

func constant(e expr.Expr) (float64, bool) {
	if n, ok := e.(expr.Number); ok {
		return n.Value, true
	}
	return 0, false
}

func isConst(e expr.Expr, v float64) bool {
	c, ok := constant(e)
	return ok && c == v
}

func simplifyNeg(x expr.Expr) expr.Expr {
	switch n := x.(type) {
	case expr.Number:
		return num(-n.Value)
	case expr.Neg:
		return n.X
	}
	return expr.Neg{X: x}
}

func simplifyBinary(op expr.Op, l, r expr.Expr) expr.Expr {
	if a, ok := constant(l); ok {
		if b, ok := constant(r); ok {
			if v, err := eval.Binary(op, a, b); err == nil {
				return num(v)
			}
			return expr.Binary{Op: op, Left: l, Right: r}
		}
	}
	switch op {
	case expr.Add:
		return simplifyAdd(l, r)
	case expr.Sub:
		return simplifySub(l, r)
	case expr.Mul:
		return simplifyMul(l, r)
	case expr.Div:
		return simplifyDiv(l, r)
	case expr.Pow:
		return simplifyPow(l, r)
	}
	return expr.Binary{Op: op, Left: l, Right: r}
}

func simplifyAdd(l, r expr.Expr) expr.Expr {
	switch {
	case isConst(l, 0):
		return r
	case isConst(r, 0):
		return l
	}
	if n, ok := r.(expr.Neg); ok {
		return simplifySub(l, n.X)
	}
	if c, ok := constant(r); ok && c < 0 {
		return sub(l, num(-c))
	}
	return add(l, r)
}

func simplifySub(l, r expr.Expr) expr.Expr {
	switch {
	case isConst(r, 0):
		return l
	case isConst(l, 0):
		return simplifyNeg(r)
	case expr.Equal(l, r):
		return num(0)
	}
	if n, ok := r.(expr.Neg); ok {
		return simplifyAdd(l, n.X)
	}
	return sub(l, r)
}

func simplifyMul(l, r expr.Expr) expr.Expr {
	switch {
	case isConst(l, 0), isConst(r, 0):
		return num(0)
	case isConst(l, 1):
		return r
	case isConst(r, 1):
		return l
	case isConst(l, -1):
		return simplifyNeg(r)
	case isConst(r, -1):
		return simplifyNeg(l)
	}
	// coefficient first
	if _, ok := constant(r); ok {
		if _, ok := constant(l); !ok {
			l, r = r, l
		}
	}
	if n, ok := l.(expr.Neg); ok {
		return simplifyNeg(simplifyMul(n.X, r))
	}
	if n, ok := r.(expr.Neg); ok {
		return simplifyNeg(simplifyMul(l, n.X))
	}
	// c1*(c2*u) => (c1*c2)*u
	if c1, ok := constant(l); ok {
		if inner, ok := r.(expr.Binary); ok && inner.Op == expr.Mul {
			if c2, ok := constant(inner.Left); ok {
				if v, err := eval.Binary(expr.Mul, c1, c2); err == nil {
					return simplifyMul(num(v), inner.Right)
				}
			}
		}
		if c1 < 0 {
			return simplifyNeg(simplifyMul(num(-c1), r))
		}
	}
	return mul(l, r)
}

func simplifyDiv(l, r expr.Expr) expr.Expr {
	switch {
	case isConst(r, 1):
		return l
	case isConst(l, 0) && !isConst(r, 0):
		return num(0)
	}
	if n, ok := l.(expr.Neg); ok {
		return simplifyNeg(simplifyDiv(n.X, r))
	}
	return div(l, r)
}

func simplifyPow(l, r expr.Expr) expr.Expr {
	switch {
	case isConst(r, 0):
		return num(1)
	case isConst(r, 1):
		return l
	case isConst(l, 1):
		return num(1)
	}
	if c, ok := constant(r); ok && c > 0 && isConst(l, 0) {
		return num(0)
	}
	return pow(l, r)
}
