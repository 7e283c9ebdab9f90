// Package expr parses calculator input into an immutable expression tree.
//
// The grammar is closed: number literals, variable references, the unary
// functions sin, cos, tan and log, the binary operators + - * / ^ and
// parentheses. Nothing else is accepted, so the tree can never reach host
// capabilities beyond arithmetic.
package expr

import (
	"math"
	"sort"
)

// Expr is a node of an expression tree. Trees are never mutated after
// construction; transforms build new trees.
type Expr interface {
	String() string
	isExpr()
}

// Number is a floating point literal.
type Number struct {
	Value float64
}

// Variable is a reference to a named binding.
type Variable struct {
	Name string
}

// Func names one of the fixed unary functions.
type Func string

const (
	Sin Func = "sin"
	Cos Func = "cos"
	Tan Func = "tan"
	Log Func = "log"
)

// Funcs lists the supported functions in a stable order.
var Funcs = []Func{Sin, Cos, Tan, Log}

// LookupFunc reports whether name is a supported function.
func LookupFunc(name string) (Func, bool) {
	for _, f := range Funcs {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// Apply computes f(x) with plain IEEE semantics. Log is the natural logarithm.
func (f Func) Apply(x float64) float64 {
	switch f {
	case Sin:
		return math.Sin(x)
	case Cos:
		return math.Cos(x)
	case Tan:
		return math.Tan(x)
	case Log:
		return math.Log(x)
	}
	return math.NaN()
}

// Call applies a function to a single argument.
type Call struct {
	Func Func
	Arg  Expr
}

// Neg is unary negation.
type Neg struct {
	X Expr
}

// Op is a binary operator.
type Op byte

const (
	Add Op = '+'
	Sub Op = '-'
	Mul Op = '*'
	Div Op = '/'
	Pow Op = '^'
)

// Binary applies Op to two operands.
type Binary struct {
	Op          Op
	Left, Right Expr
}

func (Number) isExpr()   {}
func (Variable) isExpr() {}
func (Call) isExpr()     {}
func (Neg) isExpr()      {}
func (Binary) isExpr()   {}

func (n Number) String() string   { return String(n) }
func (v Variable) String() string { return String(v) }
func (c Call) String() string     { return String(c) }
func (n Neg) String() string      { return String(n) }
func (b Binary) String() string   { return String(b) }

// FreeVariables returns the sorted, de-duplicated names referenced by e.
func FreeVariables(e Expr) []string {
	seen := map[string]struct{}{}
	collectVariables(e, seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectVariables(e Expr, out map[string]struct{}) {
	switch n := e.(type) {
	case Variable:
		out[n.Name] = struct{}{}
	case Call:
		collectVariables(n.Arg, out)
	case Neg:
		collectVariables(n.X, out)
	case Binary:
		collectVariables(n.Left, out)
		collectVariables(n.Right, out)
	}
}

// DependsOn reports whether e references the variable name.
func DependsOn(e Expr, name string) bool {
	switch n := e.(type) {
	case Variable:
		return n.Name == name
	case Call:
		return DependsOn(n.Arg, name)
	case Neg:
		return DependsOn(n.X, name)
	case Binary:
		return DependsOn(n.Left, name) || DependsOn(n.Right, name)
	}
	return false
}

// Equal reports structural equality. Number literals compare by value.
func Equal(a, b Expr) bool {
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		return ok && x.Value == y.Value
	case Variable:
		y, ok := b.(Variable)
		return ok && x.Name == y.Name
	case Call:
		y, ok := b.(Call)
		return ok && x.Func == y.Func && Equal(x.Arg, y.Arg)
	case Neg:
		y, ok := b.(Neg)
		return ok && Equal(x.X, y.X)
	case Binary:
		y, ok := b.(Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	}
	return false
}
