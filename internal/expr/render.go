package expr

import (
	"math"
	"strconv"
	"strings"
)

const (
	precSum = iota + 1
	precProduct
	precPower
	precUnary
	precAtom
)

// String renders e in the input syntax with the minimum parentheses needed
// to reparse to the same tree.
func String(e Expr) string {
	var b strings.Builder
	write(&b, e)
	return b.String()
}

// FormatNumber renders a float the way results are shown to users.
func FormatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func precedence(e Expr) int {
	switch n := e.(type) {
	case Number:
		if math.Signbit(n.Value) {
			return precUnary
		}
		return precAtom
	case Neg:
		return precUnary
	case Binary:
		switch n.Op {
		case Add, Sub:
			return precSum
		case Mul, Div:
			return precProduct
		case Pow:
			return precPower
		}
	}
	return precAtom
}

func write(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case Number:
		b.WriteString(FormatNumber(n.Value))
	case Variable:
		b.WriteString(n.Name)
	case Call:
		b.WriteString(string(n.Func))
		b.WriteByte('(')
		write(b, n.Arg)
		b.WriteByte(')')
	case Neg:
		b.WriteByte('-')
		// "--x" would still parse, but reads badly.
		writeParen(b, n.X, precedence(n.X) <= precUnary)
	case Binary:
		p := precedence(n)
		left := precedence(n.Left) < p
		right := precedence(n.Right) <= p
		if n.Op == Pow {
			left = precedence(n.Left) < precAtom
			right = precedence(n.Right) < precPower
		}
		writeParen(b, n.Left, left)
		switch n.Op {
		case Add, Sub:
			b.WriteByte(' ')
			b.WriteByte(byte(n.Op))
			b.WriteByte(' ')
		default:
			b.WriteByte(byte(n.Op))
		}
		writeParen(b, n.Right, right)
	}
}

func writeParen(b *strings.Builder, e Expr, paren bool) {
	if paren {
		b.WriteByte('(')
	}
	write(b, e)
	if paren {
		b.WriteByte(')')
	}
}
