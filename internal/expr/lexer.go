package expr

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrParse is matched by every error returned from Parse.
var ErrParse = errors.New("parse error")

// Error describes malformed or disallowed input.
type Error struct {
	Pos int // byte offset into the input
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

func (e *Error) Is(target error) bool { return target == ErrParse }

func errorf(pos int, format string, args ...any) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// tokenize splits src into tokens. `**` is folded into the caret token.
func tokenize(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '+':
			tokens = append(tokens, token{kind: tokPlus, text: "+", pos: i})
			i++
		case c == '-':
			tokens = append(tokens, token{kind: tokMinus, text: "-", pos: i})
			i++
		case c == '*':
			if i+1 < len(src) && src[i+1] == '*' {
				tokens = append(tokens, token{kind: tokCaret, text: "**", pos: i})
				i += 2
				continue
			}
			tokens = append(tokens, token{kind: tokStar, text: "*", pos: i})
			i++
		case c == '/':
			tokens = append(tokens, token{kind: tokSlash, text: "/", pos: i})
			i++
		case c == '^':
			tokens = append(tokens, token{kind: tokCaret, text: "^", pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			j := scanNumber(src, i)
			val, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return nil, errorf(i, "invalid number %q", src[i:j])
			}
			tokens = append(tokens, token{kind: tokNumber, text: src[i:j], num: val, pos: i})
			i = j
		case isLetter(c):
			j := i + 1
			for j < len(src) && (isLetter(src[j]) || isDigit(src[j])) {
				j++
			}
			tokens = append(tokens, token{kind: tokIdent, text: src[i:j], pos: i})
			i = j
		case c == '=':
			return nil, errorf(i, "assignment is not allowed")
		case c == ';' || c == ',':
			return nil, errorf(i, "statement separators are not allowed")
		case c == '.':
			return nil, errorf(i, "member access is not allowed")
		default:
			return nil, errorf(i, "unexpected character %q", rune(c))
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(src)})
	return tokens, nil
}

// scanNumber returns the end offset of the numeric literal starting at i.
func scanNumber(src string, i int) int {
	j := i
	for j < len(src) && isDigit(src[j]) {
		j++
	}
	if j < len(src) && src[j] == '.' {
		j++
		for j < len(src) && isDigit(src[j]) {
			j++
		}
	}
	if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
		k := j + 1
		if k < len(src) && (src[k] == '+' || src[k] == '-') {
			k++
		}
		if k < len(src) && isDigit(src[k]) {
			for k < len(src) && isDigit(src[k]) {
				k++
			}
			j = k
		}
	}
	return j
}
