package expr

import "strings"

const maxDepth = 256

// Option configures Parse.
type Option func(*parser)

// Declared restricts identifiers to the given names. Without it any
// identifier is accepted and resolution is deferred to evaluation.
func Declared(names ...string) Option {
	return func(p *parser) {
		if p.declared == nil {
			p.declared = map[string]bool{}
		}
		for _, n := range names {
			p.declared[n] = true
		}
	}
}

type parser struct {
	tokens   []token
	pos      int
	depth    int
	declared map[string]bool
}

// Parse turns text into an expression tree. Every failure matches ErrParse.
func Parse(text string, opts ...Option) (Expr, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errorf(0, "empty expression")
	}
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	for _, opt := range opts {
		opt(p)
	}
	e, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		switch tok.kind {
		case tokRParen:
			return nil, errorf(tok.pos, "unbalanced ')'")
		case tokNumber, tokIdent, tokLParen:
			return nil, errorf(tok.pos, "missing operator before %q", tok.text)
		default:
			return nil, errorf(tok.pos, "unexpected %q", tok.text)
		}
	}
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level tables.
func MustParse(text string, opts ...Option) Expr {
	e, err := Parse(text, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return errorf(p.peek().pos, "expression nested too deeply")
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// sum := product (('+' | '-') product)*
func (p *parser) parseSum() (Expr, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch p.peek().kind {
		case tokPlus:
			op = Add
		case tokMinus:
			op = Sub
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

// product := power (('*' | '/') power)*
func (p *parser) parseProduct() (Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch p.peek().kind {
		case tokStar:
			op = Mul
		case tokSlash:
			op = Div
		default:
			return left, nil
		}
		p.next()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

// power := unary ('^' power)?
func (p *parser) parsePower() (Expr, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokCaret {
		return base, nil
	}
	p.next()
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	exp, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	return Binary{Op: Pow, Left: base, Right: exp}, nil
}

// unary := ('-' | '+') unary | primary
func (p *parser) parseUnary() (Expr, error) {
	switch p.peek().kind {
	case tokMinus, tokPlus:
		tok := p.next()
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokPlus {
			return x, nil
		}
		return Neg{X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return Number{Value: tok.num}, nil
	case tokIdent:
		if f, ok := LookupFunc(tok.text); ok {
			if p.peek().kind != tokLParen {
				return nil, errorf(tok.pos, "function %s requires a parenthesized argument", tok.text)
			}
			arg, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			return Call{Func: f, Arg: arg}, nil
		}
		if p.peek().kind == tokLParen {
			return nil, errorf(tok.pos, "unknown function %q", tok.text)
		}
		if p.declared != nil && !p.declared[tok.text] {
			return nil, errorf(tok.pos, "unknown identifier %q", tok.text)
		}
		return Variable{Name: tok.text}, nil
	case tokLParen:
		p.pos--
		return p.parseGroup()
	case tokRParen:
		return nil, errorf(tok.pos, "unbalanced ')'")
	case tokEOF:
		return nil, errorf(tok.pos, "unexpected end of expression")
	}
	return nil, errorf(tok.pos, "unexpected %q", tok.text)
}

// parseGroup consumes '(' sum ')'.
func (p *parser) parseGroup() (Expr, error) {
	open := p.next()
	if p.peek().kind == tokRParen {
		return nil, errorf(open.pos, "empty parentheses")
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	inner, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokRParen {
		if tok.kind == tokEOF {
			return nil, errorf(open.pos, "missing closing parenthesis")
		}
		return nil, errorf(tok.pos, "missing operator before %q", tok.text)
	}
	p.next()
	return inner, nil
}
