// Package calculator evaluates arithmetic expressions of aperture macros:
// numbers, $n variables, + - x / and parentheses. 'x' and 'X' are the
// multiplication operators of the gerber macro language.
package calculator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type OpCode int

const (
	Nop OpCode = iota
	Add
	Sub
	Mul
	Div
	Neg
)

func (oc OpCode) String() string {
	switch oc {
	case Add:
		return "+"
	case Sub, Neg:
		return "-"
	case Mul:
		return "x"
	case Div:
		return "/"
	case Nop:
		return "<nop>"
	default:
	}
	return "bad OpCode"
}

var ErrDivByZero = errors.New("calculator: division by zero")

// Variables maps $n indices to values
type Variables map[int]float64

type parser struct {
	src  string
	pos  int
	vars Variables
}

// CalcExpression evaluates str. Undefined variables evaluate to zero.
func CalcExpression(str string, vars Variables) (float64, error) {
	p := &parser{src: strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, str), vars: vars}
	if len(p.src) == 0 {
		return 0, errors.New("calculator: empty expression")
	}
	retVal, err := p.sum()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.src) {
		return 0, fmt.Errorf("calculator: unexpected %q at %d in %q", p.src[p.pos], p.pos, str)
	}
	return retVal, nil
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) opcode(c byte) OpCode {
	switch c {
	case '+':
		return Add
	case '-':
		return Sub
	case 'x', 'X':
		return Mul
	case '/':
		return Div
	default:
	}
	return Nop
}

// sum = product { (+|-) product }
func (p *parser) sum() (float64, error) {
	retVal, err := p.product()
	if err != nil {
		return 0, err
	}
	for {
		op := p.opcode(p.peek())
		if op != Add && op != Sub {
			return retVal, nil
		}
		p.pos++
		v, err := p.product()
		if err != nil {
			return 0, err
		}
		if op == Add {
			retVal += v
		} else {
			retVal -= v
		}
	}
}

// product = unary { (x|/) unary }
func (p *parser) product() (float64, error) {
	retVal, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.opcode(p.peek())
		if op != Mul && op != Div {
			return retVal, nil
		}
		p.pos++
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		if op == Mul {
			retVal *= v
			continue
		}
		if v == 0 {
			return 0, ErrDivByZero
		}
		retVal /= v
	}
}

func (p *parser) unary() (float64, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.unary()
		return -v, err
	case '+':
		p.pos++
		return p.unary()
	default:
	}
	return p.operand()
}

func (p *parser) operand() (float64, error) {
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		v, err := p.sum()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("calculator: missing ')' in %q", p.src)
		}
		p.pos++
		return v, nil
	case c == '$':
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		n, err := strconv.Atoi(p.src[start:p.pos])
		if err != nil {
			return 0, fmt.Errorf("calculator: bad variable in %q", p.src)
		}
		return p.vars[n], nil
	case isDigit(c) || c == '.':
		start := p.pos
		for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
			p.pos++
		}
		v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return 0, fmt.Errorf("calculator: %w", err)
		}
		return v, nil
	default:
	}
	if c == 0 {
		return 0, fmt.Errorf("calculator: unexpected end of %q", p.src)
	}
	return 0, fmt.Errorf("calculator: unexpected %q in %q", c, p.src)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Assign parses the macro variable definition "$n=expr", evaluates expr
// with vars and stores the result
func Assign(str string, vars Variables) error {
	eq := strings.IndexByte(str, '=')
	if eq < 2 || str[0] != '$' {
		return fmt.Errorf("calculator: bad assignment %q", str)
	}
	n, err := strconv.Atoi(strings.TrimSpace(str[1:eq]))
	if err != nil {
		return fmt.Errorf("calculator: bad assignment %q", str)
	}
	v, err := CalcExpression(str[eq+1:], vars)
	if err != nil {
		return err
	}
	vars[n] = v
	return nil
}
