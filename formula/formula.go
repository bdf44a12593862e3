// Package formula evaluates the small spreadsheet formula language used by
// computed cells: arithmetic over numbers, A1-style cell references and a fixed
// set of functions (SUM, AVERAGE, MAX, MIN). Expressions are parsed with a
// recursive-descent parser over a restricted token grammar; user input is never
// handed to a general-purpose evaluator.
package formula

import (
	"errors"
	"strconv"
	"strings"
)

// ErrorValue is the sentinel shown for any formula that fails to evaluate.
// Failures are swallowed into this value and never propagated to the caller.
const ErrorValue = "#ERROR!"

// Resolver returns the raw text backing a referenced cell (zero-based row/col).
// The second return is false when the cell is empty; empty cells resolve to 0.
type Resolver func(row, col int) (string, bool)

var errEval = errors.New("formula: evaluation error")

// Evaluate computes a formula expression. The leading "=" is optional.
// The result is a canonical string: numbers are formatted without trailing
// zeros ("20", "0.5"). Any lexical, parse or arithmetic error yields ErrorValue.
func Evaluate(expr string, resolve Resolver) string {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimPrefix(expr, "=")
	if expr == "" {
		return ErrorValue
	}

	toks, err := lex(expr)
	if err != nil {
		return ErrorValue
	}
	p := &parser{toks: toks, resolve: resolve}
	v, err := p.parseExpr()
	if err != nil || !p.atEnd() {
		return ErrorValue
	}
	return formatNumber(v)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	num  float64
	text string
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch == '+':
			toks = append(toks, token{kind: tokPlus})
			i++
		case ch == '-':
			toks = append(toks, token{kind: tokMinus})
			i++
		case ch == '*':
			toks = append(toks, token{kind: tokStar})
			i++
		case ch == '/':
			toks = append(toks, token{kind: tokSlash})
			i++
		case ch == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case ch == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case ch == ',':
			toks = append(toks, token{kind: tokComma})
			i++
		case ch >= '0' && ch <= '9' || ch == '.':
			j := i
			for j < len(input) && (input[j] >= '0' && input[j] <= '9' || input[j] == '.') {
				j++
			}
			n, err := strconv.ParseFloat(input[i:j], 64)
			if err != nil {
				return nil, errEval
			}
			toks = append(toks, token{kind: tokNumber, num: n})
			i = j
		case isLetter(ch) || ch == '_':
			j := i
			for j < len(input) && (isLetter(input[j]) || input[j] == '_' || input[j] >= '0' && input[j] <= '9') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: input[i:j]})
			i = j
		default:
			return nil, errEval
		}
	}
	return toks, nil
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

type parser struct {
	toks    []token
	pos     int
	resolve Resolver
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() (token, bool) {
	if p.atEnd() {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) accept(kind tokenKind) bool {
	if t, ok := p.peek(); ok && t.kind == kind {
		p.pos++
		return true
	}
	return false
}

// expr := term (('+'|'-') term)*
func (p *parser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		if p.accept(tokPlus) {
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += rhs
		} else if p.accept(tokMinus) {
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= rhs
		} else {
			return v, nil
		}
	}
}

// term := factor (('*'|'/') factor)*
func (p *parser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		if p.accept(tokStar) {
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			v *= rhs
		} else if p.accept(tokSlash) {
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, errEval
			}
			v /= rhs
		} else {
			return v, nil
		}
	}
}

// factor := number | ref | func '(' args ')' | '(' expr ')' | '-' factor
func (p *parser) parseFactor() (float64, error) {
	t, ok := p.peek()
	if !ok {
		return 0, errEval
	}
	switch t.kind {
	case tokMinus:
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case tokNumber:
		p.pos++
		return t.num, nil
	case tokLParen:
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if !p.accept(tokRParen) {
			return 0, errEval
		}
		return v, nil
	case tokIdent:
		p.pos++
		if next, ok := p.peek(); ok && next.kind == tokLParen {
			return p.parseCall(t.text)
		}
		return p.resolveRef(t.text)
	default:
		return 0, errEval
	}
}

func (p *parser) parseCall(name string) (float64, error) {
	if !p.accept(tokLParen) {
		return 0, errEval
	}
	var args []float64
	if !p.accept(tokRParen) {
		for {
			v, err := p.parseExpr()
			if err != nil {
				return 0, err
			}
			args = append(args, v)
			if p.accept(tokComma) {
				continue
			}
			if p.accept(tokRParen) {
				break
			}
			return 0, errEval
		}
	}
	return applyFunction(name, args)
}

func applyFunction(name string, args []float64) (float64, error) {
	if len(args) == 0 {
		return 0, errEval
	}
	switch strings.ToUpper(name) {
	case "SUM":
		var sum float64
		for _, a := range args {
			sum += a
		}
		return sum, nil
	case "AVERAGE":
		var sum float64
		for _, a := range args {
			sum += a
		}
		return sum / float64(len(args)), nil
	case "MAX":
		max := args[0]
		for _, a := range args[1:] {
			if a > max {
				max = a
			}
		}
		return max, nil
	case "MIN":
		min := args[0]
		for _, a := range args[1:] {
			if a < min {
				min = a
			}
		}
		return min, nil
	default:
		return 0, errEval
	}
}

// resolveRef resolves an A1-style reference against the active grid.
// Empty cells resolve to 0; non-numeric cell text is an evaluation error.
func (p *parser) resolveRef(ref string) (float64, error) {
	row, col, ok := ParseRef(ref)
	if !ok {
		return 0, errEval
	}
	if p.resolve == nil {
		return 0, nil
	}
	raw, exists := p.resolve(row, col)
	if !exists {
		return 0, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errEval
	}
	return n, nil
}

// ParseRef parses an A1-style cell reference into zero-based row/col indices.
// Column letters are case-insensitive ("AB3" -> row 2, col 27).
func ParseRef(ref string) (row, col int, ok bool) {
	i := 0
	for i < len(ref) && isLetter(ref[i]) {
		ch := ref[i]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		col = col*26 + int(ch-'A'+1)
		i++
	}
	if i == 0 || i == len(ref) {
		return 0, 0, false
	}
	n, err := strconv.Atoi(ref[i:])
	if err != nil || n < 1 {
		return 0, 0, false
	}
	return n - 1, col - 1, true
}
