// Package expr parses cell text into an expression tree and evaluates it
// against a sheet. Formulas have the form {NAME,arg,arg,...}; anything not
// starting with "{" is a literal.
package expr

import (
	"strconv"
	"strings"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// Node is one element of a parsed expression.
type Node interface {
	String() string
	node()
}

// Literal is a plain value. Raw is kept so a literal naming a range can be
// resolved at evaluation time.
type Literal struct {
	Raw   string
	Value cell.Value
}

// Ref is a bare cell reference such as A1.
type Ref struct {
	Coord cell.Coord
}

// RangeLit is a range literal such as A1..B3.
type RangeLit struct {
	Range cell.Range
}

// Call is a function application.
type Call struct {
	Name string
	Args []Node
}

func (Literal) node()  {}
func (Ref) node()      {}
func (RangeLit) node() {}
func (Call) node()     {}

func (l Literal) String() string  { return l.Raw }
func (r Ref) String() string      { return r.Coord.String() }
func (r RangeLit) String() string { return r.Range.String() }

func (c Call) String() string {
	var b strings.Builder
	b.WriteByte('{')
	b.WriteString(c.Name)
	for _, a := range c.Args {
		b.WriteByte(',')
		b.WriteString(a.String())
	}
	b.WriteByte('}')
	return b.String()
}

// IsFormula reports whether text is parsed as a formula rather than a literal.
func IsFormula(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "{")
}

// Parse turns cell text into a Node. Malformed formulas return a ParseError.
func Parse(text string) (Node, error) {
	if !IsFormula(text) {
		return Literal{Raw: text, Value: cell.ParseLiteral(text)}, nil
	}
	p := &parser{src: text, pos: strings.Index(text, "{")}
	n, err := p.call()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q after closing brace", p.src[p.pos:])
	}
	return n, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	e := sheeterr.New(sheeterr.ParseError, format, args...)
	e.Message += " at offset " + strconv.Itoa(p.pos)
	return e
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

// call parses {NAME,arg,...} starting at an opening brace.
func (p *parser) call() (Node, error) {
	if p.pos >= len(p.src) || p.src[p.pos] != '{' {
		return nil, p.errorf("expected '{'")
	}
	p.pos++
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != '}' {
		if p.src[p.pos] == '{' {
			return nil, p.errorf("function name cannot contain '{'")
		}
		p.pos++
	}
	if p.pos >= len(p.src) {
		return nil, p.errorf("unbalanced braces: missing '}'")
	}
	name := strings.TrimSpace(p.src[start:p.pos])
	if !validName(name) {
		return nil, p.errorf("invalid function name %q", name)
	}
	c := Call{Name: strings.ToUpper(name)}
	for p.src[p.pos] == ',' {
		p.pos++
		arg, err := p.arg()
		if err != nil {
			return nil, err
		}
		c.Args = append(c.Args, arg)
		if p.pos >= len(p.src) {
			return nil, p.errorf("unbalanced braces: missing '}'")
		}
	}
	// p.src[p.pos] == '}'
	p.pos++
	return c, nil
}

// arg parses one argument and leaves pos on the following ',' or '}'.
func (p *parser) arg() (Node, error) {
	save := p.pos
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '{' {
		n, err := p.call()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != '}' {
			return nil, p.errorf("expected ',' or '}' after nested expression")
		}
		return n, nil
	}
	p.pos = save
	for p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != '}' {
		if p.src[p.pos] == '{' {
			return nil, p.errorf("unexpected '{' inside argument")
		}
		p.pos++
	}
	return classify(p.src[save:p.pos]), nil
}

// classify decides whether a raw token is a reference, a range or a literal.
func classify(raw string) Node {
	token := strings.TrimSpace(raw)
	if strings.Contains(token, cell.RangeSeparator) {
		if r, err := cell.ParseRange(token); err == nil {
			return RangeLit{Range: r}
		}
	}
	if c, err := cell.ParseCoord(token); err == nil {
		return Ref{Coord: c}
	}
	return Literal{Raw: raw, Value: cell.ParseLiteral(raw)}
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if !(ch >= 'A' && ch <= 'Z') && !(ch >= 'a' && ch <= 'z') && !(ch >= '0' && ch <= '9') && ch != '_' {
			return false
		}
	}
	return true
}
