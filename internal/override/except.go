package override

import (
	"fmt"
	"regexp"
	"strings"
)

// Expr is a compiled except predicate, e.g.
//
//	schema ^= "tmp_" or (relation ~ "^x" and not database in ["prod", "dwh"])
//
// Fields are database, schema and relation. Operators are == != ^= (prefix)
// $= (suffix) ~ (regular expression search) and in [..]. A nil Expr is false.
type Expr struct {
	src  string
	root exprNode
}

// ParseExpr compiles an except predicate.
func ParseExpr(src string) (*Expr, error) {
	p := &exprParser{lex: newExprLexer(src)}
	p.advance()
	if p.tok.kind == tokEOF {
		return nil, &SyntaxError{Expr: src, Pos: 0, Msg: "empty expression"}
	}
	root := p.parseOr()
	if p.err == nil && p.tok.kind != tokEOF {
		p.fail("unexpected %q", p.tok.text)
	}
	if p.err != nil {
		return nil, p.err
	}
	return &Expr{src: src, root: root}, nil
}

// MustParseExpr is like ParseExpr but panics on error.
func MustParseExpr(src string) *Expr {
	e, err := ParseExpr(src)
	if err != nil {
		panic(err)
	}
	return e
}

// UnmarshalText implements encoding.TextUnmarshaler so the expression is
// compiled while the configuration is decoded.
func (e *Expr) UnmarshalText(text []byte) error {
	parsed, err := ParseExpr(string(text))
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

// MarshalText returns the source text.
func (e *Expr) MarshalText() ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	return []byte(e.src), nil
}

func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	return e.src
}

// Eval evaluates the predicate against a name. Absent parts compare as "".
func (e *Expr) Eval(n Names) bool {
	if e == nil || e.root == nil {
		return false
	}
	return e.root.eval(n)
}

// SyntaxError describes an invalid except expression.
type SyntaxError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid except expression %q at offset %d: %s", e.Expr, e.Pos, e.Msg)
}

// AST

type exprNode interface {
	eval(n Names) bool
}

type orNode []exprNode

func (o orNode) eval(n Names) bool {
	for _, c := range o {
		if c.eval(n) {
			return true
		}
	}
	return false
}

type andNode []exprNode

func (a andNode) eval(n Names) bool {
	for _, c := range a {
		if !c.eval(n) {
			return false
		}
	}
	return true
}

type notNode struct{ inner exprNode }

func (x notNode) eval(n Names) bool { return !x.inner.eval(n) }

type cmpNode struct {
	field  string
	op     string
	value  string
	values []string
	re     *regexp.Regexp
}

func (c *cmpNode) eval(n Names) bool {
	v := n.field(c.field)
	switch c.op {
	case "==":
		return v == c.value
	case "!=":
		return v != c.value
	case "^=":
		return strings.HasPrefix(v, c.value)
	case "$=":
		return strings.HasSuffix(v, c.value)
	case "~":
		return c.re.MatchString(v)
	case "in":
		for _, x := range c.values {
			if v == x {
				return true
			}
		}
	}
	return false
}

// Parser

type exprParser struct {
	lex *exprLexer
	tok exprToken
	err error
}

func (p *exprParser) advance() {
	if p.err != nil {
		return
	}
	tok, err := p.lex.next()
	if err != nil {
		p.err = err
		p.tok = exprToken{kind: tokEOF}
		return
	}
	p.tok = tok
}

func (p *exprParser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = &SyntaxError{Expr: p.lex.input, Pos: p.tok.pos, Msg: fmt.Sprintf(format, args...)}
	}
}

func (p *exprParser) isWord(w string) bool {
	return p.tok.kind == tokIdent && strings.EqualFold(p.tok.text, w)
}

func (p *exprParser) parseOr() exprNode {
	terms := orNode{p.parseAnd()}
	for p.err == nil && p.isWord("or") {
		p.advance()
		terms = append(terms, p.parseAnd())
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return terms
}

func (p *exprParser) parseAnd() exprNode {
	terms := andNode{p.parseUnary()}
	for p.err == nil && p.isWord("and") {
		p.advance()
		terms = append(terms, p.parseUnary())
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return terms
}

func (p *exprParser) parseUnary() exprNode {
	switch {
	case p.err != nil:
		return nil
	case p.isWord("not"):
		p.advance()
		return notNode{p.parseUnary()}
	case p.tok.kind == tokLParen:
		p.advance()
		inner := p.parseOr()
		if p.tok.kind != tokRParen {
			p.fail("expected )")
			return nil
		}
		p.advance()
		return inner
	}
	return p.parseCmp()
}

func (p *exprParser) parseCmp() exprNode {
	if p.tok.kind != tokIdent {
		p.fail("expected field, got %q", p.tok.text)
		return nil
	}
	field := strings.ToLower(p.tok.text)
	switch field {
	case "database", "schema", "relation":
	default:
		p.fail("unknown field %q", p.tok.text)
		return nil
	}
	p.advance()

	node := &cmpNode{field: field}
	switch {
	case p.tok.kind == tokOp:
		node.op = p.tok.text
	case p.isWord("in"):
		node.op = "in"
	default:
		p.fail("expected operator after %s", field)
		return nil
	}
	p.advance()

	if node.op == "in" {
		node.values = p.parseList()
		return node
	}
	if p.tok.kind != tokString {
		p.fail("expected string after %s", node.op)
		return nil
	}
	node.value = p.tok.text
	if node.op == "~" {
		re, err := regexp.Compile(node.value)
		if err != nil {
			p.fail("bad regular expression: %v", err)
			return nil
		}
		node.re = re
	}
	p.advance()
	return node
}

func (p *exprParser) parseList() []string {
	if p.tok.kind != tokLBracket {
		p.fail("expected [ after in")
		return nil
	}
	p.advance()
	var values []string
	for p.err == nil && p.tok.kind != tokRBracket {
		if p.tok.kind != tokString {
			p.fail("expected string in list")
			return nil
		}
		values = append(values, p.tok.text)
		p.advance()
		if p.tok.kind == tokComma {
			p.advance()
		} else if p.tok.kind != tokRBracket {
			p.fail("expected , or ]")
			return nil
		}
	}
	p.advance()
	return values
}

// Lexer

type exprTokenKind int

const (
	tokEOF exprTokenKind = iota
	tokIdent
	tokString
	tokOp
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
)

type exprToken struct {
	kind exprTokenKind
	text string
	pos  int
}

var singleCharTokens = map[byte]exprTokenKind{
	'(': tokLParen, ')': tokRParen, '[': tokLBracket, ']': tokRBracket, ',': tokComma,
}

type exprLexer struct {
	input string
	pos   int
}

func newExprLexer(input string) *exprLexer {
	return &exprLexer{input: input}
}

func (l *exprLexer) peekChar(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *exprLexer) next() (exprToken, error) {
	for l.pos < len(l.input) && strings.IndexByte(" \t\r\n", l.input[l.pos]) >= 0 {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.input) {
		return exprToken{kind: tokEOF, pos: start}, nil
	}

	ch := l.input[l.pos]
	if kind, ok := singleCharTokens[ch]; ok {
		l.pos++
		return exprToken{kind: kind, text: string(ch), pos: start}, nil
	}

	switch {
	case ch == '"' || ch == '\'':
		return l.readString(ch)
	case ch == '~':
		l.pos++
		return exprToken{kind: tokOp, text: "~", pos: start}, nil
	case strings.IndexByte("=!^$", ch) >= 0 && l.peekChar(1) == '=':
		l.pos += 2
		return exprToken{kind: tokOp, text: l.input[start:l.pos], pos: start}, nil
	case isIdentChar(ch):
		for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
			l.pos++
		}
		return exprToken{kind: tokIdent, text: l.input[start:l.pos], pos: start}, nil
	}
	return exprToken{}, &SyntaxError{Expr: l.input, Pos: start, Msg: fmt.Sprintf("unexpected character %q", ch)}
}

// readString reads a quoted string. A backslash escapes the quote and
// itself; other backslashes are kept so regular expressions read naturally.
func (l *exprLexer) readString(quote byte) (exprToken, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '\\' && l.pos+1 < len(l.input) && (l.input[l.pos+1] == quote || l.input[l.pos+1] == '\\'):
			sb.WriteByte(l.input[l.pos+1])
			l.pos += 2
		case ch == quote:
			l.pos++
			return exprToken{kind: tokString, text: sb.String(), pos: start}, nil
		default:
			sb.WriteByte(ch)
			l.pos++
		}
	}
	return exprToken{}, &SyntaxError{Expr: l.input, Pos: start, Msg: "unterminated string"}
}

func isIdentChar(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
