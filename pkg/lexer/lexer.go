// Package lexer turns SQL text into a flat, lossless token stream.
//
// The lexer does not build a syntax tree. It only tracks enough structure to
// decide whether a FROM keyword belongs to a function signature such as
// EXTRACT(year FROM ts), which the source matchers must not treat as a clause.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/sqlrunner/pkg/token"
)

// frame is one open parenthesis.
type frame struct {
	function  bool // opened directly after a name, e.g. COUNT(
	subSelect bool // a SELECT appeared inside
}

// Lexer tokenizes SQL input.
type Lexer struct {
	input  string
	pos    int // current byte offset
	loc    token.Position
	frames []frame
	tokens []token.Token
	last   int // index of the last non-whitespace, non-comment token, -1 if none
}

// New creates a Lexer for the given input.
func New(input string) *Lexer {
	return &Lexer{
		input: input,
		loc:   token.Position{Line: 1, Column: 1},
		last:  -1,
	}
}

// Tokenize returns every token of input.
func Tokenize(input string) []token.Token {
	return New(input).All()
}

// All lexes the remaining input.
func (l *Lexer) All() []token.Token {
	for l.pos < len(l.input) {
		l.next()
	}
	return l.tokens
}

func (l *Lexer) peek(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) emit(kind token.Kind, end int) *token.Token {
	text := l.input[l.pos:end]
	l.tokens = append(l.tokens, token.Token{Kind: kind, Text: text, Pos: l.loc})
	l.loc = l.loc.Advance(text)
	l.pos = end
	t := &l.tokens[len(l.tokens)-1]
	if kind != token.Whitespace && kind != token.LineComment && kind != token.BlockComment {
		l.last = len(l.tokens) - 1
	}
	return t
}

func (l *Lexer) prev() *token.Token {
	if l.last < 0 {
		return nil
	}
	return &l.tokens[l.last]
}

func (l *Lexer) next() {
	ch := l.input[l.pos]
	switch {
	case isSpace(ch):
		end := l.pos
		for end < len(l.input) && isSpace(l.input[end]) {
			end++
		}
		l.emit(token.Whitespace, end)
	case ch == '-' && l.peek(1) == '-':
		end := strings.IndexByte(l.input[l.pos:], '\n')
		if end < 0 {
			end = len(l.input)
		} else {
			end += l.pos + 1
		}
		l.emit(token.LineComment, end)
	case ch == '/' && l.peek(1) == '*':
		end := strings.Index(l.input[l.pos+2:], "*/")
		if end < 0 {
			end = len(l.input)
		} else {
			end += l.pos + 4
		}
		l.emit(token.BlockComment, end)
	case ch == '\'':
		l.emit(token.String, l.scanQuoted('\'', true))
	case ch == '"':
		l.emit(token.QuotedName, l.scanQuoted('"', false))
	case ch == '`':
		l.emit(token.QuotedName, l.scanQuoted('`', false))
	case ch == '[' && !l.afterOperand():
		if end := strings.IndexByte(l.input[l.pos:], ']'); end > 1 && !isSpace(l.peek(1)) {
			l.emit(token.QuotedName, l.pos+end+1)
			return
		}
		l.emit(token.Punctuation, l.pos+1)
	case ch == '$':
		l.scanDollar()
	case isDigit(ch) || (ch == '.' && isDigit(l.peek(1)) && !l.afterOperand()):
		l.emit(token.Number, l.scanNumber())
	case ch == ':' && l.peek(1) == ':':
		l.emit(token.Punctuation, l.pos+2)
	case ch == '(':
		p := l.prev()
		l.frames = append(l.frames, frame{function: p != nil && p.IsName()})
		l.emit(token.Punctuation, l.pos+1)
	case ch == ')':
		if len(l.frames) > 0 {
			l.frames = l.frames[:len(l.frames)-1]
		}
		l.emit(token.Punctuation, l.pos+1)
	case strings.IndexByte(",;.[]{}", ch) >= 0:
		l.emit(token.Punctuation, l.pos+1)
	case strings.IndexByte(operatorChars, ch) >= 0:
		l.emit(token.Operator, l.scanOperator())
	default:
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if isIdentStart(r) {
			l.scanWord()
			return
		}
		l.emit(token.Other, l.pos+size)
	}
}

const operatorChars = "+-*/%=<>!|&^~:?@#"

// afterOperand reports whether the previous significant token ends an
// operand, in which case "[" is a subscript and "." is a qualifier.
func (l *Lexer) afterOperand() bool {
	p := l.prev()
	if p == nil {
		return false
	}
	return p.IsName() || p.IsPunct(")") || p.IsPunct("]") || p.Kind == token.Number || p.Kind == token.String
}

// scanQuoted returns the end offset of a quoted literal starting at l.pos.
// A doubled quote escapes itself; backslash escapes are honoured for strings.
func (l *Lexer) scanQuoted(q byte, backslash bool) int {
	i := l.pos + 1
	for i < len(l.input) {
		c := l.input[i]
		switch {
		case backslash && c == '\\' && i+1 < len(l.input):
			i += 2
			continue
		case c == q && i+1 < len(l.input) && l.input[i+1] == q:
			i += 2
			continue
		case c == q:
			return i + 1
		}
		i++
	}
	return len(l.input)
}

// scanDollar handles $n placeholders and $tag$...$tag$ quoted bodies.
func (l *Lexer) scanDollar() {
	i := l.pos + 1
	if i < len(l.input) && isDigit(l.input[i]) {
		for i < len(l.input) && isDigit(l.input[i]) {
			i++
		}
		l.emit(token.Other, i)
		return
	}
	for i < len(l.input) && (isLetter(l.input[i]) || l.input[i] == '_') {
		i++
	}
	if i < len(l.input) && l.input[i] == '$' {
		tag := l.input[l.pos : i+1]
		if end := strings.Index(l.input[i+1:], tag); end >= 0 {
			l.emit(token.String, i+1+end+len(tag))
			return
		}
		l.emit(token.String, len(l.input))
		return
	}
	l.emit(token.Other, l.pos+1)
}

func (l *Lexer) scanNumber() int {
	i := l.pos
	for i < len(l.input) && isDigit(l.input[i]) {
		i++
	}
	if i < len(l.input) && l.input[i] == '.' {
		i++
		for i < len(l.input) && isDigit(l.input[i]) {
			i++
		}
	}
	if i < len(l.input) && (l.input[i] == 'e' || l.input[i] == 'E') {
		j := i + 1
		if j < len(l.input) && (l.input[j] == '+' || l.input[j] == '-') {
			j++
		}
		if j < len(l.input) && isDigit(l.input[j]) {
			i = j
			for i < len(l.input) && isDigit(l.input[i]) {
				i++
			}
		}
	}
	return i
}

func (l *Lexer) scanOperator() int {
	i := l.pos + 1
	for i < len(l.input) && strings.IndexByte(operatorChars, l.input[i]) >= 0 {
		if strings.HasPrefix(l.input[i:], "--") || strings.HasPrefix(l.input[i:], "/*") {
			break
		}
		i++
	}
	return i
}

func (l *Lexer) scanWord() {
	i := l.pos
	for i < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[i:])
		if !isIdentPart(r) {
			break
		}
		i += size
	}
	word := l.input[l.pos:i]
	upper := strings.ToUpper(word)

	qualified := (l.last == len(l.tokens)-1 && l.last >= 0 && l.tokens[l.last].IsPunct(".")) ||
		(i < len(l.input) && l.input[i] == '.')
	kw, isKeyword := token.Lookup(upper)
	if qualified || !isKeyword || (l.followedByParen(i) && token.Callable(upper)) {
		l.emit(token.Name, i)
		return
	}

	t := l.emit(token.Keyword, i)
	t.Keyword = kw
	switch kw {
	case token.KwSelect:
		if len(l.frames) > 0 {
			l.frames[len(l.frames)-1].subSelect = true
		}
	case token.KwFrom:
		t.InFunction = l.inFunction()
	}
}

// inFunction walks the open frames outward. The innermost frame that is either
// a function call or a sub-select decides.
func (l *Lexer) inFunction() bool {
	for i := len(l.frames) - 1; i >= 0; i-- {
		if l.frames[i].subSelect {
			return false
		}
		if l.frames[i].function {
			return true
		}
	}
	return false
}

func (l *Lexer) followedByParen(i int) bool {
	for i < len(l.input) && isSpace(l.input[i]) {
		i++
	}
	return i < len(l.input) && l.input[i] == '('
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
