// Package token defines the lexical units produced by the SQL lexer and the
// one-character classes that structural matchers run against.
//
// The class alphabet lets later passes use plain regular expressions over a
// string whose i-th byte describes the i-th token:
//
//	' '  whitespace          f  FROM / JOIN          n  name or quoted name
//	-    comment             l  LIMIT                s  SELECT
//	x    DELETE              I  INSERT               i  INTO
//	u    UPDATE              c  CTE keyword (WITH)   a  AS
//	m    other DML keyword   d  DDL keyword          k  other keyword
//	o    operator            #  number               ?  anything else
//
// Punctuation is encoded as the first byte of its literal.
package token

import "strings"

// Kind is the lexical category of a token.
type Kind int

// Token kinds.
const (
	Whitespace Kind = iota
	Punctuation
	Keyword
	Name
	QuotedName
	String
	Number
	LineComment
	BlockComment
	Operator
	Other
)

var kindNames = [...]string{
	Whitespace:   "whitespace",
	Punctuation:  "punctuation",
	Keyword:      "keyword",
	Name:         "name",
	QuotedName:   "quoted-name",
	String:       "string",
	Number:       "number",
	LineComment:  "line-comment",
	BlockComment: "block-comment",
	Operator:     "operator",
	Other:        "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KeywordKind refines Keyword tokens.
type KeywordKind int

// Keyword kinds.
const (
	KwNone KeywordKind = iota
	KwFrom
	KwJoin
	KwSelect
	KwLimit
	KwDelete
	KwInsert
	KwInto
	KwUpdate
	KwCTE
	KwAs
	KwDML
	KwDDL
	KwGeneric
)

// Token is one lexical unit. Text is the exact source text, so concatenating
// the tokens of a statement reproduces it byte for byte.
type Token struct {
	Kind    Kind
	Keyword KeywordKind
	Text    string
	Pos     Position

	// InFunction is set on FROM keywords found inside a function call's
	// argument list (e.g. EXTRACT(year FROM ts)) and not inside a sub-select.
	InFunction bool
}

// IsWhitespace reports whether the token is whitespace.
func (t Token) IsWhitespace() bool { return t.Kind == Whitespace }

// IsComment reports whether the token is a line or block comment.
func (t Token) IsComment() bool { return t.Kind == LineComment || t.Kind == BlockComment }

// IsName reports whether the token is an identifier, quoted or not.
func (t Token) IsName() bool { return t.Kind == Name || t.Kind == QuotedName }

// IsPunct reports whether the token is the punctuation literal p.
func (t Token) IsPunct(p string) bool { return t.Kind == Punctuation && t.Text == p }

// Upper returns the token text in upper case.
func (t Token) Upper() string { return strings.ToUpper(t.Text) }

// Class returns the single-byte class of the token.
func (t Token) Class() byte {
	switch t.Kind {
	case Whitespace:
		return ' '
	case Punctuation:
		return t.Text[0]
	case Keyword:
		return t.keywordClass()
	case Name, QuotedName:
		return 'n'
	case LineComment, BlockComment:
		return '-'
	case Operator:
		return 'o'
	case Number:
		return '#'
	default:
		return '?'
	}
}

func (t Token) keywordClass() byte {
	switch t.Keyword {
	case KwJoin:
		return 'f'
	case KwFrom:
		if t.InFunction {
			return 'n'
		}
		return 'f'
	case KwLimit:
		return 'l'
	case KwSelect:
		return 's'
	case KwDelete:
		return 'x'
	case KwInsert:
		return 'I'
	case KwInto:
		return 'i'
	case KwUpdate:
		return 'u'
	case KwCTE:
		return 'c'
	case KwAs:
		return 'a'
	case KwDML:
		return 'm'
	case KwDDL:
		return 'd'
	default:
		return 'k'
	}
}

// Classes returns the class string of a token slice. Its length always equals
// len(tokens).
func Classes(tokens []Token) string {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		b[i] = t.Class()
	}
	return string(b)
}

// Join concatenates the text of the tokens.
func Join(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
	}
	return sb.String()
}
