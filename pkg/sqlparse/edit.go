package sqlparse

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/sqlrunner/pkg/token"
)

var (
	limitNumber   = regexp.MustCompile(`l[\s-]+#[\s-]*[);]?[\s-]*$`)
	statementTail = regexp.MustCompile(`[;)]?[\s-]*$`)
)

// Editor records edits against a Statement in its original token
// coordinates. Apply produces a new Statement; the original is untouched.
type Editor struct {
	stmt    *Statement
	replace map[int]string
	insert  map[int][]token.Token
	refs    map[*Source]*SourceRef
	prefix  map[int]*SourceRef // database inserted before a schema token
}

func newEditor(s *Statement) *Editor {
	return &Editor{
		stmt:    s,
		replace: make(map[int]string),
		insert:  make(map[int][]token.Token),
		refs:    make(map[*Source]*SourceRef),
		prefix:  make(map[int]*SourceRef),
	}
}

// Statement returns the statement being edited.
func (e *Editor) Statement() *Statement { return e.stmt }

// Source returns the edit handle of src, which must belong to the edited
// statement. Repeated calls return the same handle.
func (e *Editor) Source(src *Source) *SourceRef {
	if ref, ok := e.refs[src]; ok {
		return ref
	}
	ref := &SourceRef{ed: e, src: src}
	if src.Compound() {
		ref.segments = append([]string(nil), src.segments...)
	}
	e.refs[src] = ref
	return ref
}

// ReplaceText replaces the text of token i, keeping its kind.
func (e *Editor) ReplaceText(i int, text string) {
	e.replace[i] = text
}

// InsertBefore inserts tokens before token i. i may equal the statement
// length to append.
func (e *Editor) InsertBefore(i int, toks ...token.Token) {
	e.insert[i] = append(e.insert[i], toks...)
}

// LimitZero makes the statement return no rows. An existing trailing
// LIMIT n becomes LIMIT 0; otherwise LIMIT 0 is added before the closing
// ";" or ")" and any trailing blanks.
func (e *Editor) LimitZero() {
	classes := e.stmt.Classes()
	if loc := limitNumber.FindStringIndex(classes); loc != nil {
		i := loc[0] + strings.IndexByte(classes[loc[0]:loc[1]], '#')
		e.ReplaceText(i, "0")
		return
	}
	loc := statementTail.FindStringIndex(classes)
	e.InsertBefore(loc[0],
		token.Token{Kind: token.Whitespace, Text: "\n"},
		token.Token{Kind: token.Keyword, Keyword: token.KwLimit, Text: "LIMIT"},
		token.Token{Kind: token.Whitespace, Text: " "},
		token.Token{Kind: token.Number, Text: "0"},
	)
}

// Result is an applied edit script.
type Result struct {
	Statement *Statement

	remap []int
}

// Remap converts a token index of the edited statement into the index of the
// same token in the result. Len() maps to the new length.
func (r *Result) Remap(i int) int {
	if i < 0 || i >= len(r.remap) {
		return -1
	}
	return r.remap[i]
}

// Apply builds the edited statement.
func (e *Editor) Apply() *Result {
	src := e.stmt.tokens
	out := make([]token.Token, 0, len(src)+len(e.insert)*4)
	remap := make([]int, len(src)+1)
	for i := 0; i <= len(src); i++ {
		out = append(out, e.insert[i]...)
		if ref, ok := e.prefix[i]; ok {
			out = append(out, ref.databaseTokens()...)
		}
		remap[i] = len(out)
		if i == len(src) {
			break
		}
		t := src[i]
		if text, ok := e.replace[i]; ok {
			t.Text = text
		}
		out = append(out, t)
	}
	return &Result{Statement: New(out, e.stmt.quotes), remap: remap}
}

// SourceRef edits the parts of one Source.
type SourceRef struct {
	ed  *Editor
	src *Source

	segments []string // compound form

	database      string // inserted database, individual form
	hasDatabase   bool
	databaseQuote int
}

// Source returns the underlying source.
func (r *SourceRef) Source() *Source { return r.src }

// Get returns the current value of a part, including pending edits.
func (r *SourceRef) Get(p Part) (string, bool) {
	if r.src.Compound() {
		i := len(r.segments) - 1 - int(p)
		if i < 0 {
			return "", false
		}
		return r.segments[i], true
	}
	if p == Database && r.hasDatabase {
		return r.database, true
	}
	idx, ok := r.src.partToken(p)
	if !ok {
		return "", false
	}
	text := r.src.stmt.tokens[idx].Text
	if v, ok := r.ed.replace[idx]; ok {
		text = v
	}
	v, _ := r.src.stmt.quotes.strip(text)
	return v, true
}

// Set writes a part. A database may be added to a source that has a schema;
// any other missing part yields an *IncompatibleSQLError and leaves the
// statement unchanged.
func (r *SourceRef) Set(p Part, value string) error {
	if r.src.Compound() {
		return r.setSegment(p, value)
	}
	if idx, ok := r.src.partToken(p); ok {
		r.ed.replace[idx] = r.src.stmt.quotes.wrap(value, r.src.quoteOf(idx))
		return nil
	}
	schemaIdx, hasSchema := r.src.partToken(Schema)
	if p != Database || !hasSchema {
		return &IncompatibleSQLError{Part: p, Source: r.src.String()}
	}
	if !r.hasDatabase {
		r.databaseQuote = r.src.quoteOf(schemaIdx)
		if r.databaseQuote < 0 {
			relIdx, _ := r.src.partToken(Relation)
			r.databaseQuote = r.src.quoteOf(relIdx)
		}
		r.ed.prefix[schemaIdx] = r
	}
	r.database, r.hasDatabase = value, true
	return nil
}

func (r *SourceRef) setSegment(p Part, value string) error {
	i := len(r.segments) - 1 - int(p)
	switch {
	case i >= 0:
		r.segments[i] = value
	case p == Database && len(r.segments) == 2:
		r.segments = append([]string{value}, r.segments...)
	default:
		return &IncompatibleSQLError{Part: p, Source: r.src.String()}
	}
	r.ed.replace[r.src.compound] = r.src.open + strings.Join(r.segments, ".") + r.src.close
	return nil
}

func (r *SourceRef) databaseTokens() []token.Token {
	kind := token.Name
	if r.databaseQuote >= 0 {
		kind = token.QuotedName
	}
	return []token.Token{
		{Kind: kind, Text: r.src.stmt.quotes.wrap(r.database, r.databaseQuote)},
		{Kind: token.Punctuation, Text: "."},
	}
}
