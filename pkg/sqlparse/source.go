package sqlparse

import (
	"strings"

	"github.com/leapstack-labs/sqlrunner/pkg/token"
)

// Part names one component of a compound identifier.
type Part int

// Identifier parts, innermost first.
const (
	Relation Part = iota
	Schema
	Database
)

func (p Part) String() string {
	switch p {
	case Relation:
		return "relation"
	case Schema:
		return "schema"
	case Database:
		return "database"
	default:
		return "unknown"
	}
}

// ParsePart converts a component name to a Part.
func ParsePart(name string) (Part, bool) {
	switch strings.ToLower(name) {
	case "relation":
		return Relation, true
	case "schema":
		return Schema, true
	case "database":
		return Database, true
	}
	return 0, false
}

// Source is a relation reference ([database.][schema.]relation) at a token
// range of a Statement.
//
// When the range holds individual name tokens separated by "." tokens, each
// part is one token. When it holds a single token, as with a BigQuery path
// quoted as `project.dataset.table`, the parts are dot-separated segments of
// that token.
type Source struct {
	stmt       *Statement
	start, end int
	next       *Source

	names []int // name token indexes, individual form

	compound int // token index, compound form; -1 otherwise
	open     string
	close    string
	segments []string
}

func newSource(stmt *Statement, start, end int) *Source {
	src := &Source{stmt: stmt, start: start, end: end, compound: -1}
	dotted := false
	for i := start; i < end; i++ {
		t := stmt.tokens[i]
		switch {
		case t.IsName():
			src.names = append(src.names, i)
		case t.IsPunct("."):
			dotted = true
		}
	}
	if !dotted && len(src.names) > 0 {
		src.compound = src.names[0]
		src.names = nil
		src.splitCompound(stmt.tokens[src.compound].Text)
	}
	return src
}

// splitCompound breaks a single name token into segments. Configured quotes
// are stripped first; any other surrounding quote pair is kept aside so that
// segments never carry quote characters.
func (s *Source) splitCompound(text string) {
	inner, idx := s.stmt.quotes.strip(text)
	if idx >= 0 {
		s.open, s.close = text[:1], text[len(text)-1:]
	} else if len(inner) >= 2 && isQuotePair(inner[0], inner[len(inner)-1]) {
		s.open, s.close = inner[:1], inner[len(inner)-1:]
		inner = inner[1 : len(inner)-1]
	}
	s.segments = strings.Split(inner, ".")
}

func isQuotePair(a, b byte) bool {
	return (a == b && strings.IndexByte("'\"`", a) >= 0) || (a == '[' && b == ']')
}

// Span returns the [start, end) token range of the source.
func (s *Source) Span() (start, end int) { return s.start, s.end }

// Next returns the source found to the right of this one in the same
// statement, or nil.
func (s *Source) Next() *Source { return s.next }

// Compound reports whether the parts are segments of one token.
func (s *Source) Compound() bool { return s.compound >= 0 }

// String returns the source text as written.
func (s *Source) String() string {
	return token.Join(s.stmt.tokens[s.start:s.end])
}

// Get returns a part without quotes. The boolean is false when the part was
// not written in the SQL.
func (s *Source) Get(p Part) (string, bool) {
	if s.Compound() {
		i := len(s.segments) - 1 - int(p)
		if i < 0 {
			return "", false
		}
		return s.segments[i], true
	}
	idx, ok := s.partToken(p)
	if !ok {
		return "", false
	}
	v, _ := s.stmt.quotes.strip(s.stmt.tokens[idx].Text)
	return v, true
}

// Relation returns the relation name.
func (s *Source) Relation() string {
	v, _ := s.Get(Relation)
	return v
}

// Schema returns the schema name if present.
func (s *Source) Schema() (string, bool) { return s.Get(Schema) }

// Database returns the database name if present.
func (s *Source) Database() (string, bool) { return s.Get(Database) }

// partToken returns the token index of a part in the individual form.
func (s *Source) partToken(p Part) (int, bool) {
	i := len(s.names) - 1 - int(p)
	if i < 0 {
		return 0, false
	}
	return s.names[i], true
}

// quoteOf returns the configured quote index of a name token, or -1.
func (s *Source) quoteOf(idx int) int {
	_, q := s.stmt.quotes.strip(s.stmt.tokens[idx].Text)
	return q
}
