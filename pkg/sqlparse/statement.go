// Package sqlparse locates and rewrites relation references in SQL text
// without a full grammar.
//
// A Statement is an immutable token sequence. Structural questions (where are
// the FROM sources, where does the DDL header end, is there a LIMIT) are
// answered by regular expressions over the statement's class string, in which
// every byte stands for one token. Rewrites go through an Editor that records
// edits in the original token coordinates and produces a new Statement.
package sqlparse

import (
	"regexp"
	"strings"
	"sync"

	"github.com/leapstack-labs/sqlrunner/pkg/lexer"
	"github.com/leapstack-labs/sqlrunner/pkg/token"
)

// Quotes pairs start and end identifier quote characters by index.
type Quotes struct {
	Start string
	End   string
}

// DefaultQuotes is ANSI double quoting.
var DefaultQuotes = Quotes{Start: `"`, End: `"`}

// BacktickQuotes is BigQuery-style quoting.
var BacktickQuotes = Quotes{Start: "`", End: "`"}

// strip removes one pair of configured quotes around name. It returns the
// quote index, or -1 when the name is not quoted.
func (q Quotes) strip(name string) (string, int) {
	if len(name) < 2 {
		return name, -1
	}
	idx := strings.IndexByte(q.Start, name[0])
	if idx < 0 || idx >= len(q.End) || name[len(name)-1] != q.End[idx] {
		return name, -1
	}
	return name[1 : len(name)-1], idx
}

// wrap quotes value with the pair at idx; idx < 0 leaves it bare.
func (q Quotes) wrap(value string, idx int) string {
	if idx < 0 || idx >= len(q.Start) || idx >= len(q.End) {
		return value
	}
	return q.Start[idx:idx+1] + value + q.End[idx:idx+1]
}

var (
	dmlPattern = regexp.MustCompile(`[csIxu]`)

	sourcePattern = regexp.MustCompile(
		`((?:x[\s-]*)?f[\s-]*)` + // FROM or JOIN, DELETE FROM is filtered afterwards
			`((?:n\.){0,2}n(?:[\s-]*,[\s-]*(?:n\.){0,2}n)*)`)

	destinationPattern = regexp.MustCompile(
		`(x[\s-]*f[\s-]*|I[\s-]*i[\s-]*|u[\s-]*)` + // DELETE FROM, INSERT INTO, UPDATE
			`((?:n\.){0,2}n)`)

	destinationPrefix = regexp.MustCompile(`^(?:x[\s-]*f[\s-]*|I[\s-]*i[\s-]*|u[\s-]*)(?:n\.){0,2}n`)
)

// Statement is one parsed SQL statement. It is safe for concurrent reads.
type Statement struct {
	tokens []token.Token
	quotes Quotes

	classes     func() string
	sources     func() []*Source
	withoutDDL  func() *Statement
	commentText func() []string
}

// Parse splits sql into statements using the given identifier quotes.
func Parse(sql string, quotes Quotes) []*Statement {
	groups := lexer.Split(sql)
	out := make([]*Statement, 0, len(groups))
	for _, g := range groups {
		out = append(out, New(g, quotes))
	}
	return out
}

// New wraps a token sequence. The slice must not be modified afterwards.
func New(tokens []token.Token, quotes Quotes) *Statement {
	s := &Statement{tokens: tokens, quotes: quotes}
	s.classes = sync.OnceValue(func() string { return token.Classes(s.tokens) })
	s.sources = sync.OnceValue(s.findSources)
	s.withoutDDL = sync.OnceValue(s.stripDDL)
	s.commentText = sync.OnceValue(s.collectComments)
	return s
}

// Tokens returns the statement tokens. Callers must not modify them.
func (s *Statement) Tokens() []token.Token { return s.tokens }

// Len returns the number of tokens.
func (s *Statement) Len() int { return len(s.tokens) }

// Quotes returns the identifier quotes of the statement.
func (s *Statement) Quotes() Quotes { return s.quotes }

// String returns the statement text.
func (s *Statement) String() string { return token.Join(s.tokens) }

// Classes returns the class string of the statement.
func (s *Statement) Classes() string { return s.classes() }

// HasDML reports whether the statement contains a SELECT, WITH, INSERT,
// DELETE or UPDATE.
func (s *Statement) HasDML() bool {
	return dmlPattern.MatchString(s.Classes())
}

// Sources returns the relation references of every FROM and JOIN clause, left
// to right. DELETE FROM targets are not sources.
func (s *Statement) Sources() []*Source { return s.sources() }

func (s *Statement) findSources() []*Source {
	classes := s.Classes()
	var sources []*Source
	for _, m := range sourcePattern.FindAllStringSubmatchIndex(classes, -1) {
		if destinationPrefix.MatchString(classes[m[0]:m[1]]) {
			continue
		}
		listStart := m[4]
		for _, chain := range nameChains(classes[m[4]:m[5]]) {
			src := newSource(s, listStart+chain[0], listStart+chain[1])
			if n := len(sources); n > 0 {
				sources[n-1].next = src
			}
			sources = append(sources, src)
		}
	}
	return sources
}

// Destination returns the relation written by a DELETE FROM, INSERT INTO or
// UPDATE statement, or nil.
func (s *Statement) Destination() *Source {
	classes := s.Classes()
	m := destinationPattern.FindStringSubmatchIndex(classes)
	if m == nil {
		return nil
	}
	chains := nameChains(classes[m[4]:m[5]])
	if len(chains) == 0 {
		return nil
	}
	return newSource(s, m[4]+chains[0][0], m[4]+chains[0][1])
}

// nameChains finds runs of one to three dot-joined "n" classes that are not
// glued to another "." or "n" on either side. It returns [start, end) pairs.
func nameChains(list string) [][2]int {
	var out [][2]int
	for i := 0; i < len(list); {
		if list[i] != 'n' || (i > 0 && (list[i-1] == '.' || list[i-1] == 'n')) {
			i++
			continue
		}
		j, names := i+1, 1
		for j+1 < len(list) && list[j] == '.' && list[j+1] == 'n' {
			j += 2
			names++
		}
		if names <= 3 && (j >= len(list) || (list[j] != '.' && list[j] != 'n')) {
			out = append(out, [2]int{i, j})
		}
		i = j
	}
	return out
}

// WithoutDDL returns the statement without a leading "CREATE ... AS" header,
// so CREATE TABLE x AS SELECT ... yields the SELECT. Statements without such a
// header are returned unchanged.
func (s *Statement) WithoutDDL() *Statement { return s.withoutDDL() }

func (s *Statement) stripDDL() *Statement {
	end := ddlHeaderEnd(s.Classes())
	if end <= 0 {
		return s
	}
	return New(s.tokens[end:], s.quotes)
}

// ddlHeaderEnd returns the length of the DDL header: optional blanks, a DDL
// keyword, then everything up to the first AS that is followed, after blanks,
// by WITH or SELECT. It returns 0 when there is no header.
func ddlHeaderEnd(classes string) int {
	i := skipBlank(classes, 0)
	if i >= len(classes) || classes[i] != 'd' {
		return 0
	}
	for j := i + 2; j < len(classes); j++ {
		if classes[j] != 'a' {
			continue
		}
		k := skipBlank(classes, j+1)
		if k < len(classes) && (classes[k] == 'c' || classes[k] == 's') {
			return k
		}
	}
	return 0
}

func skipBlank(classes string, i int) int {
	for i < len(classes) && (classes[i] == ' ' || classes[i] == '-') {
		i++
	}
	return i
}

// Comments returns the text of every comment, without delimiters and
// trimmed.
func (s *Statement) Comments() []string { return s.commentText() }

func (s *Statement) collectComments() []string {
	var out []string
	for _, t := range s.tokens {
		switch t.Kind {
		case token.BlockComment:
			text := strings.TrimPrefix(t.Text, "/*")
			text = strings.TrimSuffix(text, "*/")
			out = append(out, strings.TrimSpace(text))
		case token.LineComment:
			out = append(out, strings.TrimSpace(strings.TrimPrefix(t.Text, "--")))
		}
	}
	return out
}

// Edit starts an edit script on the statement.
func (s *Statement) Edit() *Editor {
	return newEditor(s)
}
