package lexer

import (
	"strings"

	"github.com/leapstack-labs/sqlrunner/pkg/token"
)

// Split tokenizes input and groups the tokens into statements.
//
// Statements end at a ";" outside parentheses and outside BEGIN ... END
// blocks. The ";" and any whitespace after it, up to and including the first
// newline, belong to the statement it terminates. Statements made only of
// whitespace are dropped.
func Split(input string) [][]token.Token {
	tokens := Tokenize(input)

	var (
		out     [][]token.Token
		current []token.Token
		depth   int // parentheses
		blocks  int // BEGIN ... END
		cases   int // CASE ... END
	)
	flush := func() {
		if !allWhitespace(current) {
			out = append(out, current)
		}
		current = nil
	}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		current = append(current, t)

		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			if depth > 0 {
				depth--
			}
		case t.Kind == token.Keyword:
			switch t.Upper() {
			case "CASE":
				cases++
			case "BEGIN":
				if opensBlock(tokens[i+1:]) {
					blocks++
				}
			case "END":
				if cases > 0 {
					cases--
				} else if blocks > 0 {
					blocks--
				}
			}
		case t.IsPunct(";") && depth == 0 && blocks == 0:
			if i+1 < len(tokens) && tokens[i+1].IsWhitespace() {
				head, tail := splitAfterNewline(tokens[i+1])
				current = append(current, head)
				if tail.Text != "" {
					tokens[i+1] = tail
				} else {
					i++
				}
			}
			flush()
		}
	}
	flush()
	return out
}

// opensBlock reports whether a BEGIN starts a block rather than a
// transaction.
func opensBlock(rest []token.Token) bool {
	for _, t := range rest {
		if t.IsWhitespace() || t.IsComment() {
			continue
		}
		if t.IsPunct(";") {
			return false
		}
		switch t.Upper() {
		case "TRANSACTION", "TRAN", "WORK":
			return false
		}
		return true
	}
	return false
}

// splitAfterNewline cuts a whitespace token after its first newline. When
// there is no newline the whole token is the head.
func splitAfterNewline(t token.Token) (head, tail token.Token) {
	idx := strings.IndexByte(t.Text, '\n')
	if idx < 0 {
		return t, token.Token{}
	}
	head = t
	head.Text = t.Text[:idx+1]
	tail = t
	tail.Text = t.Text[idx+1:]
	tail.Pos = t.Pos.Advance(head.Text)
	return head, tail
}

func allWhitespace(tokens []token.Token) bool {
	for _, t := range tokens {
		if !t.IsWhitespace() {
			return false
		}
	}
	return true
}
