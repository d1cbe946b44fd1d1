package lexer

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlrunner/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_Lossless(t *testing.T) {
	inputs := []string{
		"SELECT * FROM a.b",
		"select a, 'it''s' AS s -- trailing\nfrom \"Sch\".\"Tbl\" t where x >= 1.5e3",
		"/* assert_row_count 3 */\nSELECT `proj.ds.tbl`.col FROM `proj.ds.tbl`",
		"CREATE FUNCTION f() RETURNS int AS $$ SELECT 1; $$ LANGUAGE sql;",
		"SELECT arr[1], [bracketed name] FROM x.y",
		"SELECT ünïcode FROM s.t",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, in, token.Join(Tokenize(in)))
		})
	}
}

func TestTokenize_Classes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple select",
			input: "SELECT * FROM a.b",
			want:  "s o f n.n",
		},
		{
			name:  "comma sources and join",
			input: "SELECT * FROM a.b, c.d JOIN e.f",
			want:  "s o f n.n, n.n f n.n",
		},
		{
			name:  "comments and numbers",
			input: "-- hi\nSELECT 1 LIMIT 10",
			want:  "-s # l #",
		},
		{
			name:  "extract from is a name",
			input: "SELECT EXTRACT(year FROM ts) FROM s.t",
			want:  "s n(n n n) f n.n",
		},
		{
			name:  "sub-select inside function keeps from",
			input: "SELECT coalesce((SELECT max(x) FROM s.t), 0)",
			want:  "s n((s n(n) f n.n), #)",
		},
		{
			name:  "keyword after dot is a name",
			input: "SELECT t.select FROM s.from",
			want:  "s n.n f n.n",
		},
		{
			name:  "dml markers",
			input: "DELETE FROM a.b; INSERT INTO a.b SELECT 1; UPDATE a.b SET x = 1",
			want:  "x f n.n; I i n.n s #; u n.n k n o #",
		},
		{
			name:  "create as with cte",
			input: "CREATE TABLE x.y AS WITH c AS (SELECT 1) SELECT * FROM c",
			want:  "d k n.n a c n a (s #) s o f n",
		},
		{
			name:  "strings and quoted names",
			input: `SELECT 'a' FROM "S"."T"`,
			want:  "s ? f n.n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := Tokenize(tt.input)
			got := token.Classes(toks)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(toks))
		})
	}
}

func TestTokenize_Positions(t *testing.T) {
	toks := Tokenize("SELECT 1\nFROM a.b")
	var from token.Token
	for _, tok := range toks {
		if tok.Keyword == token.KwFrom {
			from = tok
		}
	}
	assert.Equal(t, 2, from.Pos.Line)
	assert.Equal(t, 1, from.Pos.Column)
	assert.Equal(t, 9, from.Pos.Offset)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single statement without terminator",
			input: "SELECT 1",
			want:  []string{"SELECT 1"},
		},
		{
			name:  "terminator keeps the newline",
			input: "SELECT 1;\nSELECT 2;\n",
			want:  []string{"SELECT 1;\n", "SELECT 2;\n"},
		},
		{
			name:  "whitespace after newline starts next statement",
			input: "SELECT 1;\n\n  SELECT 2",
			want:  []string{"SELECT 1;\n", "\n  SELECT 2"},
		},
		{
			name:  "semicolon inside string and dollar body",
			input: "SELECT ';'; CREATE FUNCTION f() AS $$ a; b $$;",
			want:  []string{"SELECT ';'; ", "CREATE FUNCTION f() AS $$ a; b $$;"},
		},
		{
			name:  "begin end block is one statement",
			input: "IF 1 = 1 BEGIN SELECT 1; SELECT CASE WHEN 1 THEN 2 END; END;\nSELECT 3",
			want:  []string{"IF 1 = 1 BEGIN SELECT 1; SELECT CASE WHEN 1 THEN 2 END; END;\n", "SELECT 3"},
		},
		{
			name:  "begin transaction is not a block",
			input: "BEGIN TRANSACTION; SELECT 1;",
			want:  []string{"BEGIN TRANSACTION; ", "SELECT 1;"},
		},
		{
			name:  "whitespace only input",
			input: "  \n ",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts := Split(tt.input)
			var got []string
			for _, s := range stmts {
				got = append(got, token.Join(s))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplit_ReassemblesInput(t *testing.T) {
	input := "/* assert_row_count 1 */\nDELETE FROM a.b;\nINSERT INTO a.b\nSELECT * FROM c.d;"
	var sb strings.Builder
	for _, s := range Split(input) {
		sb.WriteString(token.Join(s))
	}
	require.Equal(t, input, sb.String())
}
