package override

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpr_Eval(t *testing.T) {
	name := Names{Database: "dwh", Schema: "xfer", Relation: "tmp_orders"}

	tests := []struct {
		expr string
		want bool
	}{
		{expr: `schema ^= "x"`, want: true},
		{expr: `schema ^= "y"`, want: false},
		{expr: `relation $= "_orders"`, want: true},
		{expr: `schema == "xfer"`, want: true},
		{expr: `schema != "xfer"`, want: false},
		{expr: `relation ~ "^tmp_\d*"`, want: true},
		{expr: `database in ["prod", "dwh"]`, want: true},
		{expr: `database in []`, want: false},
		{expr: `not schema ^= "x"`, want: false},
		{expr: `schema ^= "y" or relation ^= "tmp"`, want: true},
		{expr: `schema ^= "x" and relation ^= "dim"`, want: false},
		{expr: `(schema ^= "y" or schema ^= "x") and not (relation == "a")`, want: true},
		{expr: `SCHEMA ^= 'x' AND Relation != 'it\'s'`, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := ParseExpr(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Eval(name))
		})
	}
}

func TestExpr_AbsentPartIsEmpty(t *testing.T) {
	e := MustParseExpr(`database == ""`)
	assert.True(t, e.Eval(Names{Schema: "s", Relation: "r"}))

	var nilExpr *Expr
	assert.False(t, nilExpr.Eval(Names{Schema: "s"}))
}

func TestParseExpr_Errors(t *testing.T) {
	inputs := []string{
		``,
		`schema`,
		`schema ^=`,
		`column == "x"`,
		`schema == "x" or`,
		`(schema == "x"`,
		`schema in "x"`,
		`schema == "unterminated`,
		`relation ~ "("`,
		`schema = "x"`,
		`schema == "x" extra`,
		`re.search('^x', schema)`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseExpr(in)
			var syntax *SyntaxError
			require.Error(t, err)
			assert.True(t, errors.As(err, &syntax), "got %T", err)
		})
	}
}

func TestExpr_UnmarshalText(t *testing.T) {
	var e Expr
	require.NoError(t, e.UnmarshalText([]byte(`schema ^= "x"`)))
	assert.True(t, e.Eval(Names{Schema: "xy"}))
	assert.Equal(t, `schema ^= "x"`, e.String())

	assert.Error(t, e.UnmarshalText([]byte(`schema ^^ "x"`)))
}

func TestConfig_ApplyOrder(t *testing.T) {
	cfg := &Config{Override: Parts{
		Schema: &Directives{
			Suffix: "_s",
			Prefix: "p_",
			Regex:  &Regex{Pattern: `^p_(.*)_s$`, Replace: "stg_${1}"},
		},
		Relation: &Directives{Prefix: "t_"},
	}}
	require.NoError(t, cfg.Validate())

	got := cfg.Apply(Names{Schema: "sales", Relation: "orders"})
	assert.Equal(t, Names{Schema: "stg_sales", Relation: "t_orders"}, got)
}

func TestConfig_ValidateBadRegex(t *testing.T) {
	cfg := &Config{Override: Parts{Database: &Directives{Regex: &Regex{Pattern: "("}}}}
	assert.Error(t, cfg.Validate())
}

func TestRewriter_Rewrite(t *testing.T) {
	staging := &Config{
		Except:   MustParseExpr(`schema ^= "x"`),
		Override: Parts{Schema: &Directives{Prefix: "stg_"}},
	}
	require.NoError(t, staging.Validate())

	requested := map[[2]string]bool{{"sales", "orders"}: true}

	tests := []struct {
		name string
		rw   *Rewriter
		in   Names
		want Names
	}{
		{
			name: "no schema is untouched",
			rw:   &Rewriter{Mode: staging, ExplicitDatabase: true, Database: "DWH"},
			in:   Names{Relation: "cte"},
			want: Names{Relation: "cte"},
		},
		{
			name: "explicit database is filled without mode",
			rw:   &Rewriter{ExplicitDatabase: true, Database: "DWH"},
			in:   Names{Schema: "sales", Relation: "orders"},
			want: Names{Database: "DWH", Schema: "sales", Relation: "orders"},
		},
		{
			name: "explicit database keeps a written one",
			rw:   &Rewriter{ExplicitDatabase: true, Database: "DWH"},
			in:   Names{Database: "other", Schema: "sales", Relation: "orders"},
			want: Names{Database: "other", Schema: "sales", Relation: "orders"},
		},
		{
			name: "staging prefix",
			rw:   &Rewriter{Mode: staging},
			in:   Names{Schema: "sales", Relation: "orders"},
			want: Names{Schema: "stg_sales", Relation: "orders"},
		},
		{
			name: "except exempts",
			rw:   &Rewriter{Mode: staging},
			in:   Names{Schema: "xfer", Relation: "orders"},
			want: Names{Schema: "xfer", Relation: "orders"},
		},
		{
			name: "locally independent skips relations not built here",
			rw: &Rewriter{Mode: staging, LocallyIndependent: true, Requested: func(s, r string) bool {
				return requested[[2]string{s, r}]
			}},
			in:   Names{Schema: "raw", Relation: "events"},
			want: Names{Schema: "raw", Relation: "events"},
		},
		{
			name: "locally independent rewrites requested relations",
			rw: &Rewriter{Mode: staging, LocallyIndependent: true, Requested: func(s, r string) bool {
				return requested[[2]string{s, r}]
			}},
			in:   Names{Schema: "sales", Relation: "orders"},
			want: Names{Schema: "stg_sales", Relation: "orders"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rw.Rewrite(tt.in))
		})
	}
}
