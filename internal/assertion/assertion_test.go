package assertion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantName string
		wantArgs []any
	}{
		{
			name:     "row count",
			sql:      "/* assert_row_count 3 */\nSELECT 1",
			wantName: "assert_row_count",
			wantArgs: []any{3.0},
		},
		{
			name:     "almost equal without args",
			sql:      "/*assert_almost_equal*/ SELECT 1 UNION ALL SELECT 1",
			wantName: "assert_almost_equal",
		},
		{
			name:     "almost equal with tolerance",
			sql:      "/* assert_almost_equal 0.5 */\nSELECT 1",
			wantName: "assert_almost_equal",
			wantArgs: []any{0.5},
		},
		{
			name:     "multiline directive",
			sql:      "/*\n  assert_row_count\n  10\n*/\nSELECT 1",
			wantName: "assert_row_count",
			wantArgs: []any{10.0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.sql)
			require.NoError(t, err)
			require.NotNil(t, a)
			assert.Equal(t, tt.wantName, a.Name)
			assert.Equal(t, tt.wantArgs, a.Args)
		})
	}
}

func TestParse_None(t *testing.T) {
	for _, sql := range []string{
		"SELECT 1",
		"/* just a comment */ SELECT 1",
		"\n/* assert_row_count 1 */ SELECT 1",
	} {
		a, err := Parse(sql)
		assert.NoError(t, err)
		assert.Nil(t, a, sql)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("/* assert_nothing_wrong */ SELECT 1")
	var unknown *UnknownError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "assert_nothing_wrong", unknown.Name)

	_, err = Parse("/* assert_row_count */ SELECT 1")
	assert.Error(t, err, "row count needs an argument")

	_, err = Parse("/* assert_row_count ten */ SELECT 1")
	assert.Error(t, err, "unquoted non-number")
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []any
	}{
		{in: "", want: nil},
		{in: "1", want: []any{1.0}},
		{in: `1, "a,b", "say ""hi""", 2.5`, want: []any{1.0, "a,b", `say "hi"`, 2.5}},
		{in: `"1", 1`, want: []any{"1", 1.0}},
		{in: "1,\n 2", want: []any{1.0, 2.0}},
		{in: ` "x" `, want: []any{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseArgs(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{`"open`, `1,`, `"a" "b"`, `abc`} {
		_, err := parseArgs(bad)
		assert.Error(t, err, bad)
	}
}

func TestCheck_AlmostEqual(t *testing.T) {
	a := &Assertion{Name: "assert_almost_equal"}

	assert.NoError(t, a.Check([][]any{{int64(10)}, {10.05}}))
	assert.NoError(t, a.Check([][]any{{[]byte("1.00")}, {"1.05"}}))

	var failed *Error
	require.True(t, errors.As(a.Check([][]any{{1.0}, {2.0}}), &failed))
	assert.Equal(t, "assert_almost_equal", failed.Name)

	assert.Error(t, a.Check([][]any{{1.0}}), "needs exactly two rows")
	assert.Error(t, a.Check([][]any{{nil}, {1.0}}), "NULL is not numeric")

	loose := &Assertion{Name: "assert_almost_equal", Args: []any{5.0}}
	assert.NoError(t, loose.Check([][]any{{1}, {4}}))
}

func TestCheck_RowCount(t *testing.T) {
	a := &Assertion{Name: "assert_row_count", Args: []any{2.0}}
	assert.NoError(t, a.Check([][]any{{1}, {2}}))

	var failed *Error
	require.True(t, errors.As(a.Check(nil), &failed))
	assert.Contains(t, failed.Msg, "Expected 2, got 0")
}
