// Package assertion checks the rows returned by a job's statements against a
// directive written in the job's leading block comment:
//
//	/* assert_row_count 3 */
//	/* assert_almost_equal 0.5 */
//
// Arguments are a CSV record. Double-quoted arguments are strings, unquoted
// ones are numbers.
package assertion

import (
	"encoding/csv"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var directivePattern = regexp.MustCompile(`^/\*\s*(assert_[a-z_]+)\s*((?s:.*?))\s*\*/`)

// Func checks rows with the directive arguments.
type Func func(args []any, rows [][]any) error

type builtin struct {
	fn      Func
	minArgs int
	maxArgs int
}

var builtins = map[string]builtin{
	"assert_almost_equal": {fn: almostEqual, minArgs: 0, maxArgs: 1},
	"assert_row_count":    {fn: rowCount, minArgs: 1, maxArgs: 1},
}

// Assertion is a parsed directive.
type Assertion struct {
	Name string
	Args []any
}

// Error is a failed assertion.
type Error struct {
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Name, e.Msg)
}

// UnknownError reports a directive naming no known assertion.
type UnknownError struct {
	Name string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("check '%s' is not defined", e.Name)
}

// Parse reads the directive at the very start of sql. It returns nil when
// there is none.
func Parse(sql string) (*Assertion, error) {
	m := directivePattern.FindStringSubmatch(sql)
	if m == nil {
		return nil, nil
	}
	name := m[1]
	b, ok := builtins[name]
	if !ok {
		return nil, &UnknownError{Name: name}
	}
	args, err := parseArgs(m[2])
	if err != nil {
		return nil, fmt.Errorf("%s arguments: %w", name, err)
	}
	if len(args) < b.minArgs || len(args) > b.maxArgs {
		return nil, fmt.Errorf("%s takes %d to %d arguments, got %d", name, b.minArgs, b.maxArgs, len(args))
	}
	return &Assertion{Name: name, Args: args}, nil
}

// Check runs the assertion on rows.
func (a *Assertion) Check(rows [][]any) error {
	return builtins[a.Name].fn(a.Args, rows)
}

func almostEqual(args []any, rows [][]any) error {
	tolerance := 0.1
	if len(args) > 0 {
		t, ok := args[0].(float64)
		if !ok {
			return &Error{Name: "assert_almost_equal", Msg: fmt.Sprintf("tolerance must be a number, got %v", args[0])}
		}
		tolerance = t
	}
	if len(rows) != 2 || len(rows[0]) == 0 || len(rows[1]) == 0 {
		return &Error{Name: "assert_almost_equal", Msg: "works only on queries that return 2 exact rows and 1 column"}
	}
	v0, err := toFloat(rows[0][0])
	if err != nil {
		return &Error{Name: "assert_almost_equal", Msg: err.Error()}
	}
	v1, err := toFloat(rows[1][0])
	if err != nil {
		return &Error{Name: "assert_almost_equal", Msg: err.Error()}
	}
	if math.Abs(v0-v1) > tolerance {
		return &Error{
			Name: "assert_almost_equal",
			Msg:  fmt.Sprintf("values are too far apart. Tolerance %v, %v-%v=%v", tolerance, v0, v1, v0-v1),
		}
	}
	return nil
}

func rowCount(args []any, rows [][]any) error {
	n, ok := args[0].(float64)
	if !ok {
		return &Error{Name: "assert_row_count", Msg: fmt.Sprintf("row count must be a number, got %v", args[0])}
	}
	if len(rows) != int(n) {
		return &Error{Name: "assert_row_count", Msg: fmt.Sprintf("incorrect number of rows. Expected %d, got %d", int(n), len(rows))}
	}
	return nil
}

// toFloat converts a driver value to float64.
func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case fmt.Stringer:
		return strconv.ParseFloat(strings.TrimSpace(x.String()), 64)
	case nil:
		return 0, fmt.Errorf("value is NULL")
	}
	return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
}

// parseArgs reads a single CSV record. Double-quoted fields are strings,
// everything else must parse as a number.
func parseArgs(s string) ([]any, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if s == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(s))
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("invalid arguments %q: %w", s, err)
	}

	args := make([]any, 0, len(fields))
	for i, field := range fields {
		if _, col := r.FieldPos(i); s[col-1] == '"' {
			args = append(args, field)
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("unquoted argument %q is not a number", field)
		}
		args = append(args, n)
	}
	return args, nil
}
