package token

// keywords maps upper-case words to their keyword kind. Words not listed here
// lex as names, which is the safe default for the matchers: an unknown word in
// a FROM clause is treated as an identifier.
var keywords = map[string]KeywordKind{
	"FROM":   KwFrom,
	"JOIN":   KwJoin,
	"SELECT": KwSelect,
	"LIMIT":  KwLimit,
	"DELETE": KwDelete,
	"INSERT": KwInsert,
	"INTO":   KwInto,
	"UPDATE": KwUpdate,
	"WITH":   KwCTE,
	"AS":     KwAs,

	"MERGE":   KwDML,
	"UPSERT":  KwDML,
	"REPLACE": KwDML,
	"COPY":    KwDML,
	"UNLOAD":  KwDML,

	"CREATE":   KwDDL,
	"DROP":     KwDDL,
	"ALTER":    KwDDL,
	"TRUNCATE": KwDDL,
	"RENAME":   KwDDL,
	"COMMENT":  KwDDL,
	"GRANT":    KwDDL,
	"REVOKE":   KwDDL,

	"ALL": KwGeneric, "ANALYZE": KwGeneric, "AND": KwGeneric, "ANY": KwGeneric, "ASC": KwGeneric,
	"BEGIN": KwGeneric, "BETWEEN": KwGeneric, "BY": KwGeneric, "CASCADE": KwGeneric, "CASE": KwGeneric,
	"CAST": KwGeneric, "CHECK": KwGeneric, "COLLATE": KwGeneric, "COLUMN": KwGeneric, "COMMIT": KwGeneric,
	"CONSTRAINT": KwGeneric, "CROSS": KwGeneric, "CURRENT": KwGeneric, "DATABASE": KwGeneric,
	"DECLARE": KwGeneric, "DEFAULT": KwGeneric, "DESC": KwGeneric, "DISTINCT": KwGeneric,
	"DISTKEY": KwGeneric, "DISTSTYLE": KwGeneric, "ELSE": KwGeneric, "END": KwGeneric,
	"ESCAPE": KwGeneric, "EXCEPT": KwGeneric, "EXEC": KwGeneric, "EXECUTE": KwGeneric,
	"EXISTS": KwGeneric, "FALSE": KwGeneric, "FETCH": KwGeneric, "FILTER": KwGeneric,
	"FIRST": KwGeneric, "FOLLOWING": KwGeneric, "FOR": KwGeneric, "FOREIGN": KwGeneric,
	"FULL": KwGeneric, "FUNCTION": KwGeneric, "GROUP": KwGeneric, "HAVING": KwGeneric, "IF": KwGeneric,
	"ILIKE": KwGeneric, "IN": KwGeneric, "INDEX": KwGeneric, "INNER": KwGeneric, "INTERSECT": KwGeneric,
	"INTERVAL": KwGeneric, "IS": KwGeneric, "KEY": KwGeneric, "LAST": KwGeneric, "LATERAL": KwGeneric,
	"LEFT": KwGeneric, "LIKE": KwGeneric, "MATERIALIZED": KwGeneric, "MINUS": KwGeneric,
	"NATURAL": KwGeneric, "NOT": KwGeneric, "NULL": KwGeneric, "NULLS": KwGeneric, "OFFSET": KwGeneric,
	"ON": KwGeneric, "OR": KwGeneric, "ORDER": KwGeneric, "OUTER": KwGeneric, "OVER": KwGeneric,
	"PARTITION": KwGeneric, "PRECEDING": KwGeneric, "PRIMARY": KwGeneric, "PROCEDURE": KwGeneric,
	"QUALIFY": KwGeneric, "RANGE": KwGeneric, "RECURSIVE": KwGeneric, "REFERENCES": KwGeneric,
	"RESTRICT": KwGeneric, "RETURNING": KwGeneric, "RETURNS": KwGeneric, "RIGHT": KwGeneric,
	"ROLLBACK": KwGeneric, "ROW": KwGeneric, "ROWS": KwGeneric, "SCHEMA": KwGeneric, "SET": KwGeneric,
	"SOME": KwGeneric, "SORTKEY": KwGeneric, "TABLE": KwGeneric, "TEMP": KwGeneric,
	"TEMPORARY": KwGeneric, "THEN": KwGeneric, "TOP": KwGeneric, "TRANSACTION": KwGeneric,
	"TRUE": KwGeneric, "UNBOUNDED": KwGeneric, "UNION": KwGeneric, "UNIQUE": KwGeneric,
	"UNNEST": KwGeneric, "USE": KwGeneric, "USING": KwGeneric, "VALUES": KwGeneric, "VIEW": KwGeneric,
	"WHEN": KwGeneric, "WHERE": KwGeneric, "WINDOW": KwGeneric,
}

// nonCallable keywords keep their keyword role even when followed by "(".
// Every other keyword directly followed by a parenthesis is a function name.
var nonCallable = map[string]bool{
	"FROM": true, "JOIN": true, "IN": true, "AS": true, "VALUES": true, "USING": true, "ON": true,
	"AND": true, "OR": true, "NOT": true, "EXISTS": true, "WHERE": true, "SELECT": true, "WITH": true,
	"OVER": true, "LATERAL": true, "THEN": true, "WHEN": true, "ELSE": true, "CASE": true, "ANY": true,
	"ALL": true, "SOME": true, "UNION": true, "INTERSECT": true, "EXCEPT": true, "MINUS": true,
	"BY": true, "HAVING": true, "INTO": true, "TABLE": true, "VIEW": true, "DISTINCT": true,
	"RETURNS": true, "LIMIT": true, "IS": true, "FILTER": true, "UNNEST": true, "INSERT": true,
	"EXEC": true, "IF": true,
}

// Lookup returns the keyword kind of an upper-case word.
func Lookup(upper string) (KeywordKind, bool) {
	k, ok := keywords[upper]
	return k, ok
}

// Callable reports whether a keyword turns into a function name when it is
// directly followed by an opening parenthesis, e.g. COALESCE( or EXTRACT(.
func Callable(upper string) bool {
	return !nonCallable[upper]
}
