package dialect

import (
	"regexp"
	"strings"
)

// Physical layout hints are read from anywhere inside a block comment of
// the SQL file.
var (
	distkeyPattern      = regexp.MustCompile(`(?is)/\*.*(distkey\s*\([^()]*\)).*\**/`)
	emptyDistkey        = regexp.MustCompile(`(?i)^distkey\s*\(\s*\)$`)
	qualifiedSortkey    = regexp.MustCompile(`(?is)/\*.*((?:compound\s*sortkey|interleaved\s*sortkey)\s*\([^()]*\)).*\**/`)
	sortkeyPattern      = regexp.MustCompile(`(?is)/\*.*(sortkey\s*\([^()]*\)).*\**/`)
	partitionPattern    = regexp.MustCompile(`(?is)/\*.*(partition\s+by\s+[^\s]*).*\**/`)
	optionsPattern      = regexp.MustCompile(`(?is)/\*.*(options\s*\([^()]*\)).*\**/`)
	distributionPattern = regexp.MustCompile(`(?is)/\*.*(?:distribution\s*=\s*hash\s*\(([^()]*)\)).*\**/`)
	uniqueKeyPattern    = regexp.MustCompile(`(?is)/\*.*unique key\s*\(([^()]*)\).*\**/`)
)

// Distkey returns the Redshift distribution clause for sql.
func Distkey(sql string) string {
	m := distkeyPattern.FindStringSubmatch(sql)
	switch {
	case m == nil:
		return "DISTSTYLE EVEN"
	case emptyDistkey.MatchString(m[1]):
		return "DISTSTYLE ALL"
	default:
		return "DISTSTYLE KEY " + m[1]
	}
}

// Sortkey returns the Redshift sort key clause for sql, or "".
func Sortkey(sql string) string {
	if m := qualifiedSortkey.FindStringSubmatch(sql); m != nil {
		return m[1]
	}
	if m := sortkeyPattern.FindStringSubmatch(sql); m != nil {
		return m[1]
	}
	return ""
}

// PartitionBy returns the BigQuery PARTITION BY clause for sql, or "".
func PartitionBy(sql string) string {
	return firstGroup(partitionPattern, sql)
}

// Options returns the BigQuery OPTIONS clause for sql, or "".
func Options(sql string) string {
	return firstGroup(optionsPattern, sql)
}

// Distribution returns the Azure Synapse distribution option for sql.
func Distribution(sql string) string {
	if m := distributionPattern.FindStringSubmatch(sql); m != nil {
		return "DISTRIBUTION = HASH (" + m[1] + ")"
	}
	return "DISTRIBUTION = ROUND_ROBIN"
}

// UniqueKeys returns the columns of a UNIQUE KEY (a, b) comment.
func UniqueKeys(sql string) []string {
	m := uniqueKeyPattern.FindStringSubmatch(sql)
	if m == nil {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(m[1], ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// clause joins non-empty parts with single spaces.
func clause(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}
