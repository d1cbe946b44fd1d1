// Package override rewrites relation names for staging and test runs.
//
// Each mode (staging, test) may carry a Config: an except predicate that
// exempts names from rewriting, and per-part directives (suffix, prefix,
// regex) that build the sandbox name.
package override

import (
	"fmt"
	"regexp"
)

// Names is a three-part relation name. An empty part is absent.
type Names struct {
	Database string
	Schema   string
	Relation string
}

func (n Names) field(name string) string {
	switch name {
	case "database":
		return n.Database
	case "schema":
		return n.Schema
	case "relation":
		return n.Relation
	}
	return ""
}

// Regex replaces matches of Pattern with Replace, which may refer to groups
// as $1 or ${name}.
type Regex struct {
	Pattern string `koanf:"pattern"`
	Replace string `koanf:"replace"`

	re *regexp.Regexp
}

// Directives rewrite one name part. They run in the order suffix, prefix,
// regex, each seeing the result of the previous one.
type Directives struct {
	Suffix string `koanf:"suffix"`
	Prefix string `koanf:"prefix"`
	Regex  *Regex `koanf:"regex"`
}

func (d *Directives) apply(value string) string {
	if d == nil {
		return value
	}
	value += d.Suffix
	value = d.Prefix + value
	if d.Regex != nil && d.Regex.re != nil {
		value = d.Regex.re.ReplaceAllString(value, d.Regex.Replace)
	}
	return value
}

// Parts holds directives per name part.
type Parts struct {
	Database *Directives `koanf:"database"`
	Schema   *Directives `koanf:"schema"`
	Relation *Directives `koanf:"relation"`
}

// Config is the override configuration of one mode.
type Config struct {
	Except   *Expr `koanf:"except"`
	Override Parts `koanf:"override"`
}

// Validate compiles the regex directives.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	for name, d := range map[string]*Directives{
		"database": c.Override.Database,
		"schema":   c.Override.Schema,
		"relation": c.Override.Relation,
	} {
		if d == nil || d.Regex == nil {
			continue
		}
		re, err := regexp.Compile(d.Regex.Pattern)
		if err != nil {
			return fmt.Errorf("override.%s.regex: %w", name, err)
		}
		d.Regex.re = re
	}
	return nil
}

// Apply runs the directives on every present part. Absent parts stay absent.
func (c *Config) Apply(n Names) Names {
	if n.Database != "" {
		n.Database = c.Override.Database.apply(n.Database)
	}
	if n.Schema != "" {
		n.Schema = c.Override.Schema.apply(n.Schema)
	}
	if n.Relation != "" {
		n.Relation = c.Override.Relation.apply(n.Relation)
	}
	return n
}

// Rewriter applies the name preprocessing of one run.
type Rewriter struct {
	// Mode is the override config of the active mode, nil outside staging
	// and test or when the mode has no config.
	Mode *Config

	// ExplicitDatabase fills in Database on names that have a schema.
	ExplicitDatabase bool
	Database         string

	// LocallyIndependent limits rewriting to relations built by this run.
	LocallyIndependent bool
	Requested          func(schema, relation string) bool
}

// Rewrite returns the preprocessed name. Names without a schema, such as
// CTE references, are returned unchanged.
func (r *Rewriter) Rewrite(n Names) Names {
	if r == nil || n.Schema == "" {
		return n
	}
	if r.ExplicitDatabase && n.Database == "" {
		n.Database = r.Database
	}
	if r.Mode == nil {
		return n
	}
	if r.LocallyIndependent && (r.Requested == nil || !r.Requested(n.Schema, n.Relation)) {
		return n
	}
	if r.Mode.Except.Eval(n) {
		return n
	}
	return r.Mode.Apply(n)
}
