package deps

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata is a functional comment inside a SQL file, written as a JSON or
// YAML flow mapping:
//
//	/* {"node_id": "mart.orders", "ignore_dependencies": ["raw.audit"]} */
type Metadata struct {
	NodeID                 string   `yaml:"node_id"`
	OverrideDependencies   []string `yaml:"override_dependencies"`
	IgnoreDependencies     []string `yaml:"ignore_dependencies"`
	AdditionalDependencies []string `yaml:"additional_dependencies"`
	PreprocessNames        bool     `yaml:"preprocess_names"`

	// HasOverride distinguishes an empty override list from none.
	HasOverride bool `yaml:"-"`
}

// ParseMetadata decodes a comment body. Comments that are not a mapping are
// ordinary comments and yield false.
func ParseMetadata(comment string) (Metadata, bool) {
	comment = strings.TrimSpace(comment)
	if !strings.HasPrefix(comment, "{") {
		return Metadata{}, false
	}
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal([]byte(comment), &raw); err != nil {
		return Metadata{}, false
	}
	var md Metadata
	if err := yaml.Unmarshal([]byte(comment), &md); err != nil {
		return Metadata{}, false
	}
	_, md.HasOverride = raw["override_dependencies"]
	return md, true
}

// FirstMetadata returns the first metadata comment among comments.
func FirstMetadata(comments []string) (Metadata, bool) {
	for _, c := range comments {
		if md, ok := ParseMetadata(c); ok {
			return md, true
		}
	}
	return Metadata{}, false
}

// splitRelation splits "schema.table" at the first dot.
func splitRelation(s string) (schema, table string, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	schema, table, ok = strings.Cut(s, ".")
	if !ok || schema == "" || table == "" {
		return "", "", false
	}
	return schema, table, true
}
