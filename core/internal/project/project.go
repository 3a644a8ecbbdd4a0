// Package project turns a JSONB document returned by the adapter into a
// GraphQL response object, applying field aliases and the column-to-field
// renames the planner recorded. Values are echoed through without type
// coercion except NULL pass-through (spec: "Projection... values are echoed
// through to the GraphQL response without type coercion except NULL
// pass-through").
package project

import (
	"encoding/json"

	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
	"github.com/fraiseql/fraiseql-sub006/core/internal/graph"
)

// Template is the compiled per-field projection: which source key to read
// from the decoded JSONB object, what alias to emit it under, and (for
// object/list sub-selections) a nested template.
type Template struct {
	SourceKey string
	Alias     string
	Nested    []Template
}

// BuildTemplate compiles a field's GraphQL selection set into a projection
// template. Every selected field reads its own name out of the JSONB
// object unless aliased, in which case the alias is only the output key —
// the source key stays the field's name.
func BuildTemplate(selections []*graph.Field) []Template {
	templates := make([]Template, 0, len(selections))
	for _, f := range selections {
		out := f.Name
		if f.Alias != "" {
			out = f.Alias
		}
		t := Template{SourceKey: f.Name, Alias: out}
		if len(f.Selections) > 0 {
			t.Nested = BuildTemplate(f.Selections)
		}
		templates = append(templates, t)
	}
	return templates
}

// Row projects one decoded JSONB document through template, renaming keys
// to their declared aliases and recursing into nested object/array values.
func Row(doc map[string]interface{}, template []Template) map[string]interface{} {
	out := make(map[string]interface{}, len(template))
	for _, t := range template {
		v, ok := doc[t.SourceKey]
		if !ok || v == nil {
			out[t.Alias] = nil
			continue
		}
		out[t.Alias] = projectValue(v, t.Nested)
	}
	return out
}

func projectValue(v interface{}, nested []Template) interface{} {
	if len(nested) == 0 {
		return v
	}
	switch val := v.(type) {
	case map[string]interface{}:
		return Row(val, nested)
	case []interface{}:
		items := make([]interface{}, len(val))
		for i, item := range val {
			if m, ok := item.(map[string]interface{}); ok {
				items[i] = Row(m, nested)
			} else {
				items[i] = item
			}
		}
		return items
	default:
		return v
	}
}

// Document decodes a raw JSONB payload (one row's projection column) and
// applies template, returning a single object or (when the column held a
// JSON array) a list of objects.
func Document(raw []byte, template []Template) (interface{}, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, errs.Wrap(err, "project: decode jsonb")
	}
	switch v := generic.(type) {
	case map[string]interface{}:
		return Row(v, template), nil
	case []interface{}:
		items := make([]interface{}, len(v))
		for i, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				items[i] = item
				continue
			}
			items[i] = Row(m, template)
		}
		return items, nil
	case nil:
		return nil, nil
	default:
		return v, nil
	}
}
