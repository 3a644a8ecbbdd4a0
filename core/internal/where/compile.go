package where

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
	"github.com/fraiseql/fraiseql-sub006/core/internal/graph"
	"github.com/fraiseql/fraiseql-sub006/core/internal/schema"
)

// Compile walks a where: argument's node tree against a type definition and
// appends its compiled conditions to b, returning the SQL fragment to
// splice after WHERE. An empty input produces the empty string so the
// caller can omit the WHERE keyword entirely.
func Compile(b *Builder, td *schema.TypeDef, node *graph.Node) (string, error) {
	if node == nil || len(node.Children) == 0 {
		return "", nil
	}
	return compileObject(b, td, node)
}

func compileObject(b *Builder, td *schema.TypeDef, node *graph.Node) (string, error) {
	var clauses []string
	for _, c := range node.Children {
		switch c.Name {
		case "and", "or":
			if c.Type != graph.NodeList {
				return "", errs.New(errs.KindValidation, "%q expects a list of conditions", c.Name)
			}
			var parts []string
			for _, child := range c.Children {
				clause, err := compileObject(b, td, child)
				if err != nil {
					return "", err
				}
				if clause != "" {
					parts = append(parts, clause)
				}
			}
			if len(parts) == 0 {
				continue
			}
			joiner := " AND "
			if c.Name == "or" {
				joiner = " OR "
			}
			clauses = append(clauses, "("+strings.Join(parts, joiner)+")")

		case "not":
			clause, err := compileObject(b, td, c)
			if err != nil {
				return "", err
			}
			if clause != "" {
				clauses = append(clauses, "NOT ("+clause+")")
			}

		default:
			clause, err := compileField(b, td, c.Name, c)
			if err != nil {
				return "", err
			}
			if clause != "" {
				clauses = append(clauses, clause)
			}
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return strings.Join(clauses, " AND "), nil
}

// compileField resolves fieldName against the type's declared columns,
// foreign-key map, or falls back to a JSONB path, then compiles valueNode's
// operator(s) against the resolved target. fieldName arrives as the client
// wrote it in the where: argument (camelCase, per GraphQL convention) and is
// normalized to snake_case before any of those lookups, matching how column
// and JSONB path names are declared in the schema.
func compileField(b *Builder, td *schema.TypeDef, fieldName string, valueNode *graph.Node) (string, error) {
	column := camelToSnake(fieldName)

	if hasColumn(td, column) {
		return compileOps(b, b.Dialect.QuoteIdent(column), valueNode, true)
	}

	if idCol, ok := td.ForeignKeys[column]; ok {
		if len(valueNode.Children) != 1 || valueNode.Children[0].Name != "id" {
			return "", errs.New(errs.KindRequiresJoin, "field %q requires a join; only its id sub-field is reachable without one", fieldName)
		}
		return compileOps(b, b.Dialect.QuoteIdent(idCol), valueNode.Children[0], true)
	}

	if td.JSONColumn == "" {
		return "", errs.New(errs.KindUnknownField, "unknown field %q", fieldName)
	}
	return compileJSONBField(b, b.Dialect.QuoteIdent(td.JSONColumn), []string{column}, valueNode)
}

// camelToSnake lower-cases a camelCase (or already snake_case) identifier,
// inserting an underscore at each lower-to-upper or upper-to-lower boundary.
// It is idempotent on names that are already snake_case.
func camelToSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				switch {
				case unicode.IsLower(prev) || unicode.IsDigit(prev):
					b.WriteByte('_')
				case i+1 < len(runes) && unicode.IsLower(runes[i+1]):
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hasColumn(td *schema.TypeDef, name string) bool {
	for _, f := range td.Fields {
		if f.Name == name && f.Type.Kind != schema.KindObject && f.Type.Kind != schema.KindList {
			return true
		}
	}
	return false
}

// isFlatOperatorObject reports whether every child of node names a known
// operator — the flat-form dispatch per spec §4.3.
func isFlatOperatorObject(node *graph.Node) bool {
	if len(node.Children) == 0 {
		return false
	}
	for _, c := range node.Children {
		if _, ok := Lookup(c.Name); !ok {
			return false
		}
	}
	return true
}

// compileOps applies every operator in valueNode to a fully-resolved SQL
// target (a native column or a JSONB leaf expression already carrying its
// text-extraction arrow), combining the results with AND.
func compileOps(b *Builder, target string, valueNode *graph.Node, isNative bool) (string, error) {
	if !isFlatOperatorObject(valueNode) {
		return "", errs.New(errs.KindValidation, "expected an operator object at %q", target)
	}
	var parts []string
	for _, c := range valueNode.Children {
		clause, err := compileOp(b, target, c.Name, c, isNative)
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}
	return strings.Join(parts, " AND "), nil
}

func compileOp(b *Builder, target, opName string, opNode *graph.Node, isNative bool) (string, error) {
	op, ok := Lookup(opName)
	if !ok {
		return "", errs.New(errs.KindUnknownOperator, "unknown operator %q", opName)
	}
	if op.Category == CategoryContainment && isNative {
		return "", errs.New(errs.KindValidation, "containment operator %q is not valid on a native column", opName)
	}

	switch op.Category {
	case CategoryNull:
		return b.BuildNullCheck(target, op.SQLOp), nil

	case CategoryComparison:
		if op.RequiresArray {
			vals, ok := nodeValueAsSlice(opNode)
			if !ok {
				return "", nil
			}
			return b.BuildInClause(target, op.SQLOp, vals), nil
		}
		v, err := nodeValue(opNode)
		if err != nil {
			return "", err
		}
		return b.BuildComparison(target, op.SQLOp, v), nil

	case CategoryString:
		v, err := nodeValue(opNode)
		if err != nil {
			return "", err
		}
		return b.BuildLike(target, op.SQLOp, v), nil

	case CategoryContainment:
		if op.RequiresArray {
			vals, ok := nodeValueAsSlice(opNode)
			if !ok {
				return "", nil
			}
			return b.BuildJSONBOperator(target, op.SQLOp, vals), nil
		}
		v, err := nodeValue(opNode)
		if err != nil {
			return "", err
		}
		return b.BuildJSONBOperator(target, op.SQLOp, v), nil

	case CategoryArray:
		v, err := nodeValue(opNode)
		if err != nil {
			return "", err
		}
		return b.BuildArrayOperator(target, op.SQLOp, v), nil

	case CategoryVector:
		v, err := nodeValue(opNode)
		if err != nil {
			return "", err
		}
		return b.BuildVectorDistance(target, op.SQLOp, v), nil

	case CategoryFulltext:
		v, err := nodeValue(opNode)
		if err != nil {
			return "", err
		}
		return b.BuildFulltextSearch(target, opName, v), nil

	default:
		return "", fmt.Errorf("unhandled operator category for %q", opName)
	}
}

// compileJSONBField navigates a JSONB path one segment at a time: when the
// current node is a flat operator object the path terminates here,
// otherwise its single child names the next path segment.
func compileJSONBField(b *Builder, jsonColumn string, segments []string, node *graph.Node) (string, error) {
	if isFlatOperatorObject(node) {
		var parts []string
		for _, c := range node.Children {
			op, ok := Lookup(c.Name)
			if !ok {
				return "", errs.New(errs.KindUnknownOperator, "unknown operator %q", c.Name)
			}
			asText := !op.JSONBOperator
			path := b.BuildJSONBPath(jsonColumn, segments, asText)
			clause, err := compileOp(b, path, c.Name, c, false)
			if err != nil {
				return "", err
			}
			parts = append(parts, clause)
		}
		return strings.Join(parts, " AND "), nil
	}

	if len(node.Children) != 1 {
		return "", errs.New(errs.KindValidation, "JSONB path navigation expects exactly one nested field per level")
	}
	next := node.Children[0]
	return compileJSONBField(b, jsonColumn, append(append([]string{}, segments...), camelToSnake(next.Name)), next)
}
