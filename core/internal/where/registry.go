// Package where compiles a WHERE argument's operator tree into a
// parameterized SQL fragment and a parameter vector, the way the teacher's
// qcode expression compiler walks a graph.Node tree, but driven off a flat
// operator-registry table instead of a class hierarchy.
package where

// Category classifies an operator by the SQL-generation strategy it needs.
type Category int

const (
	CategoryComparison Category = iota
	CategoryString
	CategoryNull
	CategoryContainment
	CategoryArray
	CategoryVector
	CategoryFulltext
)

// OperatorInfo is one row of the global operator registry: pure data, no
// behavior. Adding an operator is one table entry plus at most one emitter
// method on Builder.
type OperatorInfo struct {
	Name          string
	SQLOp         string
	Category      Category
	RequiresArray bool
	JSONBOperator bool
}

// Registry is the immutable, global operator table. ≈40 entries across
// seven categories, matching the operator universe.
var Registry = buildRegistry()

func buildRegistry() map[string]OperatorInfo {
	ops := []OperatorInfo{
		{Name: "eq", SQLOp: "=", Category: CategoryComparison},
		{Name: "ne", SQLOp: "!=", Category: CategoryComparison},
		{Name: "gt", SQLOp: ">", Category: CategoryComparison},
		{Name: "gte", SQLOp: ">=", Category: CategoryComparison},
		{Name: "lt", SQLOp: "<", Category: CategoryComparison},
		{Name: "lte", SQLOp: "<=", Category: CategoryComparison},
		{Name: "in", SQLOp: "IN", Category: CategoryComparison, RequiresArray: true},
		{Name: "nin", SQLOp: "NOT IN", Category: CategoryComparison, RequiresArray: true},

		{Name: "like", SQLOp: "LIKE", Category: CategoryString},
		{Name: "ilike", SQLOp: "ILIKE", Category: CategoryString},
		{Name: "nlike", SQLOp: "NOT LIKE", Category: CategoryString},
		{Name: "nilike", SQLOp: "NOT ILIKE", Category: CategoryString},
		{Name: "regex", SQLOp: "~", Category: CategoryString},
		{Name: "iregex", SQLOp: "~*", Category: CategoryString},
		{Name: "nregex", SQLOp: "!~", Category: CategoryString},
		{Name: "niregex", SQLOp: "!~*", Category: CategoryString},

		{Name: "is_null", SQLOp: "IS NULL", Category: CategoryNull},
		{Name: "is_not_null", SQLOp: "IS NOT NULL", Category: CategoryNull},

		{Name: "contains", SQLOp: "@>", Category: CategoryContainment, JSONBOperator: true},
		{Name: "contained_in", SQLOp: "<@", Category: CategoryContainment, JSONBOperator: true},
		{Name: "has_key", SQLOp: "?", Category: CategoryContainment, JSONBOperator: true},
		{Name: "has_any_keys", SQLOp: "?|", Category: CategoryContainment, RequiresArray: true, JSONBOperator: true},
		{Name: "has_all_keys", SQLOp: "?&", Category: CategoryContainment, RequiresArray: true, JSONBOperator: true},

		{Name: "array_contains", SQLOp: "@>", Category: CategoryArray},
		{Name: "array_contained_in", SQLOp: "<@", Category: CategoryArray},
		{Name: "array_overlaps", SQLOp: "&&", Category: CategoryArray},

		{Name: "cosine_distance", SQLOp: "<=>", Category: CategoryVector},
		{Name: "l2_distance", SQLOp: "<->", Category: CategoryVector},
		{Name: "inner_product", SQLOp: "<#>", Category: CategoryVector},
		{Name: "l1_distance", SQLOp: "<+>", Category: CategoryVector},
		{Name: "hamming_distance", SQLOp: "<~>", Category: CategoryVector},
		{Name: "jaccard_distance", SQLOp: "<%>", Category: CategoryVector},

		{Name: "search", SQLOp: "@@", Category: CategoryFulltext},
		{Name: "plainto_tsquery", SQLOp: "@@", Category: CategoryFulltext},
		{Name: "phraseto_tsquery", SQLOp: "@@", Category: CategoryFulltext},
		{Name: "websearch_to_tsquery", SQLOp: "@@", Category: CategoryFulltext},
	}

	m := make(map[string]OperatorInfo, len(ops))
	for _, op := range ops {
		m[op.Name] = op
	}
	return m
}

// Lookup returns the operator row for name, and whether it exists.
func Lookup(name string) (OperatorInfo, bool) {
	op, ok := Registry[name]
	return op, ok
}
