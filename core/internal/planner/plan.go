// Package planner binds a parsed GraphQL document to schema definitions and
// produces an ExecutionPlan: one prepared statement per root field, with
// auto-parameters (limit/offset/where/order_by) bound and root-field
// @skip/@include directives evaluated; directives on nested selections are
// not evaluated. No joins are planned inside a single root field.
package planner

import (
	"strconv"
	"strings"

	"github.com/fraiseql/fraiseql-sub006/core/internal/aggregate"
	"github.com/fraiseql/fraiseql-sub006/core/internal/dialect"
	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
	"github.com/fraiseql/fraiseql-sub006/core/internal/graph"
	"github.com/fraiseql/fraiseql-sub006/core/internal/schema"
	"github.com/fraiseql/fraiseql-sub006/core/internal/where"
)

// OrderByTerm is one (path, direction) pair from an order_by argument.
type OrderByTerm struct {
	Path      string
	Direction string // "asc" or "desc"
}

// RootPlan is the compiled statement for a single root field.
type RootPlan struct {
	FieldName    string
	Alias        string
	IsMutation   bool
	IsList       bool
	View         string
	WhereSQL     string
	Params       []interface{}
	Limit        int // -1 when unset
	Offset       int // -1 when unset
	OrderBy      []OrderByTerm
	Selections   []*graph.Field
	Mutation     *schema.MutationDef

	// IsAggregate marks a root field bound to a fact table (QueryDef.FactTable
	// non-empty): AggTable names the fact table and AggPlan is the compiled
	// group-by/aggregate/having SQL. WhereSQL/Params still carry the root's
	// filter, compiled against the fact table's filter columns and dimensions
	// JSONB path rather than a view's declared fields.
	IsAggregate bool
	AggTable    string
	AggPlan     *aggregate.AggregationPlan

	// Args is set for mutation roots only: every root-field argument with
	// request variables already substituted in, keyed by GraphQL argument
	// name, from which mutations bind every declared argument as a column
	// value. Query roots leave it nil (limit/offset/where/order_by are pulled
	// out into the fields above).
	Args map[string]*graph.Node
}

// ExecutionPlan is the full per-request plan: one RootPlan per top-level
// field, executed sequentially in declaration order. Each root's statement
// is a separate adapter call, so the roots are not pinned to one connection.
type ExecutionPlan struct {
	OperationName string
	IsMutation    bool
	Roots         []*RootPlan
}

// Plan resolves doc's root fields against schema cs and compiles each into
// a RootPlan. vars carries the request variables; the caller fills in
// declared defaults and rejects variables missing without one before
// calling Plan. Variable values are not type-checked.
func Plan(doc *graph.Document, cs *schema.CompiledSchema, d dialect.Dialect, vars map[string]*graph.Node) (*ExecutionPlan, error) {
	plan := &ExecutionPlan{
		OperationName: doc.Name,
		IsMutation:    doc.Operation == graph.OpMutation,
	}

	fields, err := expandFragments(doc.Selections, doc.Fragments)
	if err != nil {
		return nil, err
	}

	for _, f := range fields {
		if shouldSkip(f, vars) {
			continue
		}
		root, err := planRoot(f, cs, d, vars, plan.IsMutation)
		if err != nil {
			return nil, err
		}
		plan.Roots = append(plan.Roots, root)
	}
	return plan, nil
}

// expandFragments splices fragment-spread placeholders (graph.Field{Name:
// "...", Alias: fragmentName}) in by copying the fragment's selections into
// place; the fragment's type condition is not checked.
func expandFragments(fields []*graph.Field, frags map[string]*graph.FragmentDef) ([]*graph.Field, error) {
	out := make([]*graph.Field, 0, len(fields))
	for _, f := range fields {
		if f.Name == "..." {
			frag, ok := frags[f.Alias]
			if !ok {
				return nil, errs.New(errs.KindValidation, "unknown fragment %q", f.Alias)
			}
			expanded, err := expandFragments(frag.Selections, frags)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			continue
		}
		inner, err := expandFragments(f.Selections, frags)
		if err != nil {
			return nil, err
		}
		clone := *f
		clone.Selections = inner
		out = append(out, &clone)
	}
	return out, nil
}

func shouldSkip(f *graph.Field, vars map[string]*graph.Node) bool {
	for _, d := range f.Directives {
		cond, ok := directiveBoolArg(d, vars)
		if !ok {
			continue
		}
		if d.Name == "skip" && cond {
			return true
		}
		if d.Name == "include" && !cond {
			return true
		}
	}
	return false
}

func directiveBoolArg(d graph.Directive, vars map[string]*graph.Node) (bool, bool) {
	node, ok := d.Args["if"]
	if !ok {
		return false, false
	}
	resolved := resolveVar(node, vars)
	if resolved.Type != graph.NodeBool {
		return false, false
	}
	return resolved.Val == "true", true
}

func resolveVar(node *graph.Node, vars map[string]*graph.Node) *graph.Node {
	if node.Type != graph.NodeVar {
		return node
	}
	if v, ok := vars[node.Val]; ok {
		return v
	}
	return node
}

func planRoot(f *graph.Field, cs *schema.CompiledSchema, d dialect.Dialect, vars map[string]*graph.Node, isMutation bool) (*RootPlan, error) {
	root := &RootPlan{FieldName: f.Name, Alias: f.Alias, IsMutation: isMutation, Selections: f.Selections, Limit: -1, Offset: -1}
	args := f.ArgMap()

	if isMutation {
		md, ok := cs.Mutations[f.Name]
		if !ok {
			return nil, errs.New(errs.KindUnknownField, "unknown mutation %q", f.Name)
		}
		root.Mutation = md
		root.Args = make(map[string]*graph.Node, len(args))
		for name, n := range args {
			root.Args[name] = substituteVars(n, vars)
		}
		return root, nil
	}

	qd, ok := cs.Queries[f.Name]
	if !ok {
		return nil, errs.New(errs.KindUnknownField, "unknown query %q", f.Name)
	}

	if qd.FactTable != "" {
		return planAggregateRoot(root, f, qd, cs, d, vars)
	}

	root.IsList = qd.IsList
	root.View = qd.View
	if !root.IsList {
		root.Limit = 1
	}

	td := cs.Types[qd.ReturnType.Name]

	if qd.AutoParams.Limit {
		if n, ok := args["limit"]; ok {
			v := resolveVar(n, vars)
			lim, err := nodeInt(v)
			if err != nil {
				return nil, err
			}
			root.Limit = lim
		}
	}
	if qd.AutoParams.Offset {
		if n, ok := args["offset"]; ok {
			v := resolveVar(n, vars)
			off, err := nodeInt(v)
			if err != nil {
				return nil, err
			}
			root.Offset = off
		}
	}
	if qd.AutoParams.Where && td != nil {
		if n, ok := args["where"]; ok {
			whereNode := substituteVars(n, vars)
			b := where.NewBuilder(d)
			sql, err := where.Compile(b, td, whereNode)
			if err != nil {
				return nil, err
			}
			root.WhereSQL = sql
			root.Params = b.Params()
		}
	}
	if qd.AutoParams.OrderBy {
		if n, ok := args["order_by"]; ok {
			terms, err := compileOrderBy(resolveVar(n, vars))
			if err != nil {
				return nil, err
			}
			root.OrderBy = terms
		}
	}

	return root, nil
}

// substituteVars walks a node tree and replaces every NodeVar leaf with its
// resolved value from vars, leaving literals untouched.
func substituteVars(node *graph.Node, vars map[string]*graph.Node) *graph.Node {
	if node == nil {
		return nil
	}
	if node.Type == graph.NodeVar {
		if v, ok := vars[node.Val]; ok {
			return v
		}
		return node
	}
	if len(node.Children) == 0 {
		return node
	}
	clone := *node
	clone.Children = make([]*graph.Node, len(node.Children))
	for i, c := range node.Children {
		clone.Children[i] = substituteVars(c, vars)
	}
	return &clone
}

func nodeInt(n *graph.Node) (int, error) {
	if n.Type != graph.NodeNum {
		return 0, errs.New(errs.KindValidation, "expected an integer argument")
	}
	v, err := strconv.Atoi(n.Val)
	if err != nil {
		return 0, errs.New(errs.KindValidation, "malformed integer argument")
	}
	return v, nil
}

func compileOrderBy(n *graph.Node) ([]OrderByTerm, error) {
	if n == nil {
		return nil, nil
	}
	var terms []OrderByTerm
	switch n.Type {
	case graph.NodeList:
		for _, c := range n.Children {
			t, err := orderByTermFromObject(c)
			if err != nil {
				return nil, err
			}
			terms = append(terms, t...)
		}
	case graph.NodeObj:
		t, err := orderByTermFromObject(n)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t...)
	default:
		return nil, errs.New(errs.KindValidation, "order_by must be an object or list of objects")
	}
	return terms, nil
}

func orderByTermFromObject(n *graph.Node) ([]OrderByTerm, error) {
	var terms []OrderByTerm
	for _, c := range n.Children {
		dir := strings.ToLower(c.Val)
		if dir != "asc" && dir != "desc" {
			return nil, errs.New(errs.KindValidation, "order_by direction must be asc or desc, got %q", c.Val)
		}
		terms = append(terms, OrderByTerm{Path: c.Name, Direction: dir})
	}
	return terms, nil
}

// planAggregateRoot compiles a fact-table-backed query field: group_by,
// aggregate, and having arguments compile through the aggregate package
// against the fact table's declared measures and dimensions, while where
// compiles through the ordinary where package against a synthesized type
// view of the fact table's filter columns and dimensions JSONB path.
func planAggregateRoot(root *RootPlan, f *graph.Field, qd *schema.QueryDef, cs *schema.CompiledSchema, d dialect.Dialect, vars map[string]*graph.Node) (*RootPlan, error) {
	meta, ok := cs.FactTables[qd.FactTable]
	if !ok {
		return nil, errs.New(errs.KindUnknownType, "query %q references unknown fact table %q", f.Name, qd.FactTable)
	}

	root.IsAggregate = true
	root.AggTable = meta.TableName
	root.IsList = true

	args := f.ArgMap()
	req := aggregate.AggregationRequest{Table: meta.TableName, Limit: -1, Offset: -1}

	if n, ok := args["group_by"]; ok {
		gb, err := compileGroupBySelections(substituteVars(n, vars))
		if err != nil {
			return nil, err
		}
		req.GroupBy = gb
	}
	if n, ok := args["aggregate"]; ok {
		aggs, err := compileAggregateSelections(substituteVars(n, vars))
		if err != nil {
			return nil, err
		}
		req.Aggregates = aggs
	}
	if n, ok := args["having"]; ok {
		having, err := compileHavingClauses(substituteVars(n, vars))
		if err != nil {
			return nil, err
		}
		req.Having = having
	}
	if n, ok := args["limit"]; ok {
		lim, err := nodeInt(resolveVar(n, vars))
		if err != nil {
			return nil, err
		}
		req.Limit = lim
		root.Limit = lim
	}
	if n, ok := args["offset"]; ok {
		off, err := nodeInt(resolveVar(n, vars))
		if err != nil {
			return nil, err
		}
		req.Offset = off
		root.Offset = off
	}
	if n, ok := args["where"]; ok {
		whereNode := substituteVars(n, vars)
		b := where.NewBuilder(d)
		sql, err := where.Compile(b, factTableTypeDef(meta), whereNode)
		if err != nil {
			return nil, err
		}
		root.WhereSQL = sql
		root.Params = b.Params()
	}

	aggPlan, err := aggregate.Plan(req, meta)
	if err != nil {
		return nil, err
	}
	root.AggPlan = aggPlan

	return root, nil
}

// factTableTypeDef presents a fact table's denormalized filter columns and
// dimensions JSONB column as a *schema.TypeDef, so the where package can
// compile a fact-table where: argument exactly as it compiles one against
// an ordinary view-backed type: declared filter columns match natively,
// everything else falls through to the dimensions JSONB path.
func factTableTypeDef(meta *schema.FactTableMeta) *schema.TypeDef {
	td := &schema.TypeDef{Name: meta.TableName, JSONColumn: meta.DimensionsColumn}
	for _, fc := range meta.FilterColumns {
		td.Fields = append(td.Fields, schema.Field{Name: fc.Name, Type: schema.FieldType{Kind: schema.KindString}})
	}
	return td
}

// nodeObjectItems normalizes a single object or a list of objects to a
// uniform slice, the shape group_by/aggregate/having arguments both allow.
func nodeObjectItems(n *graph.Node) ([]*graph.Node, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Type {
	case graph.NodeList:
		return n.Children, nil
	case graph.NodeObj:
		return []*graph.Node{n}, nil
	default:
		return nil, errs.New(errs.KindValidation, "expected an object or a list of objects")
	}
}

func nodeChildMap(n *graph.Node) map[string]*graph.Node {
	m := make(map[string]*graph.Node, len(n.Children))
	for _, c := range n.Children {
		m[c.Name] = c
	}
	return m
}

func compileGroupBySelections(n *graph.Node) ([]aggregate.GroupBySelection, error) {
	items, err := nodeObjectItems(n)
	if err != nil {
		return nil, err
	}
	out := make([]aggregate.GroupBySelection, 0, len(items))
	for _, item := range items {
		m := nodeChildMap(item)
		alias, ok := m["alias"]
		if !ok {
			return nil, errs.New(errs.KindValidation, "group_by entry requires an alias")
		}
		gb := aggregate.GroupBySelection{Alias: alias.Val}
		switch {
		case m["bucket"] != nil:
			col, ok := m["column"]
			if !ok {
				return nil, errs.New(errs.KindValidation, "group_by bucket entry %q requires a column", alias.Val)
			}
			gb.IsBucket = true
			gb.Bucket = aggregate.TemporalBucket(strings.ToLower(m["bucket"].Val))
			gb.Column = col.Val
		case m["path"] != nil:
			gb.JSONPath = m["path"].Val
		default:
			return nil, errs.New(errs.KindValidation, "group_by entry %q requires either bucket+column or path", alias.Val)
		}
		out = append(out, gb)
	}
	return out, nil
}

func compileAggregateSelections(n *graph.Node) ([]aggregate.AggregateSelection, error) {
	items, err := nodeObjectItems(n)
	if err != nil {
		return nil, err
	}
	out := make([]aggregate.AggregateSelection, 0, len(items))
	for _, item := range items {
		m := nodeChildMap(item)
		alias, ok := m["alias"]
		if !ok {
			return nil, errs.New(errs.KindValidation, "aggregate entry requires an alias")
		}
		fnNode, ok := m["func"]
		if !ok {
			return nil, errs.New(errs.KindValidation, "aggregate entry %q requires a func", alias.Val)
		}
		fn, err := aggFuncFromString(fnNode.Val)
		if err != nil {
			return nil, err
		}
		sel := aggregate.AggregateSelection{Alias: alias.Val, Func: fn}
		if col, ok := m["column"]; ok {
			sel.Column = col.Val
		}
		if delim, ok := m["delimiter"]; ok {
			sel.Delimiter = delim.Val
		}
		out = append(out, sel)
	}
	return out, nil
}

func compileHavingClauses(n *graph.Node) ([]aggregate.HavingClause, error) {
	items, err := nodeObjectItems(n)
	if err != nil {
		return nil, err
	}
	out := make([]aggregate.HavingClause, 0, len(items))
	for _, item := range items {
		m := nodeChildMap(item)
		alias, ok := m["alias"]
		if !ok {
			return nil, errs.New(errs.KindValidation, "having entry requires an alias")
		}
		opNode, ok := m["op"]
		if !ok {
			return nil, errs.New(errs.KindValidation, "having entry %q requires an op", alias.Val)
		}
		valNode, ok := m["value"]
		if !ok {
			return nil, errs.New(errs.KindValidation, "having entry %q requires a value", alias.Val)
		}
		out = append(out, aggregate.HavingClause{Alias: alias.Val, Op: opNode.Val, Value: valNode.ToGoValue()})
	}
	return out, nil
}

func aggFuncFromString(s string) (aggregate.AggFunc, error) {
	switch strings.ToUpper(s) {
	case "SUM":
		return aggregate.FuncSum, nil
	case "AVG":
		return aggregate.FuncAvg, nil
	case "MIN":
		return aggregate.FuncMin, nil
	case "MAX":
		return aggregate.FuncMax, nil
	case "COUNT":
		return aggregate.FuncCount, nil
	case "STDDEV":
		return aggregate.FuncStdDev, nil
	case "VARIANCE", "VAR":
		return aggregate.FuncVar, nil
	case "ARRAY_AGG":
		return aggregate.FuncArrayAgg, nil
	case "JSON_AGG", "JSONB_AGG":
		return aggregate.FuncJSONAgg, nil
	case "STRING_AGG":
		return aggregate.FuncStringAgg, nil
	case "BOOL_AND":
		return aggregate.FuncBoolAnd, nil
	case "BOOL_OR":
		return aggregate.FuncBoolOr, nil
	default:
		return 0, errs.New(errs.KindValidation, "unknown aggregate function %q", s)
	}
}
