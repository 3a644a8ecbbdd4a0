// Package aggregate compiles an AggregationRequest against a fact table's
// declared measures and dimensions into group-by/aggregate SQL expressions.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
	"github.com/fraiseql/fraiseql-sub006/core/internal/schema"
)

// AggFunc enumerates the aggregate functions an AggregateSelection may use.
type AggFunc int

const (
	FuncSum AggFunc = iota
	FuncAvg
	FuncMin
	FuncMax
	FuncCount
	FuncStdDev
	FuncVar
	FuncArrayAgg
	FuncJSONAgg
	FuncStringAgg
	FuncBoolAnd
	FuncBoolOr
)

var funcSQL = map[AggFunc]string{
	FuncSum:       "sum",
	FuncAvg:       "avg",
	FuncMin:       "min",
	FuncMax:       "max",
	FuncCount:     "count",
	FuncStdDev:    "stddev",
	FuncVar:       "variance",
	FuncArrayAgg:  "array_agg",
	FuncJSONAgg:   "jsonb_agg",
	FuncStringAgg: "string_agg",
	FuncBoolAnd:   "bool_and",
	FuncBoolOr:    "bool_or",
}

// TemporalBucket enumerates the calendar group-by granularities.
type TemporalBucket string

const (
	BucketDay   TemporalBucket = "day"
	BucketWeek  TemporalBucket = "week"
	BucketMonth TemporalBucket = "month"
	BucketYear  TemporalBucket = "year"
)

// GroupBySelection is either a dimension path or a temporal bucket over a
// calendar column, aliased to its declared name.
type GroupBySelection struct {
	Alias    string
	IsBucket bool
	Column   string         // calendar column, when IsBucket
	Bucket   TemporalBucket // valid when IsBucket
	JSONPath string         // dimension path, when !IsBucket
}

// AggregateSelection is one requested aggregate: a function over a measure
// column (or none, for count(*)), aliased to its requested name.
type AggregateSelection struct {
	Alias     string
	Func      AggFunc
	Column    string // empty for count(*)
	Delimiter string // optional, used by string_agg; array_agg ignores it
}

// HavingClause is a comparison against an aggregate alias, not an
// expression — compiled after the aggregates it references.
type HavingClause struct {
	Alias string
	Op    string // one of =, !=, >, >=, <, <=
	Value interface{}
}

// AggregationRequest is the compiled input to Plan.
type AggregationRequest struct {
	Table      string
	GroupBy    []GroupBySelection
	Aggregates []AggregateSelection
	Having     []HavingClause
	Limit      int // -1 when unset
	Offset     int // -1 when unset
}

// AggregationPlan is the compiled SQL fragments for an AggregationRequest:
// group-by columns are emitted in request order, followed by aggregates;
// GROUP BY mirrors the group-by list by position.
type AggregationPlan struct {
	SelectExprs  []string
	GroupByExprs []string
	HavingExpr   string
	HavingParams []interface{}
}

// Plan compiles req against a fact table's declared metadata.
func Plan(req AggregationRequest, meta *schema.FactTableMeta) (*AggregationPlan, error) {
	measureByName := make(map[string]schema.Measure, len(meta.Measures))
	for _, m := range meta.Measures {
		measureByName[m.Name] = m
	}

	plan := &AggregationPlan{}

	for _, gb := range req.GroupBy {
		expr, err := compileGroupBy(gb, meta)
		if err != nil {
			return nil, err
		}
		plan.SelectExprs = append(plan.SelectExprs, expr)
		plan.GroupByExprs = append(plan.GroupByExprs, fmt.Sprintf("%d", len(plan.SelectExprs)))
	}

	for _, agg := range req.Aggregates {
		expr, err := compileAggregate(agg, measureByName)
		if err != nil {
			return nil, err
		}
		plan.SelectExprs = append(plan.SelectExprs, expr)
	}

	if len(req.Having) > 0 {
		aliasSet := make(map[string]bool, len(req.Aggregates))
		for _, agg := range req.Aggregates {
			aliasSet[agg.Alias] = true
		}
		var clauses []string
		var params []interface{}
		for _, h := range req.Having {
			if !aliasSet[h.Alias] {
				return nil, errs.New(errs.KindValidation, "having clause references unknown aggregate alias %q", h.Alias)
			}
			switch h.Op {
			case "=", "!=", ">", ">=", "<", "<=":
			default:
				return nil, errs.New(errs.KindValidation, "having clause on %q has unsupported operator %q", h.Alias, h.Op)
			}
			params = append(params, h.Value)
			clauses = append(clauses, fmt.Sprintf("%s %s $%d", h.Alias, h.Op, len(params)))
		}
		plan.HavingExpr = strings.Join(clauses, " AND ")
		plan.HavingParams = params
	}

	return plan, nil
}

func compileGroupBy(gb GroupBySelection, meta *schema.FactTableMeta) (string, error) {
	if gb.IsBucket {
		unit := string(gb.Bucket)
		switch gb.Bucket {
		case BucketDay, BucketWeek, BucketMonth, BucketYear:
		default:
			return "", errs.New(errs.KindValidation, "unknown calendar bucket %q", gb.Bucket)
		}
		return fmt.Sprintf("date_trunc('%s', %s) AS %s", unit, gb.Column, gb.Alias), nil
	}

	found := false
	for _, p := range meta.DimensionPaths {
		if p.Name == gb.JSONPath {
			found = true
			break
		}
	}
	if !found {
		return "", errs.New(errs.KindUnknownField, "unknown dimension path %q on fact table %q", gb.JSONPath, meta.TableName)
	}
	return fmt.Sprintf("%s->>'%s' AS %s", meta.DimensionsColumn, gb.JSONPath, gb.Alias), nil
}

func compileAggregate(agg AggregateSelection, measures map[string]schema.Measure) (string, error) {
	sqlFn, ok := funcSQL[agg.Func]
	if !ok {
		return "", errs.New(errs.KindValidation, "unknown aggregate function")
	}

	if agg.Func == FuncCount && agg.Column == "" {
		return fmt.Sprintf("count(*) AS %s", agg.Alias), nil
	}

	if _, ok := measures[agg.Column]; !ok {
		return "", errs.New(errs.KindUnknownField, "unknown measure %q", agg.Column)
	}

	switch agg.Func {
	case FuncStringAgg:
		delim := agg.Delimiter
		if delim == "" {
			delim = ","
		}
		return fmt.Sprintf("string_agg(%s::text, '%s') AS %s", agg.Column, delim, agg.Alias), nil
	case FuncArrayAgg:
		return fmt.Sprintf("array_agg(%s) AS %s", agg.Column, agg.Alias), nil
	default:
		return fmt.Sprintf("%s(%s) AS %s", sqlFn, agg.Column, agg.Alias), nil
	}
}
