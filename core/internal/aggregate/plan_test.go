package aggregate

import (
	"testing"

	"github.com/fraiseql/fraiseql-sub006/core/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factMeta() *schema.FactTableMeta {
	return &schema.FactTableMeta{
		TableName:        "order_events",
		DimensionsColumn: "dimensions",
		Measures: []schema.Measure{
			{Name: "amount", SQLType: "numeric"},
		},
		DimensionPaths: []schema.DimensionPath{
			{Name: "region", JSONPath: "region", DataType: "text"},
		},
	}
}

func TestPlanGroupByDimensionAndAggregate(t *testing.T) {
	req := AggregationRequest{
		Table:   "order_events",
		GroupBy: []GroupBySelection{{Alias: "region", JSONPath: "region"}},
		Aggregates: []AggregateSelection{
			{Alias: "total", Func: FuncSum, Column: "amount"},
			{Alias: "n", Func: FuncCount},
		},
		Limit: -1, Offset: -1,
	}
	plan, err := Plan(req, factMeta())
	require.NoError(t, err)
	require.Len(t, plan.SelectExprs, 3)
	assert.Equal(t, "dimensions->>'region' AS region", plan.SelectExprs[0])
	assert.Equal(t, "sum(amount) AS total", plan.SelectExprs[1])
	assert.Equal(t, "count(*) AS n", plan.SelectExprs[2])
	assert.Equal(t, []string{"1"}, plan.GroupByExprs)
}

func TestPlanTemporalBucket(t *testing.T) {
	req := AggregationRequest{
		GroupBy: []GroupBySelection{{Alias: "day", IsBucket: true, Column: "occurred_at", Bucket: BucketDay}},
	}
	plan, err := Plan(req, factMeta())
	require.NoError(t, err)
	assert.Equal(t, "date_trunc('day', occurred_at) AS day", plan.SelectExprs[0])
}

func TestPlanUnknownMeasureFails(t *testing.T) {
	req := AggregationRequest{
		Aggregates: []AggregateSelection{{Alias: "x", Func: FuncSum, Column: "ghost"}},
	}
	_, err := Plan(req, factMeta())
	assert.Error(t, err)
}

func TestPlanHavingAgainstAlias(t *testing.T) {
	req := AggregationRequest{
		Aggregates: []AggregateSelection{{Alias: "total", Func: FuncSum, Column: "amount"}},
		Having:     []HavingClause{{Alias: "total", Op: ">", Value: 100}},
	}
	plan, err := Plan(req, factMeta())
	require.NoError(t, err)
	assert.Equal(t, "total > $1", plan.HavingExpr)
	assert.Equal(t, []interface{}{100}, plan.HavingParams)
}

func TestPlanHavingUnknownAliasFails(t *testing.T) {
	req := AggregationRequest{
		Having: []HavingClause{{Alias: "ghost", Op: ">", Value: 1}},
	}
	_, err := Plan(req, factMeta())
	assert.Error(t, err)
}
