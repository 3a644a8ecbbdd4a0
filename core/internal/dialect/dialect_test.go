package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresBindVarAndQuote(t *testing.T) {
	d := Postgres{}
	assert.Equal(t, "$1", d.BindVar(1))
	assert.Equal(t, "$12", d.BindVar(12))
	assert.Equal(t, `"users"`, d.QuoteIdent("users"))
}

func TestPostgresPagination(t *testing.T) {
	d := Postgres{}
	sql, params := d.RenderPagination(Pagination{Limit: 10, Offset: 20}, true, 0)
	assert.Equal(t, " LIMIT $1 OFFSET $2", sql)
	assert.Equal(t, []interface{}{10, 20}, params)

	sql, params = d.RenderPagination(Pagination{Limit: 1, Offset: 0}, true, 0)
	assert.Equal(t, " LIMIT $1", sql)
	assert.Equal(t, []interface{}{1}, params)
}

// TestPostgresPaginationNumbersAfterWhereParams checks that with two WHERE
// params already bound (paramBase 2), limit=10 and offset=20 take $3 and $4
// while the params stay [10, 20].
func TestPostgresPaginationNumbersAfterWhereParams(t *testing.T) {
	d := Postgres{}
	sql, params := d.RenderPagination(Pagination{Limit: 10, Offset: 20}, true, 2)
	assert.Equal(t, " LIMIT $3 OFFSET $4", sql)
	assert.Equal(t, []interface{}{10, 20}, params)
}

func TestMSSQLBindVarAndQuote(t *testing.T) {
	d := MSSQL{}
	assert.Equal(t, "@p1", d.BindVar(1))
	assert.Equal(t, "[users]", d.QuoteIdent("users"))
}

// TestMSSQLPaginationFallsBackToOrderByNull pins the scenario from the
// testable-properties scenario 6: no ORDER BY supplied, pagination still
// has to be deterministic.
func TestMSSQLPaginationFallsBackToOrderByNull(t *testing.T) {
	d := MSSQL{}
	sql, params := d.RenderPagination(Pagination{Limit: 10, Offset: 20}, false, 0)
	assert.Equal(t, " ORDER BY (SELECT NULL) OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY", sql)
	assert.Equal(t, []interface{}{20, 10}, params)
}

func TestMSSQLPaginationWithOrderBySkipsFallback(t *testing.T) {
	d := MSSQL{}
	sql, params := d.RenderPagination(Pagination{Limit: 10, Offset: 0}, true, 0)
	assert.Equal(t, " OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY", sql)
	assert.Equal(t, []interface{}{0, 10}, params)
}

func TestLookupRejectsUnsupportedDialect(t *testing.T) {
	_, err := Lookup("mongodb")
	require.Error(t, err)
}

func TestLookupDefaultsToPostgres(t *testing.T) {
	d, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}

func TestPostgresMutationOutputAppendsReturning(t *testing.T) {
	d := Postgres{}
	clause, inline := d.RenderMutationOutput("insert", []string{"id", "status"})
	assert.False(t, inline)
	assert.Equal(t, ` RETURNING "id", "status"`, clause)
}

func TestPostgresMutationOutputDefaultsToStar(t *testing.T) {
	d := Postgres{}
	clause, inline := d.RenderMutationOutput("delete", nil)
	assert.False(t, inline)
	assert.Equal(t, " RETURNING *", clause)
}

func TestMSSQLMutationOutputUsesInsertedForInsertAndUpdate(t *testing.T) {
	d := MSSQL{}
	clause, inline := d.RenderMutationOutput("insert", []string{"id"})
	assert.True(t, inline)
	assert.Equal(t, " OUTPUT INSERTED.[id]", clause)
}

func TestMSSQLMutationOutputUsesDeletedForDelete(t *testing.T) {
	d := MSSQL{}
	clause, inline := d.RenderMutationOutput("delete", []string{"id"})
	assert.True(t, inline)
	assert.Equal(t, " OUTPUT DELETED.[id]", clause)
}
