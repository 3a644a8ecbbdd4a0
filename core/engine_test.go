package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fraiseql/fraiseql-sub006/core/internal/adapter"
	"github.com/fraiseql/fraiseql-sub006/core/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	rows         []adapter.Row
	mutationRows []adapter.Row

	lastQuerySQL    string
	lastQueryParams []interface{}

	lastMutationSQL    string
	lastMutationParams []interface{}
}

func (f *fakeAdapter) Execute(_ context.Context, sql string, params []interface{}) ([]adapter.Row, error) {
	f.lastQuerySQL = sql
	f.lastQueryParams = params
	return f.rows, nil
}
func (f *fakeAdapter) ExecuteScalar(context.Context, string, []interface{}) ([]byte, bool, error) {
	return nil, false, nil
}
func (f *fakeAdapter) ExecuteMutation(_ context.Context, sql string, params []interface{}) ([]adapter.Row, error) {
	f.lastMutationSQL = sql
	f.lastMutationParams = params
	return f.mutationRows, nil
}
func (f *fakeAdapter) HealthCheck(context.Context) error     { return nil }
func (f *fakeAdapter) DatabaseType() adapter.DatabaseType     { return adapter.Mock }
func (f *fakeAdapter) PoolMetrics() adapter.PoolMetrics       { return adapter.PoolMetrics{} }
func (f *fakeAdapter) Close() error                           { return nil }

const testSchemaJSON = `{
	"version": "1",
	"types": [
		{
			"name": "User",
			"jsonb_column": "data",
			"fields": [
				{"name": "id", "field_type": "ID"},
				{"name": "status", "field_type": "String"}
			]
		}
	],
	"queries": [
		{
			"name": "users",
			"return_type": "User",
			"returns_list": true,
			"sql_source": "users_view",
			"auto_params": {"limit": true, "offset": true, "where_clause": true, "order_by": true}
		}
	],
	"mutations": [
		{
			"name": "create_user",
			"return_type": "User",
			"operation": "INSERT",
			"arguments": [
				{"name": "id", "arg_type": "ID"},
				{"name": "status", "arg_type": "String"}
			]
		},
		{
			"name": "update_user",
			"return_type": "User",
			"operation": "UPDATE",
			"arguments": [
				{"name": "id", "arg_type": "ID"},
				{"name": "status", "arg_type": "String"}
			]
		}
	]
}`

const aggregateSchemaJSON = `{
	"version": "1",
	"queries": [
		{
			"name": "order_totals",
			"return_type": "Json",
			"returns_list": true,
			"fact_table": "order_events"
		}
	],
	"fact_tables": [
		{
			"table_name": "order_events",
			"measures": [{"name": "amount", "sql_type": "numeric"}],
			"dimensions": {"name": "dimensions", "paths": [{"name": "region", "json_path": "region", "data_type": "text"}]},
			"denormalized_filters": [{"name": "tenant_id", "sql_type": "uuid", "indexed": true}]
		}
	]
}`

func TestEngineExecuteAggregateQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(aggregateSchemaJSON), 0o600))

	fa := &fakeAdapter{rows: []adapter.Row{
		{"region": "us", "total": 150},
	}}
	conf := Config{DBType: "postgres", SchemaPath: path, RLS: RLSConfig{Disabled: true}}
	e, err := NewEngine(conf, fa)
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), security.SecurityContext{}, Request{
		Query: `{ order_totals(
			group_by: {alias: "region", path: "region"},
			aggregate: [{alias: "total", func: SUM, column: "amount"}],
			having: {alias: "total", op: ">", value: 100},
			where: {tenant_id: {eq: "t1"}},
			limit: 10
		) { region total } }`,
	})
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	assert.Contains(t, fa.lastQuerySQL, `SELECT dimensions->>'region' AS region, sum(amount) AS total FROM "order_events"`)
	assert.Contains(t, fa.lastQuerySQL, `WHERE "tenant_id" = $1`)
	assert.Contains(t, fa.lastQuerySQL, `GROUP BY 1`)
	assert.Contains(t, fa.lastQuerySQL, `HAVING total > $2`)
	assert.Contains(t, fa.lastQuerySQL, `LIMIT $3`)
	assert.Equal(t, []interface{}{"t1", int64(100), 10}, fa.lastQueryParams)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(result.Data, &data))
	totals, ok := data["order_totals"].([]interface{})
	require.True(t, ok)
	require.Len(t, totals, 1)
	row := totals[0].(map[string]interface{})
	assert.Equal(t, "us", row["region"])
	assert.EqualValues(t, 150, row["total"])
}

func writeSchemaFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(testSchemaJSON), 0o600))
	return path
}

func TestEngineExecuteListQuery(t *testing.T) {
	schemaPath := writeSchemaFile(t)

	fa := &fakeAdapter{rows: []adapter.Row{
		{"data": []byte(`{"id":"u1","status":"ACTIVE"}`)},
		{"data": []byte(`{"id":"u2","status":"ACTIVE"}`)},
	}}

	conf := Config{DBType: "postgres", SchemaPath: schemaPath, RLS: RLSConfig{Disabled: true}}
	e, err := NewEngine(conf, fa)
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), security.SecurityContext{UserID: "u1"}, Request{
		Query: `{ users(where: {status: {eq: "ACTIVE"}}) { id status } }`,
	})
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(result.Data, &data))
	users, ok := data["users"].([]interface{})
	require.True(t, ok)
	assert.Len(t, users, 2)
	first := users[0].(map[string]interface{})
	assert.Equal(t, "u1", first["id"])
}

func TestEngineExecuteUnknownFieldFailsWholeRequest(t *testing.T) {
	schemaPath := writeSchemaFile(t)
	fa := &fakeAdapter{}
	conf := Config{DBType: "postgres", SchemaPath: schemaPath, RLS: RLSConfig{Disabled: true}}
	e, err := NewEngine(conf, fa)
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), security.SecurityContext{}, Request{Query: `{ ghosts { id } }`})
	require.Error(t, err)
}

func TestEngineExecuteInsertMutation(t *testing.T) {
	schemaPath := writeSchemaFile(t)
	fa := &fakeAdapter{mutationRows: []adapter.Row{
		{"id": "u9", "status": "ACTIVE"},
	}}

	conf := Config{DBType: "postgres", SchemaPath: schemaPath, RLS: RLSConfig{Disabled: true}}
	e, err := NewEngine(conf, fa)
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), security.SecurityContext{}, Request{
		Query: `mutation { create_user(id: "u9", status: "ACTIVE") { id status } }`,
	})
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	assert.Equal(t, `INSERT INTO "create_user" ("id", "status") VALUES ($1, $2) RETURNING "id", "status"`, fa.lastMutationSQL)
	assert.Equal(t, []interface{}{"u9", "ACTIVE"}, fa.lastMutationParams)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(result.Data, &data))
	user := data["create_user"].(map[string]interface{})
	assert.Equal(t, "u9", user["id"])
	assert.Equal(t, "ACTIVE", user["status"])
}

func TestEngineExecuteUpdateMutationRequiresID(t *testing.T) {
	schemaPath := writeSchemaFile(t)
	fa := &fakeAdapter{}
	conf := Config{DBType: "postgres", SchemaPath: schemaPath, RLS: RLSConfig{Disabled: true}}
	e, err := NewEngine(conf, fa)
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), security.SecurityContext{}, Request{
		Query: `mutation { update_user(status: "INACTIVE") { id } }`,
	})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
}

func TestEngineExecuteUpdateMutation(t *testing.T) {
	schemaPath := writeSchemaFile(t)
	fa := &fakeAdapter{mutationRows: []adapter.Row{
		{"id": "u1", "status": "INACTIVE"},
	}}
	conf := Config{DBType: "postgres", SchemaPath: schemaPath, RLS: RLSConfig{Disabled: true}}
	e, err := NewEngine(conf, fa)
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), security.SecurityContext{}, Request{
		Query: `mutation { update_user(id: "u1", status: "INACTIVE") { id status } }`,
	})
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	assert.Equal(t, `UPDATE "update_user" SET "status" = $1 WHERE "id" = $2 RETURNING "id", "status"`, fa.lastMutationSQL)
	assert.Equal(t, []interface{}{"INACTIVE", "u1"}, fa.lastMutationParams)
}

// TestEngineBindsPaginationAfterWhereParams pins spec scenario 6's
// parameter ordering end to end: WHERE params come first, then limit
// followed by offset for Postgres.
func TestEngineBindsPaginationAfterWhereParams(t *testing.T) {
	schemaPath := writeSchemaFile(t)
	fa := &fakeAdapter{rows: []adapter.Row{{"data": []byte(`{"id":"u1","status":"ACTIVE"}`)}}}
	conf := Config{DBType: "postgres", SchemaPath: schemaPath, RLS: RLSConfig{Disabled: true}}
	e, err := NewEngine(conf, fa)
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), security.SecurityContext{}, Request{
		Query: `{ users(where: {status: {eq: "ACTIVE"}}, limit: 10, offset: 20) { id } }`,
	})
	require.NoError(t, err)
	assert.Contains(t, fa.lastQuerySQL, `WHERE "status" = $1`)
	assert.Contains(t, fa.lastQuerySQL, `LIMIT $2 OFFSET $3`)
	assert.Equal(t, []interface{}{"ACTIVE", 10, 20}, fa.lastQueryParams)
}

func TestEngineTLSEnforcerReflectsConfig(t *testing.T) {
	schemaPath := writeSchemaFile(t)
	conf := Config{
		DBType:     "postgres",
		SchemaPath: schemaPath,
		RLS:        RLSConfig{Disabled: true},
		TLS:        security.TLSConfig{Enabled: true, MTLSRequired: true},
	}
	e, err := NewEngine(conf, &fakeAdapter{})
	require.NoError(t, err)

	enf := e.TLSEnforcer()
	assert.True(t, enf.Required())
	assert.True(t, enf.MTLSRequired())
}

func TestEngineReloadPicksUpSchemaChanges(t *testing.T) {
	schemaPath := writeSchemaFile(t)
	conf := Config{DBType: "postgres", SchemaPath: schemaPath, RLS: RLSConfig{Disabled: true}}
	e, err := NewEngine(conf, &fakeAdapter{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(schemaPath, []byte(aggregateSchemaJSON), 0o600))
	require.NoError(t, e.Reload())
	assert.Contains(t, e.state().schema.Queries, "order_totals")
}
