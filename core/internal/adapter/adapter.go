// Package adapter executes compiled SQL against a concrete database, behind
// a narrow interface so the rest of the pipeline never imports a driver
// directly.
package adapter

import (
	"context"
	"time"
)

// DatabaseType names the SQL dialect a pool was built for.
type DatabaseType string

const (
	Postgres DatabaseType = "postgres"
	MSSQL    DatabaseType = "mssql"
	Mock     DatabaseType = "mock"
)

// Row is one result row as column name -> decoded value. For JSONB
// projection queries, a single row typically carries one column holding
// the already-assembled JSON document.
type Row map[string]interface{}

// PoolMetrics reports point-in-time connection pool occupancy, surfaced on
// health/introspection endpoints.
type PoolMetrics struct {
	OpenConnections int
	InUse           int
	Idle            int
}

// Adapter is the execution boundary: every compiled statement from the
// planner/where/aggregate packages ends up as one Execute call here.
type Adapter interface {
	// Execute runs a parameterized query and returns its rows.
	Execute(ctx context.Context, sql string, args []interface{}) ([]Row, error)

	// ExecuteScalar runs a parameterized statement expected to return
	// exactly one column in one row (e.g. a JSONB projection already
	// aggregated by the database), or (nil, false) if it returned no rows.
	ExecuteScalar(ctx context.Context, sql string, args []interface{}) ([]byte, bool, error)

	// ExecuteMutation runs an INSERT/UPDATE/DELETE/function-call statement
	// and returns the affected/returned rows (mutations in this pipeline
	// always return rows: RETURNING on Postgres, OUTPUT on SQL Server, or a
	// SELECT over the function call).
	ExecuteMutation(ctx context.Context, sql string, args []interface{}) ([]Row, error)

	HealthCheck(ctx context.Context) error
	DatabaseType() DatabaseType
	PoolMetrics() PoolMetrics
	Close() error
}

// retryJitterMillis mirrors the teacher's fixed three-attempt backoff
// schedule for transient connection-acquisition failures.
var retryJitterMillis = []int{50, 100, 200}

// retryOperation calls fn at most three times, sleeping by the fixed jitter
// schedule after each failure. It returns ctx.Err() if the context is
// canceled during a sleep, and the last error if every attempt fails.
func retryOperation(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i < len(retryJitterMillis); i++ {
		if err = fn(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(retryJitterMillis[i]) * time.Millisecond):
		}
	}
	return err
}
