package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
)

// PostgresAdapter executes compiled statements over a pgx connection pool
// wrapped behind database/sql via pgx/v5/stdlib.
type PostgresAdapter struct {
	db *sql.DB
}

// PostgresConfig configures the pool; ConnString is a libpq-style DSN.
type PostgresConfig struct {
	ConnString      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func OpenPostgres(cfg PostgresConfig) (*PostgresAdapter, error) {
	db, err := sql.Open("pgx", cfg.ConnString)
	if err != nil {
		return nil, errs.Wrap(err, "postgres: open")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return &PostgresAdapter{db: db}, nil
}

func (a *PostgresAdapter) Execute(ctx context.Context, query string, args []interface{}) ([]Row, error) {
	var rows *sql.Rows
	err := retryOperation(ctx, func() error {
		var err1 error
		rows, err1 = a.db.QueryContext(ctx, query, args...)
		return err1
	})
	if err != nil {
		return nil, errs.Wrap(err, "postgres")
	}
	defer rows.Close()
	return scanRows(rows)
}

func (a *PostgresAdapter) ExecuteScalar(ctx context.Context, query string, args []interface{}) ([]byte, bool, error) {
	var raw json.RawMessage
	err := retryOperation(ctx, func() error {
		return a.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	})
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(err, "postgres")
	}
	return raw, true, nil
}

func (a *PostgresAdapter) ExecuteMutation(ctx context.Context, query string, args []interface{}) ([]Row, error) {
	var rows *sql.Rows
	err := retryOperation(ctx, func() error {
		var err1 error
		rows, err1 = a.db.QueryContext(ctx, query, args...)
		return err1
	})
	if err != nil {
		return nil, errs.Wrap(err, "postgres")
	}
	defer rows.Close()
	return scanRows(rows)
}

func (a *PostgresAdapter) HealthCheck(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *PostgresAdapter) DatabaseType() DatabaseType { return Postgres }

func (a *PostgresAdapter) PoolMetrics() PoolMetrics {
	s := a.db.Stats()
	return PoolMetrics{OpenConnections: s.OpenConnections, InUse: s.InUse, Idle: s.Idle}
}

func (a *PostgresAdapter) Close() error { return a.db.Close() }

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
