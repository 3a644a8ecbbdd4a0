package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	// registers the "sqlserver" database/sql driver
	_ "github.com/microsoft/go-mssqldb"

	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
)

// MSSQLAdapter executes compiled statements against SQL Server.
type MSSQLAdapter struct {
	db *sql.DB
}

type MSSQLConfig struct {
	ConnString      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func OpenMSSQL(cfg MSSQLConfig) (*MSSQLAdapter, error) {
	db, err := sql.Open("sqlserver", cfg.ConnString)
	if err != nil {
		return nil, errs.Wrap(err, "mssql: open")
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
	return &MSSQLAdapter{db: db}, nil
}

func (a *MSSQLAdapter) Execute(ctx context.Context, query string, args []interface{}) ([]Row, error) {
	var rows *sql.Rows
	err := retryOperation(ctx, func() error {
		var err1 error
		rows, err1 = a.db.QueryContext(ctx, query, args...)
		return err1
	})
	if err != nil {
		return nil, errs.Wrap(err, "mssql")
	}
	defer rows.Close()
	return scanRows(rows)
}

func (a *MSSQLAdapter) ExecuteScalar(ctx context.Context, query string, args []interface{}) ([]byte, bool, error) {
	var raw json.RawMessage
	err := retryOperation(ctx, func() error {
		return a.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	})
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(err, "mssql")
	}
	return raw, true, nil
}

func (a *MSSQLAdapter) ExecuteMutation(ctx context.Context, query string, args []interface{}) ([]Row, error) {
	var rows *sql.Rows
	err := retryOperation(ctx, func() error {
		var err1 error
		rows, err1 = a.db.QueryContext(ctx, query, args...)
		return err1
	})
	if err != nil {
		return nil, errs.Wrap(err, "mssql")
	}
	defer rows.Close()
	return scanRows(rows)
}

func (a *MSSQLAdapter) HealthCheck(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *MSSQLAdapter) DatabaseType() DatabaseType { return MSSQL }

func (a *MSSQLAdapter) PoolMetrics() PoolMetrics {
	s := a.db.Stats()
	return PoolMetrics{OpenConnections: s.OpenConnections, InUse: s.InUse, Idle: s.Idle}
}

func (a *MSSQLAdapter) Close() error { return a.db.Close() }
