// Package dialect renders the database-specific edges of a prepared
// statement: identifier quoting, bind-variable syntax, pagination, and
// mutation RETURNING/OUTPUT clauses. It is a far smaller surface than the
// teacher's ~50-method Dialect interface because this pipeline never plans
// cross-table joins or subscriptions — only single-root-field WHERE,
// pagination, and single-statement mutations.
package dialect

import "fmt"

// Dialect is implemented once per supported database.
type Dialect interface {
	// Name identifies the dialect for logging and adapter selection.
	Name() string

	// QuoteIdent quotes a column or table identifier.
	QuoteIdent(name string) string

	// BindVar returns the positional placeholder for the Nth parameter
	// (1-indexed).
	BindVar(n int) string

	// RenderPagination appends the LIMIT/OFFSET fragment (or dialect
	// equivalent) for a query whose statement does not yet have it, binding
	// limit/offset as placeholders numbered after paramBase already-bound
	// WHERE parameters rather than splicing literal integers into the SQL
	// text. It returns the SQL fragment and the values to append to the
	// statement's parameter vector, in the order their placeholders appear
	// in the fragment. When hasOrderBy is false and the dialect requires an
	// ORDER BY to page (SQL Server), RenderPagination supplies a
	// deterministic fallback.
	RenderPagination(p Pagination, hasOrderBy bool, paramBase int) (sql string, params []interface{})

	// RenderMutationOutput returns the SQL fragment that captures the
	// mutated row's columns, and whether it belongs inline before the
	// VALUES/WHERE clause (SQL Server's OUTPUT) or appended after the full
	// statement (Postgres's RETURNING). kind is "insert", "update", or
	// "delete". An empty columns slice asks for every column ("*").
	RenderMutationOutput(kind string, columns []string) (clause string, inline bool)
}

// Pagination carries the already-resolved limit/offset values; -1 means
// "not set" for either field.
type Pagination struct {
	Limit  int
	Offset int
}

// Lookup returns the Dialect for a database type name ("postgres",
// "mssql"), or an error for anything this pipeline doesn't implement.
func Lookup(name string) (Dialect, error) {
	switch name {
	case "", "postgres":
		return Postgres{}, nil
	case "mssql", "sqlserver":
		return MSSQL{}, nil
	default:
		return nil, fmt.Errorf("dialect: unsupported database type %q", name)
	}
}
