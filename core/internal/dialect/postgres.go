package dialect

import (
	"strconv"
	"strings"
)

// Postgres renders $N placeholders, "double-quoted" identifiers, and
// LIMIT/OFFSET pagination.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdent(name string) string {
	return `"` + name + `"`
}

func (Postgres) BindVar(n int) string {
	return "$" + strconv.Itoa(n)
}

func (d Postgres) RenderPagination(p Pagination, _ bool, paramBase int) (string, []interface{}) {
	var out string
	var params []interface{}
	if p.Limit >= 0 {
		params = append(params, p.Limit)
		out += " LIMIT " + d.BindVar(paramBase+len(params))
	}
	if p.Offset > 0 {
		params = append(params, p.Offset)
		out += " OFFSET " + d.BindVar(paramBase+len(params))
	}
	return out, params
}

func (p Postgres) RenderMutationOutput(_ string, columns []string) (string, bool) {
	if len(columns) == 0 {
		return " RETURNING *", false
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = p.QuoteIdent(c)
	}
	return " RETURNING " + strings.Join(quoted, ", "), false
}
