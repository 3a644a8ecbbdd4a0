package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

// MSSQL renders @pN placeholders and [bracketed] identifiers. Pagination
// uses OFFSET n ROWS FETCH NEXT m ROWS ONLY, which requires an ORDER BY;
// when the statement has none this falls back to ORDER BY (SELECT NULL)
// the way the teacher's mssql dialect does.
type MSSQL struct{}

func (MSSQL) Name() string { return "mssql" }

func (MSSQL) QuoteIdent(name string) string {
	return "[" + name + "]"
}

func (MSSQL) BindVar(n int) string {
	return "@p" + strconv.Itoa(n)
}

func (d MSSQL) RenderPagination(p Pagination, hasOrderBy bool, paramBase int) (string, []interface{}) {
	var out string
	var params []interface{}
	if !hasOrderBy {
		out += " ORDER BY (SELECT NULL)"
	}

	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	params = append(params, offset)
	out += " OFFSET " + d.BindVar(paramBase+len(params)) + " ROWS"

	if p.Limit >= 0 {
		params = append(params, p.Limit)
		out += " FETCH NEXT " + d.BindVar(paramBase+len(params)) + " ROWS ONLY"
	}
	return out, params
}

// RenderMutationOutput emits an OUTPUT clause against INSERTED for
// insert/update and DELETED for delete, since SQL Server has no RETURNING.
func (m MSSQL) RenderMutationOutput(kind string, columns []string) (string, bool) {
	prefix := "INSERTED"
	if kind == "delete" {
		prefix = "DELETED"
	}
	if len(columns) == 0 {
		return fmt.Sprintf(" OUTPUT %s.*", prefix), true
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = prefix + "." + m.QuoteIdent(c)
	}
	return " OUTPUT " + strings.Join(parts, ", "), true
}
