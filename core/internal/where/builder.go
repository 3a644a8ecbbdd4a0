package where

import (
	"fmt"
	"strings"
)

// Dialect is the minimal placeholder/quoting contract the where compiler
// needs; the full SQL-rendering Dialect lives in internal/dialect and
// satisfies this interface.
type Dialect interface {
	BindVar(n int) string
	QuoteIdent(name string) string
}

// Builder is the accumulating PreparedStatement builder: it owns the
// parameter vector and exposes one emitter method per operator category.
// Parameter numbering is strictly left-to-right over the linearized AST.
type Builder struct {
	Dialect Dialect
	params  []interface{}
}

func NewBuilder(d Dialect) *Builder {
	return &Builder{Dialect: d}
}

func (b *Builder) Params() []interface{} { return b.params }

func (b *Builder) bind(v interface{}) string {
	b.params = append(b.params, v)
	return b.Dialect.BindVar(len(b.params))
}

// BuildComparison emits "<column> <op> $N".
func (b *Builder) BuildComparison(column, sqlOp string, value interface{}) string {
	return fmt.Sprintf("%s %s %s", column, sqlOp, b.bind(value))
}

// BuildLike emits the same shape as BuildComparison; kept as a distinct
// method because string operators and regex operators are conceptually a
// different emitter even though the SQL shape coincides.
func (b *Builder) BuildLike(column, sqlOp string, value interface{}) string {
	return fmt.Sprintf("%s %s %s", column, sqlOp, b.bind(value))
}

// BuildInClause emits "<column> IN ($1, $2, ...)" or the NOT IN variant. An
// empty value slice emits the constant "1=0" for IN (always false) and "1=1"
// for NOT IN (always true), binding no parameter.
func (b *Builder) BuildInClause(column, sqlOp string, values []interface{}) string {
	if len(values) == 0 {
		if sqlOp == "NOT IN" {
			return "1=1"
		}
		return "1=0"
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = b.bind(v)
	}
	return fmt.Sprintf("%s %s (%s)", column, sqlOp, strings.Join(placeholders, ", "))
}

// BuildNullCheck emits "<column> IS [NOT] NULL"; takes no parameter.
func (b *Builder) BuildNullCheck(column, sqlOp string) string {
	return fmt.Sprintf("%s %s", column, sqlOp)
}

// BuildJSONBPath renders a JSONB navigation chain: every segment but the
// last uses "->"; the last uses "->>" (text extraction) when asText is
// true, or "->" otherwise (containment operators want the JSON value, not
// its text form).
func (b *Builder) BuildJSONBPath(column string, segments []string, asText bool) string {
	var sb strings.Builder
	sb.WriteString(column)
	for i, seg := range segments {
		op := "->"
		if asText && i == len(segments)-1 {
			op = "->>"
		}
		sb.WriteString(fmt.Sprintf("%s '%s'", op, seg))
	}
	return sb.String()
}

// BuildJSONBOperator emits "<path> <op> $N" for containment operators
// (@>, <@, ?, ?|, ?&).
func (b *Builder) BuildJSONBOperator(path, sqlOp string, value interface{}) string {
	return fmt.Sprintf("%s %s %s", path, sqlOp, b.bind(value))
}

// BuildVectorDistance emits "<column> <op> $N" for a pgvector distance
// operator; the bound value is the comparison vector.
func (b *Builder) BuildVectorDistance(column, sqlOp string, value interface{}) string {
	return fmt.Sprintf("%s %s %s", column, sqlOp, b.bind(value))
}

// BuildArrayOperator emits "<column> <op> $N" for array containment/overlap
// operators (@>, <@, &&) against a native array column.
func (b *Builder) BuildArrayOperator(column, sqlOp string, value interface{}) string {
	return fmt.Sprintf("%s %s %s", column, sqlOp, b.bind(value))
}

// BuildFulltextSearch emits "to_tsvector(<column>) @@ <fn>($N)" for the
// search/plainto_tsquery/phraseto_tsquery/websearch_to_tsquery family.
func (b *Builder) BuildFulltextSearch(column, opName string, value interface{}) string {
	fn := "to_tsquery"
	switch opName {
	case "plainto_tsquery":
		fn = "plainto_tsquery"
	case "phraseto_tsquery":
		fn = "phraseto_tsquery"
	case "websearch_to_tsquery":
		fn = "websearch_to_tsquery"
	}
	return fmt.Sprintf("to_tsvector(%s) @@ %s(%s)", column, fn, b.bind(value))
}
