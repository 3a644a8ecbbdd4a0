package security

import (
	"strings"
	"testing"

	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSimpleQueryPasses(t *testing.T) {
	v := NewValidator(Standard())
	metrics, err := v.Validate(`{ users { id name } }`)
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.Depth)
	assert.True(t, metrics.FieldCount > 0)
}

func TestValidateRejectsOversizeQuery(t *testing.T) {
	v := NewValidator(Strict())
	big := "{ users { " + strings.Repeat("a", 100_000) + " } }"
	_, err := v.Validate(big)
	require.Error(t, err)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindQueryTooLarge, e.Kind)
}

func TestValidateRejectsTooDeepQuery(t *testing.T) {
	v := NewValidator(Strict())
	q := strings.Repeat("{ a", 10) + strings.Repeat(" }", 10)
	_, err := v.Validate(q)
	require.Error(t, err)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindQueryTooDeep, e.Kind)
}

func TestValidateRejectsTooComplexQuery(t *testing.T) {
	v := NewValidator(Strict())
	q := "{ " + strings.Repeat("field ", 400) + "}"
	_, err := v.Validate(q)
	require.Error(t, err)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindQueryTooComplex, e.Kind)
}

func TestValidateBracesInsideStringLiteralsDoNotAffectDepth(t *testing.T) {
	v := NewValidator(Permissive())
	metrics, err := v.Validate(`{ users(where: {name: {eq: "{not a brace}"}}) { id } }`)
	require.NoError(t, err)
	assert.Equal(t, 3, metrics.Depth)
}

func TestValidateEscapedQuoteInsideStringDoesNotEndString(t *testing.T) {
	v := NewValidator(Permissive())
	metrics, err := v.Validate(`{ users(where: {name: {eq: "a \" { b"}}) { id } }`)
	require.NoError(t, err)
	assert.Equal(t, 3, metrics.Depth)
}
