package schema

import (
	"testing"

	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validIR() AuthoringIR {
	return AuthoringIR{
		Version: "2.0.0",
		Enums: []IREnum{
			{Name: "UserStatus", Values: []string{"ACTIVE", "SUSPENDED"}},
		},
		Types: []IRType{
			{
				Name:       "User",
				SQLSource:  "users_view",
				JSONColumn: "data",
				Fields: []IRField{
					{Name: "id", FieldType: "ID"},
					{Name: "name", FieldType: "String"},
					{Name: "status", FieldType: "UserStatus"},
					{Name: "posts", FieldType: "[Post]", Nullable: true},
				},
			},
			{
				Name: "Post",
				Fields: []IRField{
					{Name: "id", FieldType: "ID"},
					{Name: "title", FieldType: "String"},
				},
			},
		},
		Queries: []IRQuery{
			{
				Name:        "users",
				ReturnType:  "User",
				ReturnsList: true,
				SQLSource:   "users_view",
				Arguments: []IRArgument{
					{Name: "limit", ArgType: "Int", Nullable: true},
				},
				AutoParams: &IRAutoParams{Limit: true, Offset: true, WhereClause: true, OrderBy: true},
			},
		},
		Mutations: []IRMutation{
			{Name: "insert_users", ReturnType: "User", Operation: "INSERT"},
			{Name: "custom_merge", ReturnType: "User", Operation: "FUNCTION"},
		},
		FactTables: []IRFactTable{
			{
				TableName: "order_events",
				Measures:  []IRMeasure{{Name: "amount", SQLType: "numeric", Nullable: false}},
				Dimensions: IRDimensions{
					Name:  "dimensions",
					Paths: []IRDimensionPath{{Name: "region", JSONPath: "region", DataType: "text"}},
				},
				CalendarDimensions: []string{"occurred_at"},
			},
		},
	}
}

func TestCompileValidSchema(t *testing.T) {
	cs, err := Compile(validIR())
	require.NoError(t, err)
	require.Contains(t, cs.Types, "User")
	assert.Equal(t, KindObject, cs.Types["User"].Fields[3].Type.Inner.Kind)
	assert.Equal(t, "Post", cs.Types["User"].Fields[3].Type.Inner.Name)

	require.Contains(t, cs.Queries, "users")
	assert.True(t, cs.Queries["users"].IsList)
	assert.True(t, cs.Queries["users"].AutoParams.Where)

	require.Contains(t, cs.Mutations, "insert_users")
	assert.Equal(t, MutationInsert, cs.Mutations["insert_users"].Operation.Kind)
	assert.Equal(t, MutationFunction, cs.Mutations["custom_merge"].Operation.Kind)

	require.Contains(t, cs.FactTables, "order_events")
	assert.Equal(t, "dimensions", cs.FactTables["order_events"].DimensionsColumn)
}

func TestCompileUnknownTypeFails(t *testing.T) {
	ir := validIR()
	ir.Types[1].Fields = append(ir.Types[1].Fields, IRField{Name: "ghost", FieldType: "Nonexistent"})
	_, err := Compile(ir)
	require.Error(t, err)
	se, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindUnknownType, se.Kind)
}

func TestCompileQueryFactTableWiresAndValidates(t *testing.T) {
	ir := validIR()
	ir.Queries = append(ir.Queries, IRQuery{
		Name:        "order_totals",
		ReturnType:  "Json",
		ReturnsList: true,
		FactTable:   "order_events",
	})
	cs, err := Compile(ir)
	require.NoError(t, err)
	require.Contains(t, cs.Queries, "order_totals")
	assert.Equal(t, "order_events", cs.Queries["order_totals"].FactTable)
}

func TestCompileQueryUnknownFactTableFails(t *testing.T) {
	ir := validIR()
	ir.Queries = append(ir.Queries, IRQuery{
		Name:        "order_totals",
		ReturnType:  "Json",
		ReturnsList: true,
		FactTable:   "ghost_table",
	})
	_, err := Compile(ir)
	require.Error(t, err)
	se, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindUnknownType, se.Kind)
}

func TestCompileUnknownMutationOperationFails(t *testing.T) {
	ir := validIR()
	ir.Mutations[0].Operation = "BOGUS"
	_, err := Compile(ir)
	require.Error(t, err)
	se, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindValidation, se.Kind)
}

func TestValidateEnumsRejectsDuplicateValues(t *testing.T) {
	_, err := validateEnums([]IREnum{{Name: "Status", Values: []string{"ON", "ON"}}})
	require.Error(t, err)
}

func TestValidateEnumsRejectsLeadingUnderscore(t *testing.T) {
	_, err := validateEnums([]IREnum{{Name: "Status", Values: []string{"_ON"}}})
	require.Error(t, err)
}

func TestValidateEnumsRejectsNonPascalCaseName(t *testing.T) {
	_, err := validateEnums([]IREnum{{Name: "status", Values: []string{"ON"}}})
	require.Error(t, err)
}

func TestParseFieldTypeNestedList(t *testing.T) {
	ft, err := parseFieldType("[[Int]]", nil)
	require.NoError(t, err)
	assert.Equal(t, KindList, ft.Kind)
	assert.Equal(t, KindList, ft.Inner.Kind)
	assert.Equal(t, KindInt, ft.Inner.Inner.Kind)
}
