// Package schema validates an intermediate, JSON-authored schema and
// compiles it into the immutable, read-only form the rest of the query
// pipeline binds against.
package schema

// ScalarKind enumerates the scalar-type universe. Object/Enum/Input/
// Interface/Union/List carry an additional Name or Inner payload.
type ScalarKind int

const (
	KindString ScalarKind = iota
	KindInt
	KindFloat
	KindBoolean
	KindID
	KindDateTime
	KindDate
	KindTime
	KindJSON
	KindUUID
	KindDecimal
	KindVector
	KindObject
	KindEnum
	KindInput
	KindInterface
	KindUnion
	KindList
)

// FieldType is the tagged-union AST node for a resolved field type. Object,
// Enum, Input, Interface and Union carry Name; List carries Inner.
type FieldType struct {
	Kind  ScalarKind
	Name  string
	Inner *FieldType
}

func (t FieldType) String() string {
	switch t.Kind {
	case KindObject, KindEnum, KindInput, KindInterface, KindUnion:
		return t.Name
	case KindList:
		if t.Inner == nil {
			return "[]"
		}
		return "[" + t.Inner.String() + "]"
	default:
		return builtinNames[t.Kind]
	}
}

var builtinNames = map[ScalarKind]string{
	KindString:   "String",
	KindInt:      "Int",
	KindFloat:    "Float",
	KindBoolean:  "Boolean",
	KindID:       "ID",
	KindDateTime: "DateTime",
	KindDate:     "Date",
	KindTime:     "Time",
	KindJSON:     "Json",
	KindUUID:     "Uuid",
	KindDecimal:  "Decimal",
	KindVector:   "Vector",
}

var builtinKindsByName = map[string]ScalarKind{
	"String":   KindString,
	"Int":      KindInt,
	"Float":    KindFloat,
	"Boolean":  KindBoolean,
	"ID":       KindID,
	"DateTime": KindDateTime,
	"Date":     KindDate,
	"Time":     KindTime,
	"Json":     KindJSON,
	"Uuid":     KindUUID,
	"Decimal":  KindDecimal,
	"Vector":   KindVector,
}

// Field is one named, typed member of a type, query argument, or mutation
// argument.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
	Default  string
}

// TypeDef is a compiled object type: its fields plus, for JSONB-backed
// types, the SQL view it projects from and the JSONB column it reads.
type TypeDef struct {
	Name       string
	Fields     []Field
	SQLSource  string
	JSONColumn string

	// ForeignKeys maps a field name to the underlying *_id column it
	// resolves to without a join. Only the "id" sub-field is reachable
	// through this map; any other nested selector under the field fails
	// with RequiresJoin.
	ForeignKeys map[string]string
}

// AutoParams records which of the four auto-arguments a query definition
// accepts.
type AutoParams struct {
	Limit    bool
	Offset   bool
	Where    bool
	OrderBy  bool
}

// QueryDef is a compiled top-level query field. FactTable is non-empty for
// an aggregation query: it names the fact table this query's group_by,
// aggregate, and having arguments compile against, and View/JSONColumn
// projection do not apply.
type QueryDef struct {
	Name       string
	ReturnType FieldType
	IsList     bool
	Nullable   bool
	Arguments  []Field
	View       string
	AutoParams AutoParams
	FactTable  string
}

// MutationKind enumerates the operation a mutation definition performs.
type MutationKind int

const (
	MutationInsert MutationKind = iota
	MutationUpdate
	MutationDelete
	MutationFunction
	MutationCustom
)

// MutationOperation is the tagged variant describing what SQL a mutation
// definition issues.
type MutationOperation struct {
	Kind         MutationKind
	Table        string
	FunctionName string
}

// MutationDef is a compiled top-level mutation field.
type MutationDef struct {
	Name       string
	ReturnType FieldType
	Arguments  []Field
	Operation  MutationOperation
}

// Measure is one aggregable numeric column on a fact table.
type Measure struct {
	Name     string
	SQLType  string
	Nullable bool
}

// DimensionPath is one declared JSON path inside a fact table's dimensions
// column.
type DimensionPath struct {
	Name     string
	JSONPath string
	DataType string
}

// FilterColumn is a denormalized column on a fact table usable in WHERE
// without going through the dimensions JSONB path.
type FilterColumn struct {
	Name    string
	SQLType string
	Indexed bool
}

// FactTableMeta is the compiled metadata for one declared fact table.
type FactTableMeta struct {
	TableName          string
	Measures           []Measure
	DimensionsColumn   string
	DimensionPaths     []DimensionPath
	FilterColumns      []FilterColumn
	CalendarDimensions []string
}

// EnumDef is a compiled enum type: a PascalCase name and its
// SCREAMING_SNAKE_CASE values.
type EnumDef struct {
	Name   string
	Values []string
}

// CompiledSchema is immutable after compilation and shared read-only across
// every in-flight request; it is replaced wholesale on hot-reload.
type CompiledSchema struct {
	Types      map[string]*TypeDef
	Queries    map[string]*QueryDef
	Mutations  map[string]*MutationDef
	FactTables map[string]*FactTableMeta
	Enums      map[string]*EnumDef
}
