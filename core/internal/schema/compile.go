package schema

import (
	"fmt"
	"strings"

	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
)

// Compile validates an AuthoringIR and produces an immutable CompiledSchema.
// Compilation is all-or-nothing: the first unresolved reference or malformed
// enum aborts with a structured error carrying a JSON-pointer path.
func Compile(ir AuthoringIR) (*CompiledSchema, error) {
	enums, err := validateEnums(ir.Enums)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(ir.Types))
	for _, t := range ir.Types {
		known[t.Name] = true
	}
	for name := range enums {
		known[name] = true
	}

	cs := &CompiledSchema{
		Types:      make(map[string]*TypeDef, len(ir.Types)),
		Queries:    make(map[string]*QueryDef, len(ir.Queries)),
		Mutations:  make(map[string]*MutationDef, len(ir.Mutations)),
		FactTables: make(map[string]*FactTableMeta, len(ir.FactTables)),
		Enums:      enums,
	}

	for i, t := range ir.Types {
		td, err := compileType(t, i, enums)
		if err != nil {
			return nil, err
		}
		cs.Types[td.Name] = td
	}

	for i, q := range ir.Queries {
		qd, err := compileQuery(q, i, enums)
		if err != nil {
			return nil, err
		}
		cs.Queries[qd.Name] = qd
	}

	for i, m := range ir.Mutations {
		md, err := compileMutation(m, i, enums)
		if err != nil {
			return nil, err
		}
		cs.Mutations[md.Name] = md
	}

	for i, ft := range ir.FactTables {
		seen := make(map[string]bool, len(ft.Measures))
		for mi, m := range ft.Measures {
			if seen[m.Name] {
				return nil, errs.NewAt(errs.KindValidation, fmt.Sprintf("/fact_tables/%d/measures/%d/name", i, mi), "duplicate measure %q on fact table %q", m.Name, ft.TableName)
			}
			seen[m.Name] = true
		}
		cs.FactTables[ft.TableName] = compileFactTable(ft, i)
	}

	if err := validateReferences(cs, known); err != nil {
		return nil, err
	}

	return cs, nil
}

func compileType(t IRType, idx int, enums map[string]*EnumDef) (*TypeDef, error) {
	td := &TypeDef{Name: t.Name, SQLSource: t.SQLSource, JSONColumn: t.JSONColumn}
	for fi, f := range t.Fields {
		ft, err := parseFieldType(f.FieldType, enums)
		if err != nil {
			return nil, errs.NewAt(errs.KindUnknownType, fmt.Sprintf("/types/%d/fields/%d/field_type", idx, fi), "%s", err)
		}
		td.Fields = append(td.Fields, Field{Name: f.Name, Type: ft, Nullable: f.Nullable})
		if f.ForeignKey != "" {
			if td.ForeignKeys == nil {
				td.ForeignKeys = make(map[string]string)
			}
			td.ForeignKeys[f.Name] = f.ForeignKey
		}
	}
	return td, nil
}

func compileQuery(q IRQuery, idx int, enums map[string]*EnumDef) (*QueryDef, error) {
	rt, err := parseFieldType(q.ReturnType, enums)
	if err != nil {
		return nil, errs.NewAt(errs.KindUnknownType, fmt.Sprintf("/queries/%d/return_type", idx), "%s", err)
	}
	qd := &QueryDef{
		Name:       q.Name,
		ReturnType: rt,
		IsList:     q.ReturnsList,
		Nullable:   q.Nullable,
		View:       q.SQLSource,
		FactTable:  q.FactTable,
	}
	for ai, a := range q.Arguments {
		at, err := parseFieldType(a.ArgType, enums)
		if err != nil {
			return nil, errs.NewAt(errs.KindUnknownType, fmt.Sprintf("/queries/%d/arguments/%d/arg_type", idx, ai), "%s", err)
		}
		qd.Arguments = append(qd.Arguments, Field{Name: a.Name, Type: at, Nullable: a.Nullable, Default: a.Default})
	}
	if q.AutoParams != nil {
		qd.AutoParams = AutoParams{
			Limit:   q.AutoParams.Limit,
			Offset:  q.AutoParams.Offset,
			Where:   q.AutoParams.WhereClause,
			OrderBy: q.AutoParams.OrderBy,
		}
	}
	return qd, nil
}

func compileMutation(m IRMutation, idx int, enums map[string]*EnumDef) (*MutationDef, error) {
	rt, err := parseFieldType(m.ReturnType, enums)
	if err != nil {
		return nil, errs.NewAt(errs.KindUnknownType, fmt.Sprintf("/mutations/%d/return_type", idx), "%s", err)
	}
	op, err := parseMutationOperation(m)
	if err != nil {
		return nil, errs.NewAt(errs.KindValidation, fmt.Sprintf("/mutations/%d/operation", idx), "%s", err)
	}
	md := &MutationDef{Name: m.Name, ReturnType: rt, Operation: op}
	for ai, a := range m.Arguments {
		at, err := parseFieldType(a.ArgType, enums)
		if err != nil {
			return nil, errs.NewAt(errs.KindUnknownType, fmt.Sprintf("/mutations/%d/arguments/%d/arg_type", idx, ai), "%s", err)
		}
		md.Arguments = append(md.Arguments, Field{Name: a.Name, Type: at, Nullable: a.Nullable, Default: a.Default})
	}
	return md, nil
}

// parseMutationOperation maps the authoring operation code to a
// MutationOperation variant. Unknown codes fail compilation; absent codes
// default to Custom (a hand-written SQL source with no implied table op).
func parseMutationOperation(m IRMutation) (MutationOperation, error) {
	table := m.Name
	switch strings.ToUpper(m.Operation) {
	case "CREATE", "INSERT":
		return MutationOperation{Kind: MutationInsert, Table: table}, nil
	case "UPDATE":
		return MutationOperation{Kind: MutationUpdate, Table: table}, nil
	case "DELETE":
		return MutationOperation{Kind: MutationDelete, Table: table}, nil
	case "FUNCTION":
		return MutationOperation{Kind: MutationFunction, FunctionName: m.Name}, nil
	case "CUSTOM", "":
		return MutationOperation{Kind: MutationCustom}, nil
	default:
		return MutationOperation{}, fmt.Errorf("unknown mutation operation %q", m.Operation)
	}
}

func compileFactTable(ft IRFactTable, idx int) *FactTableMeta {
	meta := &FactTableMeta{
		TableName:          ft.TableName,
		DimensionsColumn:   ft.Dimensions.Name,
		CalendarDimensions: ft.CalendarDimensions,
	}
	for _, m := range ft.Measures {
		meta.Measures = append(meta.Measures, Measure{Name: m.Name, SQLType: m.SQLType, Nullable: m.Nullable})
	}
	for _, p := range ft.Dimensions.Paths {
		meta.DimensionPaths = append(meta.DimensionPaths, DimensionPath{Name: p.Name, JSONPath: p.JSONPath, DataType: p.DataType})
	}
	for _, fc := range ft.DenormalizedFilters {
		meta.FilterColumns = append(meta.FilterColumns, FilterColumn{Name: fc.Name, SQLType: fc.SQLType, Indexed: fc.Indexed})
	}
	return meta
}

// parseFieldType resolves a field-type string against the built-in scalar
// table, recording unresolved object references as Object(name) — the final
// reference check happens later in validateReferences, once every type name
// in the document is known.
func parseFieldType(s string, enums map[string]*EnumDef) (FieldType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FieldType{}, fmt.Errorf("empty field type")
	}
	if strings.HasPrefix(s, "[") {
		if !strings.HasSuffix(s, "]") {
			return FieldType{}, fmt.Errorf("malformed list type %q", s)
		}
		inner, err := parseFieldType(s[1:len(s)-1], enums)
		if err != nil {
			return FieldType{}, err
		}
		return FieldType{Kind: KindList, Inner: &inner}, nil
	}
	if kind, ok := builtinKindsByName[s]; ok {
		return FieldType{Kind: kind}, nil
	}
	if _, ok := enums[s]; ok {
		return FieldType{Kind: KindEnum, Name: s}, nil
	}
	return FieldType{Kind: KindObject, Name: s}, nil
}

// validateEnums requires each enum to have a PascalCase name, at least one
// value, and unique SCREAMING_SNAKE_CASE values.
func validateEnums(irEnums []IREnum) (map[string]*EnumDef, error) {
	enums := make(map[string]*EnumDef, len(irEnums))
	for i, e := range irEnums {
		path := fmt.Sprintf("/enums/%d", i)
		if !isPascalCase(e.Name) {
			return nil, errs.NewAt(errs.KindValidation, path+"/name", "enum name %q is not PascalCase", e.Name)
		}
		if len(e.Values) == 0 {
			return nil, errs.NewAt(errs.KindValidation, path+"/values", "enum %q has no values", e.Name)
		}
		seen := make(map[string]bool, len(e.Values))
		for vi, v := range e.Values {
			vpath := fmt.Sprintf("%s/values/%d", path, vi)
			if strings.HasPrefix(v, "_") {
				return nil, errs.NewAt(errs.KindValidation, vpath, "enum value %q has a leading underscore", v)
			}
			if !isScreamingSnakeCase(v) {
				return nil, errs.NewAt(errs.KindValidation, vpath, "enum value %q is not SCREAMING_SNAKE_CASE", v)
			}
			if seen[v] {
				return nil, errs.NewAt(errs.KindValidation, vpath, "duplicate enum value %q", v)
			}
			seen[v] = true
		}
		enums[e.Name] = &EnumDef{Name: e.Name, Values: e.Values}
	}
	return enums, nil
}

func isPascalCase(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func isScreamingSnakeCase(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '_' {
			return false
		}
	}
	return true
}

// validateReferences walks every type/query/mutation field (including
// through List(inner)) and fails on the first name that resolves to neither
// a built-in scalar nor a known type.
func validateReferences(cs *CompiledSchema, known map[string]bool) error {
	check := func(ft FieldType, path string) error {
		return checkFieldType(ft, known, path)
	}

	for name, td := range cs.Types {
		for i, f := range td.Fields {
			if err := check(f.Type, fmt.Sprintf("/types/%s/fields/%d", name, i)); err != nil {
				return err
			}
		}
	}
	for name, qd := range cs.Queries {
		if err := check(qd.ReturnType, fmt.Sprintf("/queries/%s/return_type", name)); err != nil {
			return err
		}
		for i, a := range qd.Arguments {
			if err := check(a.Type, fmt.Sprintf("/queries/%s/arguments/%d", name, i)); err != nil {
				return err
			}
		}
		if qd.FactTable != "" {
			if _, ok := cs.FactTables[qd.FactTable]; !ok {
				return errs.NewAt(errs.KindUnknownType, fmt.Sprintf("/queries/%s/fact_table", name), "unknown fact table %q", qd.FactTable)
			}
		}
	}
	for name, md := range cs.Mutations {
		if err := check(md.ReturnType, fmt.Sprintf("/mutations/%s/return_type", name)); err != nil {
			return err
		}
		for i, a := range md.Arguments {
			if err := check(a.Type, fmt.Sprintf("/mutations/%s/arguments/%d", name, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkFieldType(ft FieldType, known map[string]bool, path string) error {
	switch ft.Kind {
	case KindList:
		if ft.Inner == nil {
			return errs.NewAt(errs.KindUnknownType, path, "list type has no element type")
		}
		return checkFieldType(*ft.Inner, known, path)
	case KindObject, KindEnum, KindInput, KindInterface, KindUnion:
		if !known[ft.Name] {
			return errs.NewAt(errs.KindUnknownType, path, "unknown type %q", ft.Name)
		}
		return nil
	default:
		return nil
	}
}
