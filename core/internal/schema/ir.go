package schema

// AuthoringIR is the unvalidated JSON document shape as parsed straight off
// disk, before any reference resolution or enum validation. It is consumed
// exactly once by Compile.
type AuthoringIR struct {
	Version     string          `json:"version"`
	Types       []IRType        `json:"types"`
	Queries     []IRQuery       `json:"queries"`
	Mutations   []IRMutation    `json:"mutations"`
	FactTables  []IRFactTable   `json:"fact_tables"`
	Enums       []IREnum        `json:"enums"`
}

type IRField struct {
	Name       string `json:"name"`
	FieldType  string `json:"field_type"`
	Nullable   bool   `json:"nullable"`
	ForeignKey string `json:"foreign_key,omitempty"`
}

type IRType struct {
	Name        string    `json:"name"`
	Fields      []IRField `json:"fields"`
	Description string    `json:"description,omitempty"`
	SQLSource   string    `json:"sql_source,omitempty"`
	JSONColumn  string    `json:"jsonb_column,omitempty"`
}

type IRArgument struct {
	Name    string `json:"name"`
	ArgType string `json:"arg_type"`
	Nullable bool  `json:"nullable"`
	Default string `json:"default,omitempty"`
}

type IRAutoParams struct {
	Limit      bool `json:"limit"`
	Offset     bool `json:"offset"`
	WhereClause bool `json:"where_clause"`
	OrderBy    bool `json:"order_by"`
}

type IRQuery struct {
	Name        string        `json:"name"`
	ReturnType  string        `json:"return_type"`
	ReturnsList bool          `json:"returns_list"`
	Nullable    bool          `json:"nullable"`
	Arguments   []IRArgument  `json:"arguments"`
	Description string        `json:"description,omitempty"`
	SQLSource   string        `json:"sql_source,omitempty"`
	AutoParams  *IRAutoParams `json:"auto_params,omitempty"`
	FactTable   string        `json:"fact_table,omitempty"`
}

type IRMutation struct {
	Name       string       `json:"name"`
	ReturnType string       `json:"return_type"`
	Arguments  []IRArgument `json:"arguments"`
	Operation  string       `json:"operation,omitempty"`
	SQLSource  string       `json:"sql_source,omitempty"`
}

type IRMeasure struct {
	Name     string `json:"name"`
	SQLType  string `json:"sql_type"`
	Nullable bool   `json:"nullable"`
}

type IRDimensionPath struct {
	Name     string `json:"name"`
	JSONPath string `json:"json_path"`
	DataType string `json:"data_type"`
}

type IRDimensions struct {
	Name  string            `json:"name"`
	Paths []IRDimensionPath `json:"paths"`
}

type IRFilterColumn struct {
	Name    string `json:"name"`
	SQLType string `json:"sql_type"`
	Indexed bool   `json:"indexed"`
}

type IRFactTable struct {
	TableName           string           `json:"table_name"`
	Measures            []IRMeasure      `json:"measures"`
	Dimensions          IRDimensions     `json:"dimensions"`
	DenormalizedFilters []IRFilterColumn `json:"denormalized_filters"`
	CalendarDimensions  []string         `json:"calendar_dimensions"`
}

type IREnum struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}
