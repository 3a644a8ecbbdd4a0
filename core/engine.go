package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fraiseql/fraiseql-sub006/core/internal/adapter"
	"github.com/fraiseql/fraiseql-sub006/core/internal/dialect"
	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
	"github.com/fraiseql/fraiseql-sub006/core/internal/graph"
	"github.com/fraiseql/fraiseql-sub006/core/internal/planner"
	"github.com/fraiseql/fraiseql-sub006/core/internal/project"
	"github.com/fraiseql/fraiseql-sub006/core/internal/schema"
	"github.com/fraiseql/fraiseql-sub006/core/internal/security"
)

// engineState is the immutable, atomically-swapped snapshot the Engine
// serves requests from; a schema hot-reload builds a new engineState and
// swaps it in, exactly as the teacher's graphjinEngine is swapped wholesale
// behind GraphJin's atomic.Value.
type engineState struct {
	schema      *schema.CompiledSchema
	dialect     dialect.Dialect
	validator   *security.Validator
	policy      security.Policy
	tlsEnforcer security.TLSEnforcer
}

// Engine is the Go-native entry point: core.NewEngine + (*Engine).Execute.
type Engine struct {
	atomic.Value

	conf        Config
	adapter     adapter.Adapter
	policyCache *security.PolicyCache
	log         *log.Logger

	reloadMu sync.Mutex
	done     chan struct{}
}

// NewEngine loads the schema file, builds the dialect/validator/policy, and
// starts the hot-reload watcher (unless SchemaPollDuration is sub-second).
func NewEngine(conf Config, a adapter.Adapter) (*Engine, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	d, err := dialect.Lookup(conf.DBType)
	if err != nil {
		return nil, err
	}

	var cache *security.PolicyCache
	if !conf.RLS.Disabled {
		size := conf.RLS.CacheSize
		if size <= 0 {
			size = 5000
		}
		cache, err = security.NewPolicyCache(size)
		if err != nil {
			return nil, errs.Wrap(err, "engine: policy cache")
		}
	}

	e := &Engine{
		conf:        conf,
		adapter:     a,
		policyCache: cache,
		log:         log.New(os.Stderr, "fraiseql: ", log.LstdFlags),
		done:        make(chan struct{}),
	}

	cs, err := loadSchema(conf.SchemaPath)
	if err != nil {
		return nil, err
	}
	e.Store(&engineState{
		schema:      cs,
		dialect:     d,
		validator:   security.NewValidator(validatorProfile(conf.ValidatorProfile)),
		policy:      policyFromConfig(conf),
		tlsEnforcer: conf.TLS.Enforcer(),
	})

	e.startWatcher()
	return e, nil
}

// TLSEnforcer returns the declared TLS floor for inbound connections, per
// Config.TLS. The engine itself never accepts connections; an embedding
// transport layer calls Check on the result before handing a connection's
// negotiated state to Execute.
func (e *Engine) TLSEnforcer() security.TLSEnforcer {
	return e.state().tlsEnforcer
}

// BuildAdapter wires a concrete adapter.Adapter from Config, mirroring the
// teacher's initDBDriver dispatch on conf.DBType. cs is only needed for
// MockDB, whose adapter keeps it for GenerateValue.
func BuildAdapter(conf Config, cs *schema.CompiledSchema) (adapter.Adapter, error) {
	if conf.MockDB {
		return adapter.NewMockAdapter(cs), nil
	}

	switch conf.DBType {
	case "", "postgres":
		return adapter.OpenPostgres(adapter.PostgresConfig{
			ConnString:   conf.Postgres.ConnString,
			MaxOpenConns: conf.Postgres.MaxOpenConns,
			MaxIdleConns: conf.Postgres.MaxIdleConns,
		})
	case "mssql":
		return adapter.OpenMSSQL(adapter.MSSQLConfig{
			ConnString:   conf.MSSQL.ConnString,
			MaxOpenConns: conf.MSSQL.MaxOpenConns,
			MaxIdleConns: conf.MSSQL.MaxIdleConns,
		})
	default:
		return nil, fmt.Errorf("fraiseql: unsupported database type %q", conf.DBType)
	}
}

func validatorProfile(name string) security.ValidatorConfig {
	switch name {
	case "permissive":
		return security.Permissive()
	case "strict":
		return security.Strict()
	default:
		return security.Standard()
	}
}

func policyFromConfig(conf Config) security.Policy {
	if conf.RLS.Disabled {
		return security.NoOpPolicy{}
	}
	p := security.NewDefaultPolicy()
	if conf.RLS.TenantField != "" {
		p.TenantField = conf.RLS.TenantField
	}
	if conf.RLS.OwnerField != "" {
		p.OwnerField = conf.RLS.OwnerField
	}
	return p
}

func loadSchema(path string) (*schema.CompiledSchema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "engine: read schema file")
	}
	var ir schema.AuthoringIR
	if err := json.Unmarshal(b, &ir); err != nil {
		return nil, errs.Wrap(err, "engine: decode schema file")
	}
	return schema.Compile(ir)
}

func (e *Engine) state() *engineState {
	return e.Load().(*engineState)
}

// Reload re-reads the schema file and atomically swaps the engine state;
// in-flight requests keep running against the snapshot they started with.
func (e *Engine) Reload() error {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	cs, err := loadSchema(e.conf.SchemaPath)
	if err != nil {
		return err
	}
	prev := e.state()
	e.Store(&engineState{
		schema:      cs,
		dialect:     prev.dialect,
		validator:   prev.validator,
		policy:      prev.policy,
		tlsEnforcer: prev.tlsEnforcer,
	})
	return nil
}

// Close stops the hot-reload watcher and the underlying adapter.
func (e *Engine) Close() error {
	close(e.done)
	return e.adapter.Close()
}

// Request is one parsed-or-raw GraphQL request: exactly the document
// string, optional operation name, and variables. The caller's security
// context is passed to Execute separately.
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]json.RawMessage
}

// Execute runs the full pipeline: validate, parse, plan, compile WHERE,
// compose RLS, execute, project.
func (e *Engine) Execute(ctx context.Context, secCtx security.SecurityContext, req Request) (*Result, error) {
	st := e.state()

	if _, err := st.validator.Validate(req.Query); err != nil {
		return nil, err
	}

	doc, err := graph.Parse(req.Query)
	if err != nil {
		return nil, errs.Wrap(err, "parse")
	}

	vars := make(map[string]*graph.Node, len(req.Variables))
	for name, raw := range req.Variables {
		n, err := variableNode(raw)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Sprintf("variable %q", name))
		}
		vars[name] = n
	}
	for _, vd := range doc.Variables {
		if _, ok := vars[vd.Name]; ok {
			continue
		}
		if vd.HasDefault {
			vars[vd.Name] = vd.Default
			continue
		}
		return nil, errs.New(errs.KindValidation, "variable %q is not provided and has no default", vd.Name)
	}

	plan, err := planner.Plan(doc, st.schema, st.dialect, vars)
	if err != nil {
		return nil, errs.Wrap(err, "plan")
	}

	data := make(map[string]interface{}, len(plan.Roots))
	var resultErrs []ResultError

	for _, root := range plan.Roots {
		key := root.FieldName
		if root.Alias != "" {
			key = root.Alias
		}
		val, err := e.executeRoot(ctx, st, secCtx, root)
		if err != nil {
			resultErrs = append(resultErrs, ResultError{Message: err.Error(), Path: key})
			continue
		}
		data[key] = val
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errs.Wrap(err, "marshal result")
	}
	return &Result{Data: raw, Errors: resultErrs}, nil
}

func (e *Engine) executeRoot(ctx context.Context, st *engineState, secCtx security.SecurityContext, root *planner.RootPlan) (interface{}, error) {
	if root.IsMutation {
		return e.executeMutation(ctx, st, root)
	}
	if root.IsAggregate {
		return e.executeAggregate(ctx, st, secCtx, root)
	}

	queryTD, ok := st.schema.Types[rootReturnTypeName(st, root)]
	if !ok {
		return nil, errs.New(errs.KindUnknownType, "unknown return type for field %q", root.FieldName)
	}

	whereSQL, params, err := e.composeWhere(ctx, st, secCtx, queryTD.Name, root)
	if err != nil {
		return nil, err
	}

	pagination := dialect.Pagination{Limit: root.Limit, Offset: root.Offset}
	sql := fmt.Sprintf("SELECT %s FROM %s", queryTD.JSONColumn, st.dialect.QuoteIdent(root.View))
	if whereSQL != "" {
		sql += " WHERE " + whereSQL
	}
	sql += renderOrderBy(st.dialect, root)
	paginationSQL, paginationParams := st.dialect.RenderPagination(pagination, len(root.OrderBy) > 0, len(params))
	sql += paginationSQL
	params = append(params, paginationParams...)

	rows, err := e.adapter.Execute(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	template := project.BuildTemplate(root.Selections)
	if !root.IsList {
		if len(rows) == 0 {
			return nil, nil
		}
		raw, err := jsonColumnBytes(rows[0], queryTD.JSONColumn)
		if err != nil {
			return nil, err
		}
		return project.Document(raw, template)
	}

	items := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		raw, err := jsonColumnBytes(r, queryTD.JSONColumn)
		if err != nil {
			return nil, err
		}
		doc, err := project.Document(raw, template)
		if err != nil {
			return nil, err
		}
		items = append(items, doc)
	}
	return items, nil
}

// executeAggregate renders and runs the SELECT a fact-table-backed query
// field compiles to: its AggPlan's select list and GROUP BY, its own
// WHERE (compiled against the fact table's filter columns and dimensions
// JSONB path, composed with RLS exactly like an ordinary root field), its
// HAVING (renumbered from the aggregate package's hardcoded Postgres-style
// placeholders into the active dialect's syntax), and pagination.
func (e *Engine) executeAggregate(ctx context.Context, st *engineState, secCtx security.SecurityContext, root *planner.RootPlan) (interface{}, error) {
	whereSQL, params, err := e.composeWhere(ctx, st, secCtx, root.AggTable, root)
	if err != nil {
		return nil, err
	}

	aggPlan := root.AggPlan
	sql := fmt.Sprintf("SELECT %s FROM %s", joinStrings(aggPlan.SelectExprs), st.dialect.QuoteIdent(root.AggTable))
	if whereSQL != "" {
		sql += " WHERE " + whereSQL
	}
	if len(aggPlan.GroupByExprs) > 0 {
		sql += " GROUP BY " + joinStrings(aggPlan.GroupByExprs)
	}
	if aggPlan.HavingExpr != "" {
		sql += " HAVING " + renumberDollarPlaceholders(st.dialect, aggPlan.HavingExpr, len(aggPlan.HavingParams), len(params))
		params = append(params, aggPlan.HavingParams...)
	}

	pagination := dialect.Pagination{Limit: root.Limit, Offset: root.Offset}
	paginationSQL, paginationParams := st.dialect.RenderPagination(pagination, false, len(params))
	sql += paginationSQL
	params = append(params, paginationParams...)

	rows, err := e.adapter.Execute(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	items := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		doc := make(map[string]interface{}, len(r))
		for k, v := range r {
			doc[k] = v
		}
		items = append(items, doc)
	}
	return items, nil
}

// executeMutation renders and runs the single statement a mutation root
// field compiles to. Each mutation is its own statement; spec callers
// needing atomicity across rows use a function-based mutation instead.
func (e *Engine) executeMutation(ctx context.Context, st *engineState, root *planner.RootPlan) (interface{}, error) {
	md := root.Mutation

	var returnCols []string
	if td, ok := st.schema.Types[md.ReturnType.Name]; ok {
		for _, f := range td.Fields {
			returnCols = append(returnCols, f.Name)
		}
	}

	var sql string
	var params []interface{}
	var err error

	switch md.Operation.Kind {
	case schema.MutationInsert:
		sql, params = e.renderInsert(st.dialect, md, root.Args, returnCols)
	case schema.MutationUpdate:
		sql, params, err = e.renderUpdate(st.dialect, md, root.Args, returnCols)
	case schema.MutationDelete:
		sql, params, err = e.renderDelete(st.dialect, md, root.Args, returnCols)
	case schema.MutationFunction:
		sql, params = e.renderFunctionCall(st.dialect, md, root.Args, returnCols)
	default:
		return nil, errs.New(errs.KindValidation, "mutation %q has no generated SQL (custom operation)", root.FieldName)
	}
	if err != nil {
		return nil, err
	}

	rows, err := e.adapter.ExecuteMutation(ctx, sql, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	template := project.BuildTemplate(root.Selections)
	return project.Row(rows[0], template), nil
}

// renderInsert builds INSERT INTO table (cols...) VALUES (binds...) in the
// declared argument order, so parameter numbering is deterministic
// regardless of Go's randomized map iteration.
func (e *Engine) renderInsert(d dialect.Dialect, md *schema.MutationDef, args map[string]*graph.Node, returnCols []string) (string, []interface{}) {
	cols := make([]string, 0, len(md.Arguments))
	params := make([]interface{}, 0, len(md.Arguments))
	binds := make([]string, 0, len(md.Arguments))
	for _, f := range md.Arguments {
		n, ok := args[f.Name]
		if !ok {
			continue
		}
		params = append(params, n.ToGoValue())
		cols = append(cols, f.Name)
		binds = append(binds, d.BindVar(len(params)))
	}

	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = d.QuoteIdent(c)
	}

	output, inline := d.RenderMutationOutput("insert", returnCols)
	sql := fmt.Sprintf("INSERT INTO %s (%s)", d.QuoteIdent(md.Operation.Table), joinStrings(quotedCols))
	if inline {
		sql += output
	}
	sql += fmt.Sprintf(" VALUES (%s)", joinStrings(binds))
	if !inline {
		sql += output
	}
	return sql, params
}

// renderUpdate requires an "id" argument identifying the row; every other
// supplied argument becomes a SET assignment.
func (e *Engine) renderUpdate(d dialect.Dialect, md *schema.MutationDef, args map[string]*graph.Node, returnCols []string) (string, []interface{}, error) {
	idNode, ok := args["id"]
	if !ok {
		return "", nil, errs.New(errs.KindValidation, "mutation %q requires an \"id\" argument", md.Name)
	}

	var params []interface{}
	sets := make([]string, 0, len(md.Arguments))
	for _, f := range md.Arguments {
		if f.Name == "id" {
			continue
		}
		n, ok := args[f.Name]
		if !ok {
			continue
		}
		params = append(params, n.ToGoValue())
		sets = append(sets, fmt.Sprintf("%s = %s", d.QuoteIdent(f.Name), d.BindVar(len(params))))
	}
	if len(sets) == 0 {
		return "", nil, errs.New(errs.KindValidation, "mutation %q has no fields to update", md.Name)
	}

	params = append(params, idNode.ToGoValue())
	whereClause := fmt.Sprintf("%s = %s", d.QuoteIdent("id"), d.BindVar(len(params)))

	output, inline := d.RenderMutationOutput("update", returnCols)
	sql := fmt.Sprintf("UPDATE %s SET %s", d.QuoteIdent(md.Operation.Table), joinStrings(sets))
	if inline {
		sql += output
	}
	sql += " WHERE " + whereClause
	if !inline {
		sql += output
	}
	return sql, params, nil
}

// renderDelete requires an "id" argument identifying the row.
func (e *Engine) renderDelete(d dialect.Dialect, md *schema.MutationDef, args map[string]*graph.Node, returnCols []string) (string, []interface{}, error) {
	idNode, ok := args["id"]
	if !ok {
		return "", nil, errs.New(errs.KindValidation, "mutation %q requires an \"id\" argument", md.Name)
	}
	params := []interface{}{idNode.ToGoValue()}
	whereClause := fmt.Sprintf("%s = %s", d.QuoteIdent("id"), d.BindVar(1))

	output, inline := d.RenderMutationOutput("delete", returnCols)
	sql := fmt.Sprintf("DELETE FROM %s", d.QuoteIdent(md.Operation.Table))
	if inline {
		sql += output
	}
	sql += " WHERE " + whereClause
	if !inline {
		sql += output
	}
	return sql, params, nil
}

// renderFunctionCall invokes a SQL function positionally in declared
// argument order and selects its result columns directly, the one
// mutation shape callers use when they need atomicity across rows.
func (e *Engine) renderFunctionCall(d dialect.Dialect, md *schema.MutationDef, args map[string]*graph.Node, returnCols []string) (string, []interface{}) {
	params := make([]interface{}, 0, len(md.Arguments))
	binds := make([]string, 0, len(md.Arguments))
	for _, f := range md.Arguments {
		n, ok := args[f.Name]
		if !ok {
			continue
		}
		params = append(params, n.ToGoValue())
		binds = append(binds, d.BindVar(len(params)))
	}

	cols := "*"
	if len(returnCols) > 0 {
		quoted := make([]string, len(returnCols))
		for i, c := range returnCols {
			quoted[i] = d.QuoteIdent(c)
		}
		cols = joinStrings(quoted)
	}
	sql := fmt.Sprintf("SELECT %s FROM %s(%s)", cols, md.Operation.FunctionName, joinStrings(binds))
	return sql, params
}

func joinStrings(parts []string) string {
	return strings.Join(parts, ", ")
}

func (e *Engine) composeWhere(ctx context.Context, st *engineState, secCtx security.SecurityContext, typeName string, root *planner.RootPlan) (string, []interface{}, error) {
	var filter security.Filter
	if e.policyCache != nil {
		key := secCtx.UserID + ":" + typeName
		if cached, ok := e.policyCache.Get(key); ok {
			filter = cached
		} else {
			f, err := st.policy.Evaluate(secCtx, typeName, st.dialect)
			if err != nil {
				return "", nil, err
			}
			filter = f
			ttl := e.conf.RLS.CacheTTL
			if ttl <= 0 {
				ttl = 30 * time.Second
			}
			go e.policyCache.Set(key, filter, ttl)
		}
	} else {
		f, err := st.policy.Evaluate(secCtx, typeName, st.dialect)
		if err != nil {
			return "", nil, err
		}
		filter = f
	}

	if filter.Empty() {
		return root.WhereSQL, root.Params, nil
	}
	if root.WhereSQL == "" {
		return renumberPlaceholders(st.dialect, filter.SQL, len(filter.Params), 0), filter.Params, nil
	}

	combined := "(" + root.WhereSQL + " AND " + renumberPlaceholders(st.dialect, filter.SQL, len(filter.Params), len(root.Params)) + ")"
	return combined, append(append([]interface{}{}, root.Params...), filter.Params...), nil
}

func rootReturnTypeName(st *engineState, root *planner.RootPlan) string {
	for _, q := range st.schema.Queries {
		if q.Name == root.FieldName {
			return q.ReturnType.Name
		}
	}
	return ""
}

func renderOrderBy(d dialect.Dialect, root *planner.RootPlan) string {
	if len(root.OrderBy) == 0 {
		return ""
	}
	s := " ORDER BY "
	for i, term := range root.OrderBy {
		if i > 0 {
			s += ", "
		}
		s += d.QuoteIdent(term.Path) + " " + term.Direction
	}
	return s
}

func jsonColumnBytes(row adapter.Row, column string) ([]byte, error) {
	v, ok := row[column]
	if !ok {
		return nil, errs.New(errs.KindDatabase, "missing projection column %q in result row", column)
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(b)
	}
}

func variableNode(raw json.RawMessage) (*graph.Node, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return graph.FromJSON(v), nil
}

// renumberDollarPlaceholders rewrites aggregate.AggregationPlan.HavingExpr's
// hardcoded "$N" placeholders — the aggregate package always emits literal
// Postgres-style dollar placeholders, independent of the active dialect —
// into the dialect's own bind-variable syntax, numbered after paramBase
// already-bound parameters.
func renumberDollarPlaceholders(d dialect.Dialect, sql string, n, paramBase int) string {
	out := sql
	for i := n; i >= 1; i-- {
		out = strings.ReplaceAll(out, fmt.Sprintf("$%d", i), fmt.Sprintf("\x00%d\x00", i))
	}
	for i := 1; i <= n; i++ {
		out = strings.ReplaceAll(out, fmt.Sprintf("\x00%d\x00", i), d.BindVar(paramBase+i))
	}
	return out
}

// renumberPlaceholders rewrites a filter's own placeholder numbering
// (1..n) to start after paramBase already-bound parameters, so a filter
// composed onto a user WHERE stays densely and left-to-right numbered.
func renumberPlaceholders(d dialect.Dialect, sql string, n, paramBase int) string {
	if paramBase == 0 {
		return sql
	}
	out := sql
	for i := n; i >= 1; i-- {
		out = strings.ReplaceAll(out, d.BindVar(i), fmt.Sprintf("\x00%d\x00", i))
	}
	for i := 1; i <= n; i++ {
		out = strings.ReplaceAll(out, fmt.Sprintf("\x00%d\x00", i), d.BindVar(paramBase+i))
	}
	return out
}
