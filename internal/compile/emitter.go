package compile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/schemac/schemac/internal/spec"
)

// The five strictly ordered emission phases. Forward references across
// entities are unresolvable in a single linear pass, so object creation is
// staged: a FOREIGN KEY statement can only run once every table exists.
const (
	PhaseExtensionsEnums = iota
	PhaseTables
	PhaseConstraints
	PhaseForeignKeys
	PhaseFinalizers
	phaseCount
)

// Result is the ordered output of one emitter run
type Result struct {
	Phases [phaseCount][]string
	// Errors holds the entities skipped in permissive mode; their output
	// is omitted entirely from every phase.
	Errors []EntityError
}

// EntityError records one malformed entity whose output was omitted
type EntityError struct {
	Table string
	File  string
	Err   error
}

func (e EntityError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Table, e.File, e.Err)
}

// Statements returns every statement in emission order
func (r *Result) Statements() []string {
	var out []string
	for _, phase := range r.Phases {
		out = append(out, phase...)
	}
	return out
}

// SQL concatenates all phases into one script. Phase boundaries are kept
// as blank-line separators so the output stays diffable.
func (r *Result) SQL() string {
	var blocks []string
	for _, phase := range r.Phases {
		if len(phase) == 0 {
			continue
		}
		blocks = append(blocks, strings.Join(phase, "\n"))
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// Emitter produces dependency-ordered DDL for a whole corpus
type Emitter struct {
	opts Options
	reg  *spec.Registry
}

// NewEmitter returns an emitter bound to a registry built from the same
// corpus it will compile.
func NewEmitter(opts Options, reg *spec.Registry) *Emitter {
	return &Emitter{opts: opts, reg: reg}
}

// entityFragments collects one entity's statements per phase so that a
// malformed entity can be omitted from the result as a whole.
type entityFragments struct {
	tables      []string
	constraints []string
	foreignKeys []string
	indexes     []string
	comments    []string
	ownership   []string
}

// Emit compiles the corpus into the five ordered phases. In strict mode
// the first malformed entity aborts the run; otherwise the entity's output
// is omitted and the failure recorded in Result.Errors.
func (e *Emitter) Emit(c *spec.Corpus) (*Result, error) {
	res := &Result{}

	res.Phases[PhaseExtensionsEnums] = e.emitExtensionsAndEnums(c)

	var viewFragments []*entityFragments
	for _, doc := range c.Documents {
		var frag *entityFragments
		var err error

		switch doc.Entity.Kind {
		case spec.EntityKindEnum:
			continue
		case spec.EntityKindView, spec.EntityKindMaterializedView:
			frag = e.emitView(doc)
			viewFragments = append(viewFragments, frag)
			continue
		default:
			frag, err = e.emitTable(doc)
		}
		if err != nil {
			if e.opts.Strict {
				return nil, fmt.Errorf("generate %s: %w", doc.TableName(), err)
			}
			res.Errors = append(res.Errors, EntityError{Table: doc.TableName(), File: doc.File, Err: err})
			continue
		}
		res.append(frag)
	}

	// Views land after every table of phase 2 so their FROM clauses can
	// reference any table regardless of source order.
	for _, frag := range viewFragments {
		res.append(frag)
	}

	return res, nil
}

func (r *Result) append(frag *entityFragments) {
	r.Phases[PhaseTables] = append(r.Phases[PhaseTables], frag.tables...)
	r.Phases[PhaseConstraints] = append(r.Phases[PhaseConstraints], frag.constraints...)
	r.Phases[PhaseForeignKeys] = append(r.Phases[PhaseForeignKeys], frag.foreignKeys...)
	r.Phases[PhaseFinalizers] = append(r.Phases[PhaseFinalizers], frag.indexes...)
	r.Phases[PhaseFinalizers] = append(r.Phases[PhaseFinalizers], frag.comments...)
	r.Phases[PhaseFinalizers] = append(r.Phases[PhaseFinalizers], frag.ownership...)
}

// emitExtensionsAndEnums builds phase 1: CREATE EXTENSION statements,
// deduplicated in order of first appearance, followed by CREATE TYPE for
// every registered enum in corpus discovery order.
func (e *Emitter) emitExtensionsAndEnums(c *spec.Corpus) []string {
	var stmts []string

	seen := make(map[string]bool)
	for _, ext := range e.opts.Extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		stmts = append(stmts, fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s;", spec.QuoteIdentifier(ext)))
	}

	for _, doc := range c.Documents {
		if doc.Entity.Kind != spec.EntityKindEnum {
			continue
		}
		name := spec.QualifyName(e.opts.schemaFor(doc.Entity.Schema), doc.TableName())
		values := make([]string, len(doc.Entity.Values))
		for i, v := range doc.Entity.Values {
			values[i] = pq.QuoteLiteral(v)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TYPE %s AS ENUM (%s);", name, strings.Join(values, ", ")))
	}

	return stmts
}

func (e *Emitter) emitTable(doc *spec.Document) (*entityFragments, error) {
	entity := doc.Entity
	table := doc.TableName()
	schema := e.opts.schemaFor(entity.Schema)
	qualified := spec.QualifyName(schema, table)

	frag := &entityFragments{}

	// Phase 2: the table itself, column definitions only. Besides defaults
	// and NOT NULL, every constraint is added later by name so the output
	// is explicit about what it creates.
	var columnDefs []string
	var pkColumns []string
	for _, f := range entity.Fields {
		def, err := e.renderColumn(table, f)
		if err != nil {
			return nil, err
		}
		columnDefs = append(columnDefs, def)
		if f.PrimaryKey {
			pkColumns = append(pkColumns, f.TechName())
		}
	}
	if len(columnDefs) == 0 {
		return nil, fmt.Errorf("table %s declares no fields", table)
	}
	if len(pkColumns) > 1 {
		return nil, fmt.Errorf("table %s declares %d primary key fields", table, len(pkColumns))
	}

	if e.opts.WithDrop {
		frag.tables = append(frag.tables, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", qualified))
	}
	frag.tables = append(frag.tables,
		fmt.Sprintf("CREATE TABLE %s (\n    %s\n);", qualified, strings.Join(columnDefs, ",\n    ")))

	// Phase 3: primary key, unique, and check constraints with
	// deterministic names derived from the table and a 1-based ordinal in
	// declaration order.
	if len(pkColumns) == 1 {
		frag.constraints = append(frag.constraints,
			fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s);",
				qualified,
				spec.QuoteIdentifier(table+"__pk"),
				spec.QuoteIdentifier(pkColumns[0])))
	}
	uqOrdinal := 0
	for _, f := range entity.Fields {
		if !f.Unique {
			continue
		}
		uqOrdinal++
		frag.constraints = append(frag.constraints,
			fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);",
				qualified,
				spec.QuoteIdentifier(fmt.Sprintf("%s__uq_%d", table, uqOrdinal)),
				spec.QuoteIdentifier(f.TechName())))
	}
	for i, c := range entity.Constraints {
		frag.constraints = append(frag.constraints,
			fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;",
				qualified,
				spec.QuoteIdentifier(fmt.Sprintf("%s__ck_%d", table, i+1)),
				ensureCheckKeyword(c.Expression)))
	}

	// Phase 4: foreign keys. The declared fk block is authoritative here;
	// dangling targets are the consistency checker's concern, never the
	// emitter's.
	for _, f := range entity.Fields {
		fk := f.ForeignKey
		if fk == nil || fk.RefTable == "" {
			continue
		}
		column := f.TechName()
		refSchema := e.opts.DefaultSchema
		if target, ok := e.reg.Table(fk.RefTable); ok {
			refSchema = e.opts.schemaFor(target.Schema)
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s)",
			qualified,
			spec.QuoteIdentifier(fmt.Sprintf("%s__%s__fk", table, column)),
			spec.QuoteIdentifier(column),
			spec.QualifyName(refSchema, fk.RefTable),
			spec.QuoteIdentifier(fk.RefField))
		if fk.OnDelete != "" {
			stmt += " ON DELETE " + strings.ToUpper(fk.OnDelete)
		}
		if fk.OnUpdate != "" {
			stmt += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
		}
		if fk.Deferrable != "" {
			stmt += " " + strings.ToUpper(fk.Deferrable)
		}
		frag.foreignKeys = append(frag.foreignKeys, stmt+";")
	}

	// Phase 5: indexes, comments, ownership
	for i, idx := range entity.Indexes {
		name := idx.Name
		if name == "" {
			name = fmt.Sprintf("%s_idx_%d", table, i+1)
		}
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		method := ""
		if idx.Method != "" {
			method = "USING " + strings.ToUpper(idx.Method) + " "
		}
		columns := make([]string, len(idx.Columns))
		for j, c := range idx.Columns {
			columns[j] = spec.QuoteIdentifier(c)
		}
		where := ""
		if idx.Where != "" {
			where = " WHERE " + idx.Where
		}
		frag.indexes = append(frag.indexes,
			fmt.Sprintf("CREATE %sINDEX %s ON %s %s(%s)%s;",
				unique, spec.QuoteIdentifier(name), qualified, method, strings.Join(columns, ", "), where))
	}

	if entity.Comment != "" {
		frag.comments = append(frag.comments,
			fmt.Sprintf("COMMENT ON TABLE %s IS %s;", qualified, pq.QuoteLiteral(entity.Comment)))
	}
	for _, f := range entity.Fields {
		if f.Comment == "" {
			continue
		}
		frag.comments = append(frag.comments,
			fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s;", qualified, spec.QuoteIdentifier(f.TechName()), pq.QuoteLiteral(f.Comment)))
	}

	if e.opts.Tablespace != "" {
		frag.ownership = append(frag.ownership,
			fmt.Sprintf("ALTER TABLE %s SET TABLESPACE %s;", qualified, spec.QuoteIdentifier(e.opts.Tablespace)))
	}
	if e.opts.Owner != "" {
		frag.ownership = append(frag.ownership,
			fmt.Sprintf("ALTER TABLE %s OWNER TO %s;", qualified, spec.QuoteIdentifier(e.opts.Owner)))
	}

	return frag, nil
}

func (e *Emitter) emitView(doc *spec.Document) *entityFragments {
	entity := doc.Entity
	qualified := spec.QualifyName(e.opts.schemaFor(entity.Schema), doc.TableName())

	keyword := "VIEW"
	if entity.Kind == spec.EntityKindMaterializedView {
		keyword = "MATERIALIZED VIEW"
	}

	frag := &entityFragments{}
	frag.tables = append(frag.tables,
		fmt.Sprintf("CREATE %s %s AS\n%s;", keyword, qualified, strings.TrimRight(strings.TrimSpace(entity.Definition), ";")))

	if entity.Comment != "" {
		frag.comments = append(frag.comments,
			fmt.Sprintf("COMMENT ON %s %s IS %s;", keyword, qualified, pq.QuoteLiteral(entity.Comment)))
	}
	if e.opts.Owner != "" {
		frag.ownership = append(frag.ownership,
			fmt.Sprintf("ALTER %s %s OWNER TO %s;", keyword, qualified, spec.QuoteIdentifier(e.opts.Owner)))
	}
	return frag
}

// integer-family types eligible for identity generation
var identityTypes = map[string]bool{
	"integer":  true,
	"bigint":   true,
	"smallint": true,
}

// renderColumn renders one column definition for CREATE TABLE:
// name, type, generation clause or default, NOT NULL.
func (e *Emitter) renderColumn(table string, f *spec.Field) (string, error) {
	column := f.TechName()
	if column == "" {
		return "", fmt.Errorf("table %s has a field without technical_name or name", table)
	}

	sqlType, err := NormalizeType(table, f, e.reg, e.opts)
	if err != nil {
		return "", err
	}

	parts := []string{spec.QuoteIdentifier(column), sqlType}

	switch f.Generated {
	case spec.GeneratedUUIDv4:
		if strings.ToLower(strings.TrimSpace(f.Type)) != "uuid" {
			return "", &TypeError{Table: table, Column: column, Msg: "generated: uuid_v4 requires a uuid column"}
		}
		if f.Default != nil {
			return "", &TypeError{Table: table, Column: column, Msg: "generated: uuid_v4 excludes an explicit default"}
		}
		parts = append(parts, "DEFAULT "+e.opts.uuidDefaultFunc())
	case spec.GeneratedIdentity:
		if !identityTypes[strings.ToLower(strings.TrimSpace(f.Type))] {
			return "", &TypeError{Table: table, Column: column, Msg: "generated: identity requires an integer-family column"}
		}
		// Identity generation owns the column; a literal default is
		// suppressed rather than rejected.
		parts = append(parts, "GENERATED BY DEFAULT AS IDENTITY")
	case "":
		if f.Default != nil {
			parts = append(parts, "DEFAULT "+renderDefault(f.Default))
		}
	default:
		return "", &TypeError{Table: table, Column: column, Msg: fmt.Sprintf("unknown generated mode %q", f.Generated)}
	}

	if f.NotNull {
		parts = append(parts, "NOT NULL")
	}

	return strings.Join(parts, " "), nil
}

// rawExpressionRe matches a bare function-call default such as now() or
// pg_catalog.gen_random_uuid().
var rawExpressionRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*\(.*\)$`)

// rawKeywordDefaults are literal keywords emitted unquoted
var rawKeywordDefaults = map[string]bool{
	"current_timestamp": true,
	"current_date":      true,
	"current_time":      true,
	"localtimestamp":    true,
	"null":              true,
	"true":              true,
	"false":             true,
}

// renderDefault renders a DEFAULT clause value. Scalars keep their SQL
// form; strings are quoted unless they match a recognized raw-expression
// pattern.
func renderDefault(v any) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int, int64, float64:
		return fmt.Sprint(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if rawExpressionRe.MatchString(trimmed) || rawKeywordDefaults[strings.ToLower(trimmed)] {
			return trimmed
		}
		return pq.QuoteLiteral(val)
	default:
		return pq.QuoteLiteral(fmt.Sprint(val))
	}
}

// ensureCheckKeyword passes a declared constraint expression through
// verbatim, adding the CHECK wrapper only when the expression omits it.
func ensureCheckKeyword(expr string) string {
	trimmed := strings.TrimSpace(expr)
	if strings.HasPrefix(strings.ToLower(trimmed), "check") {
		return trimmed
	}
	return "CHECK (" + trimmed + ")"
}
