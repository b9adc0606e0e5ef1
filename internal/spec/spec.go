package spec

// EntityKind represents the kind of schema object a document describes
type EntityKind string

const (
	EntityKindTable            EntityKind = "table"
	EntityKindView             EntityKind = "view"
	EntityKindMaterializedView EntityKind = "materialized_view"
	EntityKindEnum             EntityKind = "enum"
)

// Entity is the schema-level description of one table, view, or enum.
// It is constructed once from a parsed document and is immutable during
// compilation; only the FK patcher rewrites source documents.
type Entity struct {
	Name          string
	TechnicalName string
	Schema        string
	Comment       string
	Kind          EntityKind

	Fields      []*Field
	Constraints []*CheckConstraint
	Indexes     []*Index

	// Definition holds the raw SELECT body for views and materialized views
	Definition string

	// Values holds the ordered member list for enum declarations
	Values []string
}

// TableName returns the name the entity contributes to the table registry:
// the technical name when declared, otherwise the document stem.
func (e *Entity) TableName(stem string) string {
	if e.TechnicalName != "" {
		return e.TechnicalName
	}
	return stem
}

// Field is one column definition within an entity
type Field struct {
	Name          string
	TechnicalName string
	Type          string
	Length        *int
	Precision     *int
	Scale         *int
	NotNull       bool
	Unique        bool
	PrimaryKey    bool
	Default       any // nil when absent; scalar literal or raw expression otherwise
	Generated     string
	ForeignKey    *ForeignKey
	Comment       string

	// Attrs preserves the raw attribute mapping of the source document.
	// The FK pattern matcher works on this, not on the decoded struct,
	// because the recognized reference conventions include keys the
	// struct does not model.
	Attrs map[string]any
}

// Generated column markers
const (
	GeneratedUUIDv4   = "uuid_v4"
	GeneratedIdentity = "identity"
)

// TechName returns the column identifier: the technical name when declared,
// otherwise the display name.
func (f *Field) TechName() string {
	if f.TechnicalName != "" {
		return f.TechnicalName
	}
	return f.Name
}

// ForeignKey is the explicit fk block of a field
type ForeignKey struct {
	RefTable   string
	RefField   string // defaults to "id"
	OnDelete   string
	OnUpdate   string
	Deferrable string
}

// CheckConstraint is a table-level constraint. The expression is opaque to
// the compiler and passed through verbatim.
type CheckConstraint struct {
	Name       string
	Expression string
}

// Index is one index declaration on an entity
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Method  string // btree, hash, gin, gist, brin
	Where   string // partial index predicate
}

// Document is one entity read from the corpus. A multi-document YAML file
// produces one Document per stream entry.
type Document struct {
	File   string // source file path
	Stem   string // file stem, the canonical document name
	Entity *Entity
}

// TableName returns the registry name of the document's entity
func (d *Document) TableName() string {
	return d.Entity.TableName(d.Stem)
}

// ParseError records a document that could not be loaded. Parse failures
// never stop the scan of the remaining corpus.
type ParseError struct {
	File string
	Err  error
}

// Corpus is the full set of documents of one run, in discovery order
type Corpus struct {
	Documents   []*Document
	ParseErrors []ParseError
}
