package spec

import "sort"

// Registry is the authoritative set of table and enum names known to the
// current corpus. It is built once per run, before any validation or
// emission, and treated as immutable afterwards; every consumer receives it
// explicitly rather than through shared state.
type Registry struct {
	tables map[string]*Entity
	enums  map[string]*Entity
	order  []string // table discovery order
}

// NewRegistry constructs a registry from a literal set of table names.
// Used in tests and anywhere existence checks are needed without a corpus.
func NewRegistry(tableNames ...string) *Registry {
	r := &Registry{
		tables: make(map[string]*Entity, len(tableNames)),
		enums:  make(map[string]*Entity),
	}
	for _, name := range tableNames {
		if _, ok := r.tables[name]; !ok {
			r.order = append(r.order, name)
		}
		r.tables[name] = &Entity{TechnicalName: name, Kind: EntityKindTable}
	}
	return r
}

// BuildRegistry makes one pass over the corpus and records every table,
// view, and enum name. Later documents with a duplicate name override
// earlier ones for lookup purposes but keep the original discovery slot.
func BuildRegistry(c *Corpus) *Registry {
	r := &Registry{
		tables: make(map[string]*Entity),
		enums:  make(map[string]*Entity),
	}
	for _, doc := range c.Documents {
		name := doc.TableName()
		switch doc.Entity.Kind {
		case EntityKindEnum:
			r.enums[name] = doc.Entity
		default:
			if _, ok := r.tables[name]; !ok {
				r.order = append(r.order, name)
			}
			r.tables[name] = doc.Entity
		}
	}
	return r
}

// HasTable reports whether name is a known table or view
func (r *Registry) HasTable(name string) bool {
	_, ok := r.tables[name]
	return ok
}

// Table returns the entity registered under name
func (r *Registry) Table(name string) (*Entity, bool) {
	e, ok := r.tables[name]
	return e, ok
}

// HasEnum reports whether name is a declared enum type
func (r *Registry) HasEnum(name string) bool {
	_, ok := r.enums[name]
	return ok
}

// Enum returns the enum entity registered under name
func (r *Registry) Enum(name string) (*Entity, bool) {
	e, ok := r.enums[name]
	return e, ok
}

// TableNames returns all registered table names, sorted
func (r *Registry) TableNames() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tables
func (r *Registry) Len() int {
	return len(r.tables)
}
