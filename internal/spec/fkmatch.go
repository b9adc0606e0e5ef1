package spec

import "strings"

// MatchForm identifies which naming or structural convention produced a
// foreign-key candidate.
type MatchForm int

const (
	// FormExplicitFK is a nested fk block with ref_table (or table)
	FormExplicitFK MatchForm = iota + 1
	// FormRefTable is a bare ref_table attribute on the field
	FormRefTable
	// FormDottedRef is a references/foreign_key attribute holding a dotted string
	FormDottedRef
	// FormTypedRef is a reference-typed field (type: fk/foreign_key/reference/many2one)
	FormTypedRef
	// FormRelation is a bare relation attribute naming the target directly
	FormRelation
	// FormMany2One is a nested many2one mapping with comodel/model/table
	FormMany2One
	// FormNameSuffix is the _id naming-convention fallback
	FormNameSuffix
)

// Explicit reports whether the form is an explicit declaration (forms 1-6)
// as opposed to the naming-convention fallback.
func (m MatchForm) Explicit() bool {
	return m != FormNameSuffix
}

// Candidate is one (field, target-table) pair implied by a recognized
// convention, not yet checked for existence.
type Candidate struct {
	Field  string
	Target string
	Form   MatchForm
}

// referenceTypes are the type tokens that mark a field as a typed reference
var referenceTypes = map[string]bool{
	"fk":          true,
	"foreign_key": true,
	"reference":   true,
	"many2one":    true,
}

// typedRefKeys name the target table on a reference-typed field
var typedRefKeys = []string{"ref", "reference", "target", "comodel", "model"}

// MatchCandidates returns every foreign-key candidate implied by the field,
// in fixed form order. A field may match several conventions at once; all
// matches are returned without deduplication so conflicting declarations
// surface as separate report rows.
func MatchCandidates(f *Field) []Candidate {
	var out []Candidate
	name := f.TechName()

	add := func(target string, form MatchForm) {
		target = strings.TrimSpace(target)
		if target == "" {
			return
		}
		out = append(out, Candidate{Field: name, Target: target, Form: form})
	}

	// Form 1: explicit fk block
	if f.ForeignKey != nil {
		add(f.ForeignKey.RefTable, FormExplicitFK)
	}

	// Form 2: bare ref_table attribute
	add(attrString(f.Attrs, "ref_table"), FormRefTable)

	// Form 3: references / foreign_key dotted string
	for _, key := range []string{"references", "foreign_key"} {
		if v := attrString(f.Attrs, key); v != "" {
			add(ParseRefTarget(v), FormDottedRef)
		}
	}

	// Form 4: reference-typed field naming its target
	if referenceTypes[strings.ToLower(attrString(f.Attrs, "type"))] {
		for _, key := range typedRefKeys {
			if v := attrString(f.Attrs, key); v != "" {
				add(ParseRefTarget(v), FormTypedRef)
			}
		}
	}

	// Form 5: bare relation attribute
	add(attrString(f.Attrs, "relation"), FormRelation)

	// Form 6: nested many2one mapping
	if m2o, ok := attrMap(f.Attrs, "many2one"); ok {
		for _, key := range []string{"comodel", "model", "table"} {
			if v := attrString(m2o, key); v != "" {
				add(ParseRefTarget(v), FormMany2One)
			}
		}
	}

	// Form 7: the _id naming convention, always applied last. This is the
	// usual source of false positives the consistency checker exists to
	// catch, so it never overrides an explicit declaration; both are kept.
	if strings.HasSuffix(name, "_id") && len(name) > 3 {
		add(strings.TrimSuffix(name, "_id"), FormNameSuffix)
	}

	return out
}

// ParseRefTarget extracts the table portion of a dotted reference string:
//
//	"table"           -> table
//	"table.id"        -> table
//	"schema.table.id" -> schema.table
//
// Only the trailing column component is dropped, and only when more than
// one segment is present.
func ParseRefTarget(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parts := strings.Split(ref, ".")
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ".")
}

func attrString(attrs map[string]any, key string) string {
	if attrs == nil {
		return ""
	}
	if s, ok := attrs[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func attrMap(attrs map[string]any, key string) (map[string]any, bool) {
	if attrs == nil {
		return nil, false
	}
	m, ok := attrs[key].(map[string]any)
	return m, ok
}
