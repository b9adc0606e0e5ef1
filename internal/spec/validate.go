package spec

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRe is the snake_case shape required of every technical name
var identifierRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Violation is one structural defect found in a document. Violations are
// non-fatal individually; the caller decides whether any of them aborts the
// run (strict mode) or the offending document is skipped (permissive mode).
type Violation struct {
	File  string
	Table string
	Msg   string
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Table, v.File, v.Msg)
}

// ValidateCorpus runs the entity validator over every document. All
// violations of all documents are collected before returning, so one run
// surfaces every defect.
func ValidateCorpus(c *Corpus) []Violation {
	var out []Violation
	for _, doc := range c.Documents {
		for _, msg := range ValidateDocument(doc) {
			out = append(out, Violation{File: doc.File, Table: doc.TableName(), Msg: msg})
		}
	}
	return out
}

// ValidateDocument checks one document against the structural invariants
// and returns every violation found, never stopping at the first one.
func ValidateDocument(doc *Document) []string {
	var msgs []string
	e := doc.Entity

	tech := e.TechnicalName
	if tech == "" {
		msgs = append(msgs, "entity is missing technical_name")
	} else {
		if !identifierRe.MatchString(tech) {
			msgs = append(msgs, fmt.Sprintf("technical_name %q is not a snake_case identifier", tech))
		}
		if tech != doc.Stem {
			msgs = append(msgs, fmt.Sprintf("technical_name %q does not match document name %q", tech, doc.Stem))
		}
	}

	switch e.Kind {
	case EntityKindEnum, EntityKindView, EntityKindMaterializedView:
		// Field-level invariants apply to tables only
		return msgs
	}

	if len(e.Fields) == 0 {
		msgs = append(msgs, "entity declares no fields")
		return msgs
	}

	pkCount := 0
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		name := f.TechName()
		if name == "" {
			msgs = append(msgs, "field is missing technical_name")
			continue
		}
		if !identifierRe.MatchString(name) {
			msgs = append(msgs, fmt.Sprintf("field %q is not a snake_case identifier", name))
		}
		if seen[name] {
			msgs = append(msgs, fmt.Sprintf("field %q is declared more than once", name))
		}
		seen[name] = true

		if strings.TrimSpace(f.Type) == "" {
			msgs = append(msgs, fmt.Sprintf("field %q has no type", name))
		}
		if f.PrimaryKey {
			pkCount++
		}
		if msg := nullabilityConflict(f); msg != "" {
			msgs = append(msgs, msg)
		}

		// Fields named like foreign keys must carry an explicit reference
		// declaration; the _id naming heuristic alone does not satisfy
		// strict validation.
		if strings.HasSuffix(name, "_id") && len(name) > 3 {
			explicit := false
			for _, cand := range MatchCandidates(f) {
				if cand.Form.Explicit() {
					explicit = true
					break
				}
			}
			if !explicit {
				msgs = append(msgs, fmt.Sprintf("field %q looks like a foreign key but declares no fk target", name))
			}
		}
	}

	if pkCount != 1 {
		msgs = append(msgs, fmt.Sprintf("entity must have exactly one primary key field, found %d", pkCount))
	}

	return msgs
}

// nullabilityConflict reports the contradiction of declaring both not_null
// and nullable with the same truth value.
func nullabilityConflict(f *Field) string {
	if f.Attrs == nil {
		return ""
	}
	rawNotNull, hasNotNull := f.Attrs["not_null"]
	rawNullable, hasNullable := f.Attrs["nullable"]
	if !hasNotNull || !hasNullable {
		return ""
	}
	if asBool(rawNotNull, false) == asBool(rawNullable, true) {
		return fmt.Sprintf("field %q declares not_null and nullable inconsistently", f.TechName())
	}
	return ""
}
