// Package fkcheck cross-checks every inferred foreign-key candidate in a
// corpus against the table registry. It is a read-only diagnostic pass: the
// emitter trusts explicit fk declarations, while this checker reports every
// target that does not exist, including the false positives of the _id
// naming heuristic.
package fkcheck

import (
	"github.com/go-openapi/inflect"

	"github.com/schemac/schemac/internal/spec"
)

// Candidate is one (table, field, target) tuple produced by the pattern
// matcher, annotated with its originating file.
type Candidate struct {
	Table  string
	Field  string
	Target string
	File   string
}

// Missing is a candidate whose target is not in the registry. Suggestion
// carries a registered table that matches the singular or plural form of
// the target, when one exists.
type Missing struct {
	Candidate
	Suggestion string
}

// Report is the structured result of one checker run
type Report struct {
	Tables      []string // sorted registry names
	Candidates  []Candidate
	Missing     []Missing
	ParseErrors []spec.ParseError
}

// Clean reports whether the run found neither missing targets nor parse
// errors (process exit status 0).
func (r *Report) Clean() bool {
	return len(r.Missing) == 0 && len(r.ParseErrors) == 0
}

// Run applies the FK pattern matcher to every field of every document and
// resolves each candidate against the registry. Documents and fields are
// visited in discovery order, so repeated runs over an unchanged corpus
// produce identical reports.
func Run(c *spec.Corpus, reg *spec.Registry) *Report {
	report := &Report{
		Tables:      reg.TableNames(),
		ParseErrors: c.ParseErrors,
	}

	for _, doc := range c.Documents {
		table := doc.TableName()
		for _, f := range doc.Entity.Fields {
			for _, cand := range spec.MatchCandidates(f) {
				candidate := Candidate{
					Table:  table,
					Field:  cand.Field,
					Target: cand.Target,
					File:   doc.File,
				}
				report.Candidates = append(report.Candidates, candidate)
				if !reg.HasTable(cand.Target) {
					report.Missing = append(report.Missing, Missing{
						Candidate:  candidate,
						Suggestion: suggest(cand.Target, reg),
					})
				}
			}
		}
	}

	return report
}

// suggest looks for a registered table under the singular or plural form
// of a missing target. Corpora mixing singular and plural table names are
// the most common cause of heuristic misses.
func suggest(target string, reg *spec.Registry) string {
	for _, alt := range []string{inflect.Singularize(target), inflect.Pluralize(target)} {
		if alt != target && reg.HasTable(alt) {
			return alt
		}
	}
	return ""
}
