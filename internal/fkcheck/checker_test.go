package fkcheck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/schemac/schemac/internal/spec"
)

func doc(stem string, fields ...*spec.Field) *spec.Document {
	return &spec.Document{
		File: stem + ".yml",
		Stem: stem,
		Entity: &spec.Entity{
			TechnicalName: stem,
			Kind:          spec.EntityKindTable,
			Fields:        fields,
		},
	}
}

func TestRunClean(t *testing.T) {
	c := &spec.Corpus{Documents: []*spec.Document{
		doc("siswa",
			&spec.Field{TechnicalName: "id", Type: "uuid", PrimaryKey: true},
		),
		doc("nilai",
			&spec.Field{TechnicalName: "id", Type: "uuid", PrimaryKey: true},
			&spec.Field{TechnicalName: "siswa_id", Type: "uuid",
				ForeignKey: &spec.ForeignKey{RefTable: "siswa", RefField: "id"}},
		),
	}}

	report := Run(c, spec.BuildRegistry(c))
	if !report.Clean() {
		t.Fatalf("expected a clean report, got missing %+v", report.Missing)
	}
	// siswa_id yields the explicit declaration plus the suffix heuristic;
	// both resolve against the same table.
	if len(report.Candidates) != 2 {
		t.Errorf("expected 2 candidates, got %+v", report.Candidates)
	}
}

func TestRunMissingTarget(t *testing.T) {
	c := &spec.Corpus{Documents: []*spec.Document{
		doc("siswa", &spec.Field{TechnicalName: "id", Type: "uuid", PrimaryKey: true}),
		doc("nilai",
			&spec.Field{TechnicalName: "id", Type: "uuid", PrimaryKey: true},
			&spec.Field{TechnicalName: "guru_id", Type: "uuid"},
		),
	}}

	report := Run(c, spec.BuildRegistry(c))
	if report.Clean() {
		t.Fatal("expected a missing target")
	}

	want := []Missing{{
		Candidate: Candidate{Table: "nilai", Field: "guru_id", Target: "guru", File: "nilai.yml"},
	}}
	if diff := cmp.Diff(want, report.Missing); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
}

func TestRunNoCandidatesIsNotMissing(t *testing.T) {
	c := &spec.Corpus{Documents: []*spec.Document{
		doc("siswa",
			&spec.Field{TechnicalName: "id", Type: "uuid", PrimaryKey: true},
			&spec.Field{TechnicalName: "nama", Type: "text"},
		),
	}}

	report := Run(c, spec.BuildRegistry(c))
	if len(report.Candidates) != 0 || len(report.Missing) != 0 {
		t.Errorf("fields matching no convention contribute nothing: %+v", report)
	}
	if !report.Clean() {
		t.Error("a corpus without candidates is clean")
	}
}

func TestRunLegacyDocumentRelationTarget(t *testing.T) {
	dir := t.TempDir()
	content := `table: ekskul
columns:
  - name: id
    type: uuid
    primary_key: true
  - name: pembina
    type: uuid
    relation: guru
`
	if err := os.WriteFile(filepath.Join(dir, "ekskul.yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	corpus, err := spec.LoadDir(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	report := Run(corpus, spec.BuildRegistry(corpus))

	if len(report.Candidates) != 1 {
		t.Fatalf("legacy relation attribute must produce a candidate, got %+v", report.Candidates)
	}
	if report.Clean() {
		t.Fatal("dangling relation target must be reported")
	}
	m := report.Missing[0]
	if m.Table != "ekskul" || m.Field != "pembina" || m.Target != "guru" {
		t.Errorf("Missing = %+v, want ekskul/pembina/guru", m)
	}
}

func TestRunSuggestsSingularAndPlural(t *testing.T) {
	c := &spec.Corpus{Documents: []*spec.Document{
		doc("students", &spec.Field{TechnicalName: "id", Type: "uuid", PrimaryKey: true}),
		doc("grades",
			&spec.Field{TechnicalName: "id", Type: "uuid", PrimaryKey: true},
			&spec.Field{TechnicalName: "student_id", Type: "uuid"},
		),
	}}

	report := Run(c, spec.BuildRegistry(c))
	if len(report.Missing) != 1 {
		t.Fatalf("expected one missing target, got %+v", report.Missing)
	}
	if report.Missing[0].Suggestion != "students" {
		t.Errorf("Suggestion = %q, want students", report.Missing[0].Suggestion)
	}
}

func TestRenderReport(t *testing.T) {
	c := &spec.Corpus{Documents: []*spec.Document{
		doc("grades",
			&spec.Field{TechnicalName: "id", Type: "uuid", PrimaryKey: true},
			&spec.Field{TechnicalName: "student_id", Type: "uuid"},
		),
	}}

	report := Run(c, spec.BuildRegistry(c))
	var b strings.Builder
	if err := report.Render(&b); err != nil {
		t.Fatal(err)
	}
	out := b.String()

	for _, want := range []string{
		"Total tables detected : 1",
		"Total FK candidates   : 1",
		"Missing FK targets    : 1",
		"  1. [grades] student_id -> student (file: grades.yml)",
		" - grades",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryClean(t *testing.T) {
	c := &spec.Corpus{Documents: []*spec.Document{
		doc("siswa", &spec.Field{TechnicalName: "id", Type: "uuid", PrimaryKey: true}),
	}}
	report := Run(c, spec.BuildRegistry(c))
	if !strings.Contains(report.Summary(), "All FK targets resolve to a known table.") {
		t.Errorf("clean summary missing verdict:\n%s", report.Summary())
	}
}
