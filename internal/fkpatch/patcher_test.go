package fkpatch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const nilaiDoc = `entity:
  technical_name: nilai
fields:
  - technical_name: id
    type: uuid
    pk: true
  - technical_name: siswa_id
    type: uuid
    fk:
      ref_table: student
      ref_field: id
`

func TestPatchFileNestedFK(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "nilai.yml", nilaiDoc)

	changed, err := PatchFile(path, "siswa_id", "siswa")
	if err != nil {
		t.Fatal(err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 change, got %d", changed)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "ref_table: siswa") {
		t.Errorf("nested fk block not updated:\n%s", out)
	}
	if strings.Contains(out, "student") {
		t.Errorf("old target survived:\n%s", out)
	}
	if !strings.Contains(out, "ref_field: id") {
		t.Errorf("sibling keys must survive the rewrite:\n%s", out)
	}
}

func TestPatchFileIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "nilai.yml", nilaiDoc)

	if _, err := PatchFile(path, "siswa_id", "siswa"); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	changed, err := PatchFile(path, "siswa_id", "siswa")
	if err != nil {
		t.Fatal(err)
	}
	if changed != 0 {
		t.Errorf("second application must change nothing, got %d", changed)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("second application must leave the file byte-identical")
	}
}

func TestPatchFileAddsBareRefTable(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "absensi.yml", `table: absensi
columns:
  - name: id
    type: uuid
    primary_key: true
  - name: kelas_id
    type: uuid
`)

	changed, err := PatchFile(path, "kelas_id", "kelas")
	if err != nil {
		t.Fatal(err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 change, got %d", changed)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "ref_table: kelas") {
		t.Errorf("bare ref_table not appended:\n%s", data)
	}
}

func TestPatchFileBackupFirstWriteWins(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "nilai.yml", nilaiDoc)

	if _, err := PatchFile(path, "siswa_id", "siswa"); err != nil {
		t.Fatal(err)
	}
	bak, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatal(err)
	}
	if string(bak) != nilaiDoc {
		t.Error("backup must hold the pre-mutation content")
	}

	if _, err := PatchFile(path, "siswa_id", "murid"); err != nil {
		t.Fatal(err)
	}
	bak2, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatal(err)
	}
	if string(bak2) != nilaiDoc {
		t.Error("an existing backup must never be overwritten")
	}
}

func TestApplyFallbackScansCorpus(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "nilai.yml", nilaiDoc)
	writeDoc(t, dir, "absensi.yml", `entity:
  technical_name: absensi
fields:
  - technical_name: id
    type: uuid
    pk: true
  - technical_name: siswa_id
    type: uuid
    fk:
      ref_table: student
`)

	// No file declared: the fallback scan patches every document holding
	// the field.
	summary, err := Apply(dir, []Target{{Field: "siswa_id", Table: "siswa"}})
	if err != nil {
		t.Fatal(err)
	}
	if summary.FilesChanged != 2 || summary.FieldsPatched != 2 {
		t.Errorf("expected both documents patched, got %+v", summary)
	}
	if len(summary.Unmatched) != 0 {
		t.Errorf("unexpected unmatched targets: %+v", summary.Unmatched)
	}
}

func TestApplyDeclaredFile(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "nilai.yml", nilaiDoc)

	summary, err := Apply(dir, []Target{{File: "nilai.yml", Field: "siswa_id", Table: "siswa"}})
	if err != nil {
		t.Fatal(err)
	}
	if summary.FilesChanged != 1 || summary.FieldsPatched != 1 {
		t.Errorf("expected one patched file, got %+v", summary)
	}
}

func TestApplyUnmatched(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "nilai.yml", nilaiDoc)

	summary, err := Apply(dir, []Target{{Field: "ghost_id", Table: "ghost"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Unmatched) != 1 || summary.Unmatched[0].Field != "ghost_id" {
		t.Errorf("expected the target reported unmatched, got %+v", summary)
	}
}

func TestLoadPlan(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "plan.yml", `- file: nilai.yml
  field: siswa_id
  target: siswa
- field: kelas_id
  target: kelas
`)

	targets, err := LoadPlan(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	if targets[0].File != "nilai.yml" || targets[1].Table != "kelas" {
		t.Errorf("plan decoded wrong: %+v", targets)
	}
}

func TestLoadPlanRejectsIncompleteEntries(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "plan.yml", "- field: siswa_id\n")
	if _, err := LoadPlan(path); err == nil {
		t.Error("entries without a target must be rejected")
	}
}
