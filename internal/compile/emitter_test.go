package compile

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/schemac/schemac/internal/spec"
)

func doc(stem string, e *spec.Entity) *spec.Document {
	if e.TechnicalName == "" {
		e.TechnicalName = stem
	}
	if e.Kind == "" {
		e.Kind = spec.EntityKindTable
	}
	return &spec.Document{File: stem + ".yml", Stem: stem, Entity: e}
}

func schoolCorpus() *spec.Corpus {
	return &spec.Corpus{Documents: []*spec.Document{
		doc("siswa", &spec.Entity{
			Comment: "master data siswa",
			Fields: []*spec.Field{
				{TechnicalName: "id", Type: "uuid", PrimaryKey: true, NotNull: true, Generated: spec.GeneratedUUIDv4},
				{TechnicalName: "nama", Type: "varchar", NotNull: true},
				{TechnicalName: "nis", Type: "varchar", Unique: true},
			},
		}),
		doc("scholarship", &spec.Entity{
			Fields: []*spec.Field{
				{TechnicalName: "id", Type: "integer", PrimaryKey: true, NotNull: true, Generated: spec.GeneratedIdentity},
				{TechnicalName: "siswa_id", Type: "uuid", NotNull: true,
					ForeignKey: &spec.ForeignKey{RefTable: "siswa", RefField: "id", OnDelete: "cascade"}},
				{TechnicalName: "amount", Type: "numeric", Precision: intPtr(12), Scale: intPtr(2)},
			},
			Constraints: []*spec.CheckConstraint{
				{Name: "positive_amount", Expression: "amount > 0"},
			},
			Indexes: []*spec.Index{
				{Columns: []string{"siswa_id"}},
			},
		}),
	}}
}

func emit(t *testing.T, c *spec.Corpus, opts Options) *Result {
	t.Helper()
	res, err := NewEmitter(opts, spec.BuildRegistry(c)).Emit(c)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestEmitSchoolScenario(t *testing.T) {
	c := schoolCorpus()
	res := emit(t, c, DefaultOptions())
	sql := res.SQL()

	createSiswa := strings.Index(sql, `CREATE TABLE "public"."siswa"`)
	createScholarship := strings.Index(sql, `CREATE TABLE "public"."scholarship"`)
	if createSiswa < 0 || createScholarship < 0 {
		t.Fatalf("missing CREATE TABLE statements:\n%s", sql)
	}
	if createSiswa > createScholarship {
		t.Error("siswa must be created before scholarship (discovery order)")
	}

	fkPos := strings.Index(sql, `REFERENCES "public"."siswa"("id")`)
	if fkPos < 0 {
		t.Fatalf("missing foreign key to siswa:\n%s", sql)
	}
	if strings.Count(sql, `REFERENCES "public"."siswa"`) != 1 {
		t.Error("expected exactly one foreign key referencing siswa")
	}
	if fkPos < createScholarship {
		t.Error("foreign keys must come after every CREATE TABLE")
	}

	for _, want := range []string{
		`"id" uuid DEFAULT gen_random_uuid() NOT NULL`,
		`"id" integer GENERATED BY DEFAULT AS IDENTITY NOT NULL`,
		`"amount" numeric(12,2)`,
		`ADD CONSTRAINT "siswa__pk" PRIMARY KEY ("id")`,
		`ADD CONSTRAINT "siswa__uq_1" UNIQUE ("nis")`,
		`ADD CONSTRAINT "scholarship__ck_1" CHECK (amount > 0)`,
		`ADD CONSTRAINT "scholarship__siswa_id__fk" FOREIGN KEY ("siswa_id") REFERENCES "public"."siswa"("id") ON DELETE CASCADE;`,
		`CREATE INDEX "scholarship_idx_1" ON "public"."scholarship" ("siswa_id");`,
		`COMMENT ON TABLE "public"."siswa" IS 'master data siswa';`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("output missing %q\n%s", want, sql)
		}
	}
}

func TestEmitDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Extensions = []string{"pgcrypto"}

	first := emit(t, schoolCorpus(), opts).SQL()
	second := emit(t, schoolCorpus(), opts).SQL()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated runs must be byte-identical (-first +second):\n%s", diff)
	}
}

func TestEmitPhaseOrder(t *testing.T) {
	res := emit(t, schoolCorpus(), DefaultOptions())

	for _, stmt := range res.Phases[PhaseTables] {
		if !strings.HasPrefix(stmt, "CREATE TABLE") {
			t.Errorf("phase 2 statement out of place: %s", stmt)
		}
	}
	for _, stmt := range res.Phases[PhaseConstraints] {
		if strings.Contains(stmt, "FOREIGN KEY") {
			t.Errorf("foreign key leaked into phase 3: %s", stmt)
		}
	}
	for _, stmt := range res.Phases[PhaseForeignKeys] {
		if !strings.Contains(stmt, "FOREIGN KEY") {
			t.Errorf("phase 4 statement out of place: %s", stmt)
		}
	}
}

func TestEmitExtensionsAndEnums(t *testing.T) {
	c := &spec.Corpus{Documents: []*spec.Document{
		doc("status_siswa", &spec.Entity{
			Kind:   spec.EntityKindEnum,
			Values: []string{"aktif", "lulus"},
		}),
		doc("siswa", &spec.Entity{
			Fields: []*spec.Field{
				{TechnicalName: "id", Type: "uuid", PrimaryKey: true},
				{TechnicalName: "status", Type: "enum:status_siswa", NotNull: true},
			},
		}),
	}}

	opts := DefaultOptions()
	opts.Extensions = []string{"pgcrypto", "pgcrypto", "uuid-ossp"}
	res := emit(t, c, opts)

	want := []string{
		`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
		`CREATE TYPE "public"."status_siswa" AS ENUM ('aktif', 'lulus');`,
	}
	if diff := cmp.Diff(want, res.Phases[PhaseExtensionsEnums]); diff != "" {
		t.Errorf("phase 1 mismatch (-want +got):\n%s", diff)
	}

	if !strings.Contains(res.SQL(), `"status" "public"."status_siswa" NOT NULL`) {
		t.Errorf("enum column must use the qualified type:\n%s", res.SQL())
	}
}

func TestEmitUUIDFunctionSelection(t *testing.T) {
	c := &spec.Corpus{Documents: []*spec.Document{
		doc("siswa", &spec.Entity{
			Fields: []*spec.Field{
				{TechnicalName: "id", Type: "uuid", PrimaryKey: true, Generated: spec.GeneratedUUIDv4},
			},
		}),
	}}

	opts := DefaultOptions()
	opts.Extensions = []string{"uuid-ossp"}
	sql := emit(t, c, opts).SQL()
	if !strings.Contains(sql, "DEFAULT uuid_generate_v4()") {
		t.Errorf("uuid-ossp corpora must use uuid_generate_v4():\n%s", sql)
	}
}

func TestEmitWithDrop(t *testing.T) {
	opts := DefaultOptions()
	opts.WithDrop = true
	res := emit(t, schoolCorpus(), opts)

	if res.Phases[PhaseTables][0] != `DROP TABLE IF EXISTS "public"."siswa" CASCADE;` {
		t.Errorf("drop statement missing or misplaced: %q", res.Phases[PhaseTables][0])
	}
}

func TestEmitOwnerAndTablespace(t *testing.T) {
	opts := DefaultOptions()
	opts.Owner = "app"
	opts.Tablespace = "fast"
	sql := emit(t, schoolCorpus(), opts).SQL()

	tsPos := strings.Index(sql, `ALTER TABLE "public"."siswa" SET TABLESPACE "fast";`)
	ownerPos := strings.Index(sql, `ALTER TABLE "public"."siswa" OWNER TO "app";`)
	if tsPos < 0 || ownerPos < 0 {
		t.Fatalf("missing ownership statements:\n%s", sql)
	}
	if tsPos > ownerPos {
		t.Error("tablespace must precede ownership")
	}
}

func TestEmitViewAfterTables(t *testing.T) {
	c := &spec.Corpus{Documents: []*spec.Document{
		doc("a_rekap", &spec.Entity{
			Kind:       spec.EntityKindView,
			Definition: "SELECT id FROM siswa",
		}),
		doc("siswa", &spec.Entity{
			Fields: []*spec.Field{{TechnicalName: "id", Type: "uuid", PrimaryKey: true}},
		}),
	}}

	res := emit(t, c, DefaultOptions())
	stmts := res.Phases[PhaseTables]
	if len(stmts) != 2 {
		t.Fatalf("expected 2 phase-2 statements, got %d", len(stmts))
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE") || !strings.HasPrefix(stmts[1], "CREATE VIEW") {
		t.Errorf("views must land after every table even when discovered first: %v", stmts)
	}
}

func TestEmitPermissiveSkipsWholeEntity(t *testing.T) {
	c := schoolCorpus()
	c.Documents = append(c.Documents, doc("broken", &spec.Entity{
		Fields: []*spec.Field{
			{TechnicalName: "id", Type: "uuid", PrimaryKey: true},
			{TechnicalName: "seq", Type: "serial"},
		},
		Indexes: []*spec.Index{{Columns: []string{"id"}}},
	}))

	res := emit(t, c, DefaultOptions())
	if len(res.Errors) != 1 || res.Errors[0].Table != "broken" {
		t.Fatalf("expected one entity error for broken, got %+v", res.Errors)
	}
	if strings.Contains(res.SQL(), "broken") {
		t.Errorf("a skipped entity must leave no trace in any phase:\n%s", res.SQL())
	}
}

func TestEmitStrictAborts(t *testing.T) {
	c := schoolCorpus()
	c.Documents = append(c.Documents, doc("broken", &spec.Entity{
		Fields: []*spec.Field{{TechnicalName: "seq", Type: "serial", PrimaryKey: true}},
	}))

	opts := DefaultOptions()
	opts.Strict = true
	if _, err := NewEmitter(opts, spec.BuildRegistry(c)).Emit(c); err == nil {
		t.Error("strict mode must abort on the malformed entity")
	}
}

func TestEmitMultiplePrimaryKeysRejected(t *testing.T) {
	c := &spec.Corpus{Documents: []*spec.Document{
		doc("siswa", &spec.Entity{
			Fields: []*spec.Field{
				{TechnicalName: "id", Type: "uuid", PrimaryKey: true},
				{TechnicalName: "kode", Type: "text", PrimaryKey: true},
			},
		}),
	}}

	res := emit(t, c, DefaultOptions())
	if len(res.Errors) != 1 {
		t.Fatalf("expected one entity error, got %+v", res.Errors)
	}
}

func TestRenderColumnGeneratedConflicts(t *testing.T) {
	e := NewEmitter(DefaultOptions(), spec.NewRegistry())

	tests := []struct {
		name  string
		field *spec.Field
	}{
		{"uuid_v4 with explicit default", &spec.Field{
			TechnicalName: "id", Type: "uuid", Generated: spec.GeneratedUUIDv4, Default: "now()",
		}},
		{"uuid_v4 on non-uuid column", &spec.Field{
			TechnicalName: "id", Type: "text", Generated: spec.GeneratedUUIDv4,
		}},
		{"identity on non-integer column", &spec.Field{
			TechnicalName: "id", Type: "uuid", Generated: spec.GeneratedIdentity,
		}},
		{"unknown generated mode", &spec.Field{
			TechnicalName: "id", Type: "uuid", Generated: "sequence",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.renderColumn("siswa", tt.field); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRenderColumnIdentitySuppressesDefault(t *testing.T) {
	e := NewEmitter(DefaultOptions(), spec.NewRegistry())
	got, err := e.renderColumn("siswa", &spec.Field{
		TechnicalName: "id", Type: "bigint", Generated: spec.GeneratedIdentity, Default: 7,
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "DEFAULT") {
		t.Errorf("identity columns must suppress the literal default: %q", got)
	}
}

func TestRenderDefault(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{true, "TRUE"},
		{false, "FALSE"},
		{42, "42"},
		{3.14, "3.14"},
		{"now()", "now()"},
		{"pg_catalog.gen_random_uuid()", "pg_catalog.gen_random_uuid()"},
		{"CURRENT_TIMESTAMP", "CURRENT_TIMESTAMP"},
		{"aktif", "'aktif'"},
		{"o'clock", "'o''clock'"},
	}

	for _, tt := range tests {
		if got := renderDefault(tt.in); got != tt.want {
			t.Errorf("renderDefault(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnsureCheckKeyword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"amount > 0", "CHECK (amount > 0)"},
		{"CHECK (amount > 0)", "CHECK (amount > 0)"},
		{"check (amount > 0)", "check (amount > 0)"},
	}
	for _, tt := range tests {
		if got := ensureCheckKeyword(tt.in); got != tt.want {
			t.Errorf("ensureCheckKeyword(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVerifyGeneratedOutput(t *testing.T) {
	res := emit(t, schoolCorpus(), DefaultOptions())
	if errs := Verify(res); len(errs) != 0 {
		t.Errorf("generated DDL must parse cleanly: %v", errs)
	}
}
