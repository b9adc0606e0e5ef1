package spec

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultExtensions are the file extensions scanned for corpus documents
var DefaultExtensions = []string{".yml", ".yaml"}

// ErrEmptyCorpus is returned when the corpus directory contains no documents.
// It is a corpus-level error, distinct from per-document parse failures.
var ErrEmptyCorpus = errors.New("no schema documents found")

// LoadDir reads every YAML document under dir (recursively) into a Corpus.
// Individual parse failures are recorded in Corpus.ParseErrors and do not
// stop the scan; a missing directory or an empty corpus is an error.
func LoadDir(dir string, exts []string) (*Corpus, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", dir)
	}

	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		for _, want := range exts {
			if ext == want {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan corpus directory %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmptyCorpus, dir)
	}

	// Sorted paths keep discovery order stable across runs, which in turn
	// keeps emitted SQL byte-identical for an unchanged corpus.
	sort.Strings(paths)

	corpus := &Corpus{}
	for _, path := range paths {
		docs, err := LoadFile(path)
		if err != nil {
			corpus.ParseErrors = append(corpus.ParseErrors, ParseError{File: path, Err: err})
			continue
		}
		corpus.Documents = append(corpus.Documents, docs...)
	}
	return corpus, nil
}

// LoadFile parses one YAML file into documents. Multi-document streams
// produce one Document per stream entry.
func LoadFile(path string) ([]*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var docs []*Document
	dec := yaml.NewDecoder(f)
	for {
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if raw == nil {
			continue
		}
		entity, err := decodeEntity(raw, stem)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		docs = append(docs, &Document{File: path, Stem: stem, Entity: entity})
	}
	return docs, nil
}

// decodeEntity turns one raw document mapping into an Entity. Documents in
// the legacy table/columns form are converted to the guided form first.
func decodeEntity(raw map[string]any, stem string) (*Entity, error) {
	if _, hasEntity := raw["entity"]; !hasEntity {
		if _, hasFields := raw["fields"]; !hasFields {
			if _, hasColumns := raw["columns"]; hasColumns {
				raw = convertLegacy(raw, stem)
			}
		}
	}

	e := &Entity{Kind: EntityKindTable}
	// A top-level schema key is either the target schema name or a nested
	// container of fields; only the string form names the schema.
	if s, ok := raw["schema"].(string); ok {
		e.Schema = strings.TrimSpace(s)
	}

	if block, ok := raw["entity"].(map[string]any); ok {
		e.Name = asString(block["name"])
		e.TechnicalName = asString(block["technical_name"])
		if s := asString(block["schema"]); s != "" {
			e.Schema = s
		}
		e.Comment = asString(block["comment"])
		if k := asString(block["kind"]); k != "" {
			e.Kind = EntityKind(strings.ToLower(k))
		}
	} else {
		// Bare documents may carry naming at the top level
		if n := asString(raw["technical_name"]); n != "" {
			e.TechnicalName = n
		} else if n := asString(raw["table"]); n != "" {
			e.TechnicalName = n
		}
		if n := asString(raw["name"]); n != "" {
			e.Name = n
		}
		if k := asString(raw["kind"]); k != "" {
			e.Kind = EntityKind(strings.ToLower(k))
		}
	}

	switch e.Kind {
	case EntityKindEnum:
		for _, v := range asSlice(raw["values"]) {
			e.Values = append(e.Values, asString(v))
		}
		if len(e.Values) == 0 {
			return nil, fmt.Errorf("enum %s: 'values' must be a non-empty list", e.TableName(stem))
		}
		return e, nil
	case EntityKindView, EntityKindMaterializedView:
		e.Definition = asString(raw["definition"])
		if strings.TrimSpace(e.Definition) == "" {
			return nil, fmt.Errorf("view %s: 'definition' is required", e.TableName(stem))
		}
	case EntityKindTable:
	default:
		return nil, fmt.Errorf("entity %s: unknown kind %q", e.TableName(stem), e.Kind)
	}

	for _, rawField := range fieldMappings(raw) {
		e.Fields = append(e.Fields, decodeField(rawField))
	}

	for _, rc := range asSlice(raw["constraints"]) {
		m, ok := rc.(map[string]any)
		if !ok {
			continue
		}
		name := asString(m["name"])
		expr := asString(m["expression"])
		if name == "" || expr == "" {
			continue
		}
		e.Constraints = append(e.Constraints, &CheckConstraint{Name: name, Expression: expr})
	}

	for _, ri := range asSlice(raw["indexes"]) {
		m, ok := ri.(map[string]any)
		if !ok {
			continue
		}
		idx := &Index{
			Name:   asString(m["name"]),
			Unique: asBool(m["unique"], false),
			Method: strings.ToLower(asString(m["method"])),
			Where:  asString(m["where"]),
		}
		for _, c := range asSlice(m["columns"]) {
			if s := asString(c); s != "" {
				idx.Columns = append(idx.Columns, s)
			}
		}
		if len(idx.Columns) == 0 {
			continue
		}
		e.Indexes = append(e.Indexes, idx)
	}

	return e, nil
}

// fieldMappings collects the field list from the recognized container keys:
// fields/columns at the root, or nested under a schema mapping.
func fieldMappings(raw map[string]any) []map[string]any {
	for _, key := range []string{"fields", "columns"} {
		if out := mappingSlice(raw[key]); len(out) > 0 {
			return out
		}
	}
	if schema, ok := raw["schema"].(map[string]any); ok {
		for _, key := range []string{"fields", "columns"} {
			if out := mappingSlice(schema[key]); len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func decodeField(raw map[string]any) *Field {
	f := &Field{
		Name:          asString(raw["name"]),
		TechnicalName: asString(raw["technical_name"]),
		Type:          asString(raw["type"]),
		Length:        asIntPtr(raw["length"]),
		Precision:     asIntPtr(raw["precision"]),
		Scale:         asIntPtr(raw["scale"]),
		Unique:        asBool(raw["unique"], false),
		Generated:     strings.ToLower(asString(raw["generated"])),
		Comment:       asString(raw["comment"]),
		Attrs:         raw,
	}

	f.PrimaryKey = asBool(raw["pk"], false) || asBool(raw["primary_key"], false)

	// not_null and nullable are complementary forms; not_null wins when
	// declared, nullable defaults to true. Contradictory declarations are
	// the validator's concern.
	if _, ok := raw["not_null"]; ok {
		f.NotNull = asBool(raw["not_null"], false)
	} else {
		f.NotNull = !asBool(raw["nullable"], true)
	}

	if v, ok := raw["default"]; ok && v != nil {
		f.Default = v
	}

	if fk, ok := raw["fk"].(map[string]any); ok {
		ref := asString(fk["ref_table"])
		if ref == "" {
			ref = asString(fk["table"])
		}
		f.ForeignKey = &ForeignKey{
			RefTable:   ref,
			RefField:   asString(fk["ref_field"]),
			OnDelete:   asString(fk["on_delete"]),
			OnUpdate:   asString(fk["on_update"]),
			Deferrable: asString(fk["deferrable"]),
		}
		if f.ForeignKey.RefField == "" {
			f.ForeignKey.RefField = "id"
		}
	}

	return f
}

// convertLegacy maps the pre-guided document form (top-level table/columns)
// onto the guided entity/fields form.
func convertLegacy(raw map[string]any, stem string) map[string]any {
	tech := asString(raw["table"])
	if tech == "" {
		tech = stem
	}
	entity := map[string]any{
		"technical_name": tech,
		"comment":        asString(raw["description"]),
	}

	var fields []any
	for _, rc := range asSlice(raw["columns"]) {
		col, ok := rc.(map[string]any)
		if !ok {
			continue
		}
		// Start from a copy of the raw column so alternate reference
		// attributes (relation, references, foreign_key, many2one, typed
		// refs) stay visible to the FK pattern matcher, then overlay the
		// renamed keys of the guided form.
		field := make(map[string]any, len(col)+2)
		for k, v := range col {
			field[k] = v
		}
		field["name"] = asString(col["label"])
		field["technical_name"] = asString(col["name"])
		field["type"] = strings.ToLower(asString(col["type"]))
		field["not_null"] = !asBool(col["nullable"], true)
		field["unique"] = asBool(col["unique"], false)
		field["pk"] = asBool(col["primary_key"], false)
		field["comment"] = asString(col["comment"])
		if field["name"] == "" {
			field["name"] = asString(col["name"])
		}
		if ref := asString(col["ref_table"]); ref != "" {
			refField := asString(col["ref_field"])
			if refField == "" {
				refField = "id"
			}
			field["fk"] = map[string]any{"ref_table": ref, "ref_field": refField}
			// The bare form is folded into the fk block; keeping both
			// would double-count one declaration as two candidates.
			delete(field, "ref_table")
			delete(field, "ref_field")
		}
		fields = append(fields, field)
	}

	converted := map[string]any{
		"entity": entity,
		"fields": fields,
	}
	if c, ok := raw["constraints"]; ok {
		converted["constraints"] = c
	}
	return converted
}

func mappingSlice(v any) []map[string]any {
	var out []map[string]any
	for _, item := range asSlice(v) {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func asBool(v any, def bool) bool {
	switch b := v.(type) {
	case nil:
		return def
	case bool:
		return b
	default:
		switch strings.ToLower(strings.TrimSpace(fmt.Sprint(v))) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
		return def
	}
}

func asIntPtr(v any) *int {
	switch n := v.(type) {
	case nil:
		return nil
	case int:
		return &n
	case int64:
		i := int(n)
		return &i
	case float64:
		i := int(n)
		return &i
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return &i
		}
	}
	return nil
}
