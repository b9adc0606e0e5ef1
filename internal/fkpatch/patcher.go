// Package fkpatch rewrites the declared foreign-key target of a field
// inside its source document. Documents are patched as yaml.Node trees so
// every unrelated key, nesting level, and document boundary survives the
// rewrite, and the operation is idempotent: a second application of the
// same patch changes nothing.
package fkpatch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/schemac/schemac/internal/logger"
	"github.com/schemac/schemac/internal/spec"
)

// Target is one (file, field, correct-target) patch instruction
type Target struct {
	File  string `yaml:"file"`
	Field string `yaml:"field"`
	Table string `yaml:"target"`
}

// Summary aggregates the outcome of one patch run
type Summary struct {
	FilesChanged  int
	FieldsPatched int
	// Unmatched are the targets whose field was found nowhere, not even
	// by the corpus-wide fallback scan.
	Unmatched []Target
}

// LoadPlan reads a YAML list of patch targets
func LoadPlan(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var targets []Target
	if err := yaml.Unmarshal(data, &targets); err != nil {
		return nil, fmt.Errorf("parse patch plan %s: %w", path, err)
	}
	for i, t := range targets {
		if t.Field == "" || t.Table == "" {
			return nil, fmt.Errorf("patch plan %s: entry %d needs both field and target", path, i+1)
		}
	}
	return targets, nil
}

// Apply runs every patch target against the corpus under root. Targets are
// first applied to their declared file; any target whose field was not
// found there falls back to a scan of the whole corpus, patching every
// document that contains the field. The same field name legitimately recurs
// across unrelated tables and all of them should point at the same
// canonical target.
func Apply(root string, targets []Target) (*Summary, error) {
	log := logger.Get()
	summary := &Summary{}

	var pending []Target
	for _, t := range targets {
		if t.File == "" {
			pending = append(pending, t)
			continue
		}
		path := t.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		if _, err := os.Stat(path); err != nil {
			log.Warn("patch target file missing, will scan corpus", "file", t.File, "field", t.Field)
			pending = append(pending, t)
			continue
		}
		changed, err := PatchFile(path, t.Field, t.Table)
		if err != nil {
			return nil, err
		}
		if changed > 0 {
			log.Info("patched", "file", path, "field", t.Field, "target", t.Table, "changes", changed)
			summary.FilesChanged++
			summary.FieldsPatched += changed
		} else {
			log.Warn("field not found or already correct, will scan corpus", "file", t.File, "field", t.Field)
			pending = append(pending, t)
		}
	}

	if len(pending) == 0 {
		return summary, nil
	}

	files, err := listDocuments(root)
	if err != nil {
		return nil, err
	}
	for _, t := range pending {
		found := 0
		for _, path := range files {
			changed, err := PatchFile(path, t.Field, t.Table)
			if err != nil {
				log.Warn("skipping unpatchable document", "file", path, "error", err)
				continue
			}
			if changed > 0 {
				log.Info("patched (fallback)", "file", path, "field", t.Field, "target", t.Table, "changes", changed)
				summary.FilesChanged++
				summary.FieldsPatched += changed
				found += changed
			}
		}
		if found == 0 {
			summary.Unmatched = append(summary.Unmatched, t)
		}
	}

	return summary, nil
}

// PatchFile patches every document of one file and persists it only when
// at least one field changed. The first write preserves an unmodified
// backup copy next to the file; an existing backup is never overwritten.
func PatchFile(path, field, refTable string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var docs []*yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("parse %s: %w", path, err)
		}
		docs = append(docs, &doc)
	}

	changed := 0
	for _, doc := range docs {
		changed += PatchNode(doc, field, refTable)
	}
	if changed == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return 0, fmt.Errorf("render %s: %w", path, err)
		}
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("render %s: %w", path, err)
	}

	if err := ensureBackup(path, data); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return 0, err
	}
	return changed, nil
}

// PatchNode recursively searches a document tree for every field-like
// mapping whose name or technical_name equals field, and sets its declared
// reference to refTable. Field-like nodes may appear at any depth: under
// fields, columns, schema wrappers, or arbitrary nesting. Returns the
// number of nodes actually changed; a node whose reference already equals
// refTable is left untouched.
func PatchNode(node *yaml.Node, field, refTable string) int {
	if node == nil {
		return 0
	}
	changed := 0
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			changed += PatchNode(child, field, refTable)
		}
	case yaml.MappingNode:
		if isField(node, field) && setReference(node, refTable) {
			changed++
		}
		// Values may hold nested field lists regardless of a match here
		for i := 1; i < len(node.Content); i += 2 {
			changed += PatchNode(node.Content[i], field, refTable)
		}
	}
	return changed
}

// isField reports whether a mapping looks like the definition of the named
// field: a name or technical_name key with the matching scalar value.
func isField(mapping *yaml.Node, field string) bool {
	for _, key := range []string{"technical_name", "name"} {
		if v := mappingValue(mapping, key); v != nil && v.Kind == yaml.ScalarNode && v.Value == field {
			return true
		}
	}
	return false
}

// setReference updates the node's declared FK target. The nested
// fk.ref_table form is preferred when present; otherwise the legacy bare
// ref_table attribute is updated or added. Reports whether a value changed.
func setReference(mapping *yaml.Node, refTable string) bool {
	if fk := mappingValue(mapping, "fk"); fk != nil && fk.Kind == yaml.MappingNode {
		return setScalar(fk, "ref_table", refTable)
	}
	return setScalar(mapping, "ref_table", refTable)
}

// setScalar sets mapping[key] = value, appending the key when absent.
// Reports whether the stored value changed.
func setScalar(mapping *yaml.Node, key, value string) bool {
	if v := mappingValue(mapping, key); v != nil {
		if v.Kind == yaml.ScalarNode && v.Value == value {
			return false
		}
		v.SetString(value)
		return true
	}
	var keyNode, valueNode yaml.Node
	keyNode.SetString(key)
	valueNode.SetString(value)
	mapping.Content = append(mapping.Content, &keyNode, &valueNode)
	return true
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// ensureBackup writes the pre-mutation content to <path>.bak once;
// first write wins so repeated patch runs keep the original.
func ensureBackup(path string, original []byte) error {
	bak := path + ".bak"
	if _, err := os.Stat(bak); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(bak, original, 0644)
}

// listDocuments returns every corpus document under root, sorted, skipping
// backup files.
func listDocuments(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".bak") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		for _, want := range spec.DefaultExtensions {
			if ext == want {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan corpus directory %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
