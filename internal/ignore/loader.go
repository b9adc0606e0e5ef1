package ignore

import (
	"os"
	"path"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/schemac/schemac/internal/spec"
)

const (
	// IgnoreFileName is the default name of the ignore file, looked up in
	// the corpus root
	IgnoreFileName = ".schemacignore"
)

// Config holds the glob patterns parsed from a .schemacignore file.
// Document patterns match the file path relative to the corpus root,
// table patterns match the entity's table name.
type Config struct {
	Documents []string
	Tables    []string
}

// tomlConfig represents the TOML structure of the .schemacignore file
type tomlConfig struct {
	Documents patternSection `toml:"documents,omitempty"`
	Tables    patternSection `toml:"tables,omitempty"`
}

type patternSection struct {
	Patterns []string `toml:"patterns,omitempty"`
}

// Load reads the ignore file from the corpus root.
// Returns nil if the file doesn't exist (ignore functionality is optional)
func Load(root string) (*Config, error) {
	return LoadFromPath(filepath.Join(root, IgnoreFileName))
}

// LoadFromPath loads an ignore file from the specified path.
// Returns nil if the file doesn't exist (ignore functionality is optional)
func LoadFromPath(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var tc tomlConfig
	if _, err := toml.DecodeFile(filePath, &tc); err != nil {
		return nil, err
	}

	return &Config{
		Documents: tc.Documents.Patterns,
		Tables:    tc.Tables.Patterns,
	}, nil
}

// Apply removes every document matching the config from the corpus, in
// place, and returns how many were dropped. Document patterns are matched
// against the path relative to root. A nil config drops nothing.
func (c *Config) Apply(corpus *spec.Corpus, root string) int {
	if c == nil || (len(c.Documents) == 0 && len(c.Tables) == 0) {
		return 0
	}

	kept := corpus.Documents[:0]
	dropped := 0
	for _, doc := range corpus.Documents {
		if c.matches(doc, root) {
			dropped++
			continue
		}
		kept = append(kept, doc)
	}
	corpus.Documents = kept
	return dropped
}

func (c *Config) matches(doc *spec.Document, root string) bool {
	rel := doc.File
	if r, err := filepath.Rel(root, doc.File); err == nil {
		rel = r
	}
	for _, p := range c.Documents {
		if ok, _ := path.Match(p, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	for _, p := range c.Tables {
		if ok, _ := path.Match(p, doc.TableName()); ok {
			return true
		}
	}
	return false
}
