package compile

import (
	"fmt"
	"strings"

	"github.com/schemac/schemac/internal/spec"
)

// knownTypes are the type tokens the normalizer recognizes outright.
// Anything else is passed through verbatim in permissive mode and rejected
// in strict mode.
var knownTypes = map[string]bool{
	"integer": true, "bigint": true, "smallint": true,
	"uuid": true,
	"text": true, "varchar": true, "char": true,
	"date": true, "timestamp": true, "timestamptz": true, "time": true, "timetz": true,
	"boolean": true,
	"numeric": true, "decimal": true, "float": true, "double": true, "real": true,
	"json": true, "jsonb": true,
}

// enumTypePrefix marks a column type as a deferred enum reference
const enumTypePrefix = "enum:"

// TypeError identifies the offending field by table and column name
type TypeError struct {
	Table  string
	Column string
	Msg    string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Msg)
}

// NormalizeType maps a declared column type token plus its auxiliary
// attributes to the canonical SQL type string.
func NormalizeType(table string, f *spec.Field, reg *spec.Registry, opts Options) (string, error) {
	token := strings.ToLower(strings.TrimSpace(f.Type))
	column := f.TechName()

	if token == "" {
		return "", &TypeError{Table: table, Column: column, Msg: "'type' is required"}
	}

	// Identity and sequence columns must use generated: identity; an
	// implicit serial column hides the sequence and is always rejected.
	if token == "serial" {
		return "", &TypeError{Table: table, Column: column, Msg: "'serial' is not allowed, use generated: identity"}
	}

	if name, ok := strings.CutPrefix(token, enumTypePrefix); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return "", &TypeError{Table: table, Column: column, Msg: "enum reference is missing a type name"}
		}
		if enum, ok := reg.Enum(name); ok {
			return spec.QualifyName(opts.schemaFor(enum.Schema), name), nil
		}
		if opts.Strict {
			return "", &TypeError{Table: table, Column: column, Msg: fmt.Sprintf("enum type %q is not declared", name)}
		}
		// Permissive: assume the enum is defined externally
		return spec.QualifyName(opts.DefaultSchema, name), nil
	}

	switch token {
	case "varchar", "char":
		length := opts.DefaultVarcharLength
		if f.Length != nil {
			length = *f.Length
		}
		return fmt.Sprintf("%s(%d)", token, length), nil
	case "numeric", "decimal":
		if f.Precision != nil && f.Scale != nil {
			return fmt.Sprintf("%s(%d,%d)", token, *f.Precision, *f.Scale), nil
		}
		return token, nil
	}

	if knownTypes[token] {
		return token, nil
	}

	if opts.Strict {
		return "", &TypeError{Table: table, Column: column, Msg: fmt.Sprintf("unknown type %q", token)}
	}
	// Permissive fallback: pass the token through verbatim
	return token, nil
}
