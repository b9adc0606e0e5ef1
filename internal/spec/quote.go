package spec

import "strings"

// QuoteIdentifier renders a SQL identifier in its quoted form. Generated
// DDL always quotes identifiers so that reserved words, mixed case, and
// punctuation in corpus names can never change the meaning of a statement.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifyName renders a schema-qualified, quoted object name
func QualifyName(schema, name string) string {
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(name)
}
