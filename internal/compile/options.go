package compile

import "strings"

// Options is the configuration surface the compiler consumes. Every value
// is a simple scalar; flag parsing and environment handling belong to the
// command layer.
type Options struct {
	// DefaultSchema is used for every entity that does not override it
	DefaultSchema string
	// Owner, when set, emits ALTER ... OWNER TO for every object
	Owner string
	// WithDrop emits DROP TABLE IF EXISTS ... CASCADE before each table
	WithDrop bool
	// DefaultVarcharLength applies to varchar/char columns without a length
	DefaultVarcharLength int
	// Tablespace, when set, emits SET TABLESPACE for every table
	Tablespace string
	// Extensions are emitted as CREATE EXTENSION IF NOT EXISTS in phase 1
	Extensions []string
	// Strict turns structural violations and unknown types into errors
	// instead of skip-and-log warnings
	Strict bool
}

// DefaultOptions returns the compiler defaults
func DefaultOptions() Options {
	return Options{
		DefaultSchema:        "public",
		DefaultVarcharLength: 255,
	}
}

// uuidDefaultFunc picks the UUID generation function for uuid_v4 columns:
// uuid_generate_v4() when the uuid-ossp extension is configured, otherwise
// pgcrypto's gen_random_uuid().
func (o Options) uuidDefaultFunc() string {
	for _, ext := range o.Extensions {
		if strings.EqualFold(strings.TrimSpace(ext), "uuid-ossp") {
			return "uuid_generate_v4()"
		}
	}
	return "gen_random_uuid()"
}

// schemaFor resolves the schema of an entity-declared override
func (o Options) schemaFor(override string) string {
	if override != "" {
		return override
	}
	return o.DefaultSchema
}
