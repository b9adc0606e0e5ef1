package compile

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// VerifyError is one statement the PostgreSQL parser rejected
type VerifyError struct {
	Phase     int
	Statement string
	Err       error
}

func (e VerifyError) Error() string {
	return fmt.Sprintf("phase %d: %v in statement:\n%s", e.Phase+1, e.Err, e.Statement)
}

// Verify runs every emitted statement through the PostgreSQL parser and
// returns the statements it rejects, without touching a database.
func Verify(res *Result) []VerifyError {
	var errs []VerifyError
	for phase, stmts := range res.Phases {
		for _, stmt := range stmts {
			if _, err := pg_query.Parse(stmt); err != nil {
				errs = append(errs, VerifyError{Phase: phase, Statement: stmt, Err: err})
			}
		}
	}
	return errs
}
