package errors

import (
	"fmt"

	"github.com/jeroenrinzema/psql-dispatch/codes"
)

// Error contains the Postgres wire protocol error fields decoded from an
// error or notice response. See
// https://www.postgresql.org/docs/current/static/protocol-error-fields.html
// for a list of all Postgres error fields, most of which are optional.
type Error struct {
	Code           codes.Code
	Message        string
	Detail         string
	Hint           string
	Severity       Severity
	ConstraintName string
}

// Error implements the error interface using the severity, primary message
// and SQLSTATE code of the received response.
func (err *Error) Error() string {
	return fmt.Sprintf("%s: %s (SQLSTATE %s)", DefaultSeverity(err.Severity), err.Message, err.Code)
}

// Flatten returns a flattened error holding the code and severity annotations
// of the given error chain. Backend errors are returned as-is.
func Flatten(err error) Error {
	if err == nil {
		return Error{
			Code:     codes.Internal,
			Message:  "unknown error, an internal process attempted to throw an error",
			Severity: LevelFatal,
		}
	}

	if desc, ok := err.(*Error); ok {
		return *desc
	}

	return Error{
		Code:     GetCode(err),
		Message:  err.Error(),
		Severity: DefaultSeverity(GetSeverity(err)),
	}
}
