package codes

// Code represents a Postgres SQLSTATE error code.
type Code string

// http://www.postgresql.org/docs/current/static/errcodes-appendix.html.
//
// Only a subset of the SQLSTATE classes is defined below. Backend errors carry their code verbatim from the wire and are not limited
// to this list.
var (
	// Section: Class 00 - Successful Completion
	SuccessfulCompletion Code = "00000"
	// Section: Class 01 - Warning
	Warning Code = "01000"
	// Section: Class 08 - Connection Exception
	ConnectionException                     Code = "08000"
	ConnectionDoesNotExist                  Code = "08003"
	ConnectionFailure                       Code = "08006"
	SQLclientUnableToEstablishSQLconnection Code = "08001"
	ProtocolViolation                       Code = "08P01"
	// Section: Class 0A - Feature Not Supported
	FeatureNotSupported Code = "0A000"
	// Section: Class 22 - Data Exception
	DataException  Code = "22000"
	DataCorrupted  Code = "XX001" // Class XX - Internal Error
	BadCopyFormat  Code = "22P04"
	InvalidBinary  Code = "22P03"
	InvalidText    Code = "22P02"
	// Section: Class 28 - Invalid Authorization Specification
	InvalidAuthorizationSpecification Code = "28000"
	InvalidPassword                   Code = "28P01"
	// Section: Class 53 - Insufficient Resources
	InsufficientResources Code = "53000"
	// Section: Class 54 - Program Limit Exceeded
	ProgramLimitExceeded Code = "54000"
	// Section: Class 57 - Operator Intervention
	OperatorIntervention Code = "57000"
	AdminShutdown        Code = "57P01"
	// Section: Class 58 - System Error
	SystemError Code = "58000"
	// Section: Class XX - Internal Error
	Internal Code = "XX000"

	// Uncategorized is set whenever an error could not be categorized into
	// one of the classes above.
	Uncategorized Code = "XXUUU"
)
