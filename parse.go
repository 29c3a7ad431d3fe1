package dispatch

import (
	"strconv"
	"strings"

	"github.com/jeroenrinzema/psql-dispatch/codes"
	psqlerr "github.com/jeroenrinzema/psql-dispatch/errors"
	"github.com/jeroenrinzema/psql-dispatch/pkg/buffer"
	"github.com/jeroenrinzema/psql-dispatch/pkg/types"
	"github.com/lib/pq/oid"
)

// MatchState represents the outcome of offering a single message to a
// message parser.
type MatchState uint8

const (
	// StateMatched indicates that the parser consumed the message.
	StateMatched MatchState = iota + 1
	// StateRejected indicates that the message type is not handled by the
	// parser. The message has not been consumed and could be offered to an
	// alternative branch.
	StateRejected
	// StateFailed indicates that the parser accepted the message type but
	// failed to interpret the payload.
	StateFailed
)

// Match is the result of offering a message to a ParseMessage.
type Match struct {
	State MatchState
	Value any
	Err   error
}

func matched(value any) Match {
	return Match{State: StateMatched, Value: value}
}

func rejected() Match {
	return Match{State: StateRejected}
}

func failed(err error) Match {
	return Match{State: StateFailed, Err: err}
}

// ParseMessage interprets a single backend message. Parsers reject messages
// of a type they do not handle, allowing an alternative branch to consume
// the same message instead.
type ParseMessage func(msg *Message) Match

// CommandComplete accepts a command complete message and returns the number
// of rows affected by the command as an int64. The count is parsed from the
// last integer token of the textual command tag, zero when absent.
func CommandComplete(msg *Message) Match {
	if msg.Type != types.ServerCommandComplete {
		return rejected()
	}

	reader := buffer.NewReader(msg.Body)
	tag, err := reader.GetString()
	if err != nil {
		return failed(err)
	}

	var affected int64
	tokens := strings.Fields(tag)
	for index := len(tokens) - 1; index >= 0; index-- {
		count, err := strconv.ParseInt(tokens[index], 10, 64)
		if err == nil {
			affected = count
			break
		}
	}

	return matched(affected)
}

// EmptyQuery accepts an empty query response, the reply to a query
// containing no statements.
func EmptyQuery(msg *Message) Match {
	if msg.Type != types.ServerEmptyQuery {
		return rejected()
	}

	return matched(struct{}{})
}

// ParseComplete accepts the acknowledgement of a parse message.
func ParseComplete(msg *Message) Match {
	if msg.Type != types.ServerParseComplete {
		return rejected()
	}

	return matched(struct{}{})
}

// BindComplete accepts the acknowledgement of a bind message.
func BindComplete(msg *Message) Match {
	if msg.Type != types.ServerBindComplete {
		return rejected()
	}

	return matched(struct{}{})
}

// CloseComplete accepts the acknowledgement of a close message.
func CloseComplete(msg *Message) Match {
	if msg.Type != types.ServerCloseComplete {
		return rejected()
	}

	return matched(struct{}{})
}

// NoData accepts a no data response to a describe message.
func NoData(msg *Message) Match {
	if msg.Type != types.ServerNoData {
		return rejected()
	}

	return matched(struct{}{})
}

// ReadyForQuery accepts a ready for query message, the end of a command
// cycle. The transaction status byte is returned but is not interpreted by
// the dispatcher.
func ReadyForQuery(msg *Message) Match {
	if msg.Type != types.ServerReady {
		return rejected()
	}

	reader := buffer.NewReader(msg.Body)
	status, err := reader.GetByte()
	if err != nil {
		return failed(err)
	}

	return matched(types.ServerStatus(status))
}

// RowFn interprets the raw field bytes of a single data row. NULL fields are
// presented as nil slices.
type RowFn func(fields [][]byte) (any, error)

// DataRow returns a parser accepting a single data row message. The raw
// field bytes are handed to the given row parser whose value becomes the
// value of the match.
func DataRow(row RowFn) ParseMessage {
	return func(msg *Message) Match {
		if msg.Type != types.ServerDataRow {
			return rejected()
		}

		reader := buffer.NewReader(msg.Body)
		count, err := reader.GetUint16()
		if err != nil {
			return failed(err)
		}

		fields := make([][]byte, count)
		for index := range fields {
			length, err := reader.GetInt32()
			if err != nil {
				return failed(err)
			}

			// a length of -1 represents a NULL value carrying no bytes
			if length < 0 {
				continue
			}

			fields[index], err = reader.GetBytes(int(length))
			if err != nil {
				return failed(err)
			}
		}

		value, err := row(fields)
		if err != nil {
			return failed(newParsingError(err))
		}

		return matched(value)
	}
}

// Parameter is a single runtime parameter reported by the backend.
type Parameter struct {
	Name  string
	Value string
}

// ParameterStatus accepts a parameter status message reporting the value of
// a backend runtime parameter.
func ParameterStatus(msg *Message) Match {
	if msg.Type != types.ServerParameterStatus {
		return rejected()
	}

	reader := buffer.NewReader(msg.Body)
	name, err := reader.GetString()
	if err != nil {
		return failed(err)
	}

	value, err := reader.GetString()
	if err != nil {
		return failed(err)
	}

	return matched(Parameter{Name: name, Value: value})
}

// KeyData carries the process id and secret key of the backend, used to
// cancel requests out-of-band.
type KeyData struct {
	PID       uint32
	SecretKey uint32
}

// BackendKeyData accepts a backend key data message.
func BackendKeyData(msg *Message) Match {
	if msg.Type != types.ServerBackendKeyData {
		return rejected()
	}

	reader := buffer.NewReader(msg.Body)
	pid, err := reader.GetUint32()
	if err != nil {
		return failed(err)
	}

	secret, err := reader.GetUint32()
	if err != nil {
		return failed(err)
	}

	return matched(KeyData{PID: pid, SecretKey: secret})
}

// ErrorResponse accepts an error response message and returns the decoded
// error fields as the value of the match.
func ErrorResponse(msg *Message) Match {
	if msg.Type != types.ServerErrorResponse {
		return rejected()
	}

	desc, err := decodeErrorFields(msg.Body)
	if err != nil {
		return failed(err)
	}

	return matched(desc)
}

// http://www.postgresql.org/docs/current/static/protocol-error-fields.html
const (
	errFieldSeverity       = 'S'
	errFieldSQLState       = 'C'
	errFieldMsgPrimary     = 'M'
	errFieldDetail         = 'D'
	errFieldHint           = 'H'
	errFieldConstraintName = 'n'
)

// decodeErrorFields interprets the field list of an error or notice
// response. Fields which are not surfaced inside the error description are
// read and discarded.
func decodeErrorFields(body []byte) (*psqlerr.Error, error) {
	reader := buffer.NewReader(body)
	desc := &psqlerr.Error{}

	for {
		field, err := reader.GetByte()
		if err != nil {
			return nil, err
		}

		// a zero byte terminates the field list
		if field == 0 {
			return desc, nil
		}

		value, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		switch field {
		case errFieldSeverity:
			desc.Severity = psqlerr.Severity(value)
		case errFieldSQLState:
			desc.Code = codes.Code(value)
		case errFieldMsgPrimary:
			desc.Message = value
		case errFieldDetail:
			desc.Detail = value
		case errFieldHint:
			desc.Hint = value
		case errFieldConstraintName:
			desc.ConstraintName = value
		}
	}
}

// Authentication accepts an authentication request message. Discriminators
// other than ok, cleartext password and MD5 password are not supported.
func Authentication(msg *Message) Match {
	if msg.Type != types.ServerAuth {
		return rejected()
	}

	reader := buffer.NewReader(msg.Body)
	code, err := reader.GetUint32()
	if err != nil {
		return failed(err)
	}

	request := AuthRequest{Kind: types.AuthCode(code)}
	switch request.Kind {
	case types.AuthOK, types.AuthCleartextPassword:
	case types.AuthMD5Password:
		salt, err := reader.GetBytes(4)
		if err != nil {
			return failed(err)
		}

		copy(request.Salt[:], salt)
	default:
		return failed(newProtocolError("unsupported authentication request: %d", code))
	}

	return matched(request)
}

// AuthRequest describes the authentication demanded by the backend. The salt
// is only set for MD5 password requests.
type AuthRequest struct {
	Kind types.AuthCode
	Salt [4]byte
}

// RowDescription accepts a row description message announcing the columns of
// the data rows to follow.
func RowDescription(msg *Message) Match {
	if msg.Type != types.ServerRowDescription {
		return rejected()
	}

	reader := buffer.NewReader(msg.Body)
	count, err := reader.GetUint16()
	if err != nil {
		return failed(err)
	}

	columns := make(Columns, count)
	for index := range columns {
		column := &columns[index]

		if column.Name, err = reader.GetString(); err != nil {
			return failed(err)
		}
		if column.Table, err = reader.GetInt32(); err != nil {
			return failed(err)
		}
		if column.AttrNo, err = reader.GetInt16(); err != nil {
			return failed(err)
		}

		typed, err := reader.GetUint32()
		if err != nil {
			return failed(err)
		}
		column.Oid = oid.Oid(typed)

		if column.Width, err = reader.GetInt16(); err != nil {
			return failed(err)
		}
		if column.TypeModifier, err = reader.GetInt32(); err != nil {
			return failed(err)
		}

		format, err := reader.GetInt16()
		if err != nil {
			return failed(err)
		}
		column.Format = FormatCode(format)
	}

	return matched(columns)
}

// ParameterDescription accepts a parameter description message announcing
// the types of the parameters of a described statement.
func ParameterDescription(msg *Message) Match {
	if msg.Type != types.ServerParameterDescription {
		return rejected()
	}

	reader := buffer.NewReader(msg.Body)
	count, err := reader.GetUint16()
	if err != nil {
		return failed(err)
	}

	parameters := make([]oid.Oid, count)
	for index := range parameters {
		typed, err := reader.GetUint32()
		if err != nil {
			return failed(err)
		}

		parameters[index] = oid.Oid(typed)
	}

	return matched(parameters)
}

// decodeNotification interprets the payload of a notification response.
func decodeNotification(body []byte) (*Notification, error) {
	reader := buffer.NewReader(body)
	pid, err := reader.GetUint32()
	if err != nil {
		return nil, err
	}

	channel, err := reader.GetString()
	if err != nil {
		return nil, err
	}

	payload, err := reader.GetString()
	if err != nil {
		return nil, err
	}

	return &Notification{PID: pid, Channel: channel, Payload: payload}, nil
}
