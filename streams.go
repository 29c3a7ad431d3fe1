package dispatch

import (
	"errors"

	"github.com/jeroenrinzema/psql-dispatch/pkg/types"
)

// FoldFn merges a single parsed row into the accumulated result of a query.
type FoldFn func(acc any, row any) any

// Rows returns a stream consuming the data rows of a single command. Each
// row is interpreted by the given row parser and folded into the
// accumulator. The stream resolves to the final accumulator once the
// command complete or empty query terminator has been consumed.
func Rows(row RowFn, fold FoldFn, acc any) Stream {
	var loop func(acc any) Stream
	loop = func(acc any) Stream {
		return Alt(
			Bind(Expect(DataRow(row)), func(value any) Stream {
				return loop(fold(acc, value))
			}),
			Bind(Alt(Expect(CommandComplete), Expect(EmptyQuery)), func(any) Stream {
				return Pure(acc)
			}),
		)
	}

	return loop(acc)
}

// RowsAffected returns a stream resolving to the number of rows affected by
// a single command as an int64, zero for an empty query.
func RowsAffected() Stream {
	return Alt(
		Expect(CommandComplete),
		Bind(Expect(EmptyQuery), func(any) Stream {
			return Pure(int64(0))
		}),
	)
}

// QueryResult is the reply of a single simple query round trip.
type QueryResult struct {
	Columns  Columns
	Rows     [][]any
	Affected int64
}

// SimpleQuery returns a stream consuming the complete reply of a simple
// query: an optional row description followed by data rows, a bare command
// complete for queries returning no rows, or an empty query response. The
// trailing ready for query message is consumed as well, resolving the
// stream at the end of the command cycle.
func SimpleQuery() Stream {
	result := Alt(
		Bind(Expect(RowDescription), func(value any) Stream {
			columns := value.(Columns)
			decoder := NewRowDecoder(columns)

			fold := func(acc any, row any) any {
				return append(acc.([][]any), row.([]any))
			}

			return Bind(Rows(decoder.Row(), fold, [][]any{}), func(rows any) Stream {
				return Pure(&QueryResult{Columns: columns, Rows: rows.([][]any)})
			})
		}),
		Alt(
			Bind(Expect(CommandComplete), func(value any) Stream {
				return Pure(&QueryResult{Affected: value.(int64)})
			}),
			Bind(Expect(EmptyQuery), func(any) Stream {
				return Pure(&QueryResult{})
			}),
		),
	)

	return Bind(result, func(value any) Stream {
		return Bind(Expect(ReadyForQuery), func(any) Stream {
			return Pure(value)
		})
	})
}

// PasswordRequest is resolved by the authentication stream whenever the
// backend demands credentials before the session is established. The caller
// is expected to submit a password message paired with a fresh
// authentication stream.
type PasswordRequest struct {
	Kind types.AuthCode
	Salt [4]byte
}

// ServerConfig accumulates the session parameters reported by the backend
// during the startup phase.
type ServerConfig struct {
	Parameters       map[string]string
	IntegerDatetimes bool
	BackendPID       uint32
	SecretKey        uint32
}

// Authenticate returns a stream consuming the backend's reply to a startup
// or password message. When the backend demands credentials the stream
// resolves to a PasswordRequest, otherwise it continues into Params and
// resolves to the *ServerConfig of the established session.
func Authenticate() Stream {
	return Bind(Expect(Authentication), func(value any) Stream {
		request := value.(AuthRequest)
		if request.Kind != types.AuthOK {
			return Pure(PasswordRequest{Kind: request.Kind, Salt: request.Salt})
		}

		return Params()
	})
}

// Params returns a stream consuming the parameter status and backend key
// data messages reported during startup, resolving to the accumulated
// *ServerConfig once ready for query has been consumed. A backend which
// never reports the integer_datetimes parameter is rejected.
func Params() Stream {
	config := &ServerConfig{Parameters: map[string]string{}}

	var loop func(seen bool) Stream
	loop = func(seen bool) Stream {
		return Alt(
			Bind(Expect(ParameterStatus), func(value any) Stream {
				parameter := value.(Parameter)
				config.Parameters[parameter.Name] = parameter.Value
				if parameter.Name == "integer_datetimes" {
					config.IntegerDatetimes = parameter.Value == "on"
					return loop(true)
				}

				return loop(seen)
			}),
			Alt(
				Bind(Expect(BackendKeyData), func(value any) Stream {
					data := value.(KeyData)
					config.BackendPID = data.PID
					config.SecretKey = data.SecretKey
					return loop(seen)
				}),
				Bind(Expect(ReadyForQuery), func(any) Stream {
					if !seen {
						return RaiseError(errors.New("server did not report the integer_datetimes parameter"))
					}

					return Pure(config)
				}),
			),
		)
	}

	return loop(false)
}
