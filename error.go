package dispatch

import (
	"errors"
	"fmt"

	"github.com/jeroenrinzema/psql-dispatch/codes"
	psqlerr "github.com/jeroenrinzema/psql-dispatch/errors"
)

// ErrDispatcherStopped is the transport outcome observed by all pending and
// future submissions once the dispatcher has been stopped by the caller.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// ErrPeerClosed is latched when the backend closes the connection without a
// preceding error.
var ErrPeerClosed = errors.New("connection closed by peer")

// ErrMalformedLength is latched when a message header carries a length below
// the minimum of 4 bytes.
var ErrMalformedLength = errors.New("malformed message length")

// newTransportError decorates the given I/O failure as a fatal connection
// error which is fanned out to every pending and future submission.
func newTransportError(err error) error {
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.ConnectionFailure), psqlerr.LevelFatal)
}

// newProtocolError constructs a fatal protocol violation.
func newProtocolError(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.ProtocolViolation), psqlerr.LevelFatal)
}

// newParsingError constructs a request-scoped error raised by a result
// stream. The error resolves only the future of the offending request.
func newParsingError(err error) error {
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.DataCorrupted), psqlerr.LevelError)
}

// IsTransportErr reports whether the given error originated from the
// transport rather than a single request.
func IsTransportErr(err error) bool {
	return psqlerr.GetCode(err) == codes.ConnectionFailure
}

// IsProtocolErr reports whether the given error represents a violation of
// the wire protocol.
func IsProtocolErr(err error) bool {
	return psqlerr.GetCode(err) == codes.ProtocolViolation
}
