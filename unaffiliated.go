package dispatch

import (
	psqlerr "github.com/jeroenrinzema/psql-dispatch/errors"
)

// Notification is an asynchronous notification delivered by the backend
// outside of any request, typically raised by a NOTIFY command.
type Notification struct {
	PID     uint32
	Channel string
	Payload string
}

// UnaffiliatedKind represents the type of event delivered to the
// unaffiliated sink.
type UnaffiliatedKind uint8

const (
	// UnaffiliatedNotification represents an asynchronous notification.
	UnaffiliatedNotification UnaffiliatedKind = iota + 1
	// UnaffiliatedNotice represents a notice response which no request
	// consumed, whether or not a request was pending.
	UnaffiliatedNotice
	// UnaffiliatedError represents a backend error received while no request
	// was pending.
	UnaffiliatedError
	// UnaffiliatedProtocol represents a protocol violation, such as an
	// unexpected message type while no request was pending.
	UnaffiliatedProtocol
)

// Unaffiliated is a server-initiated event which belongs to no pending
// request. The kind determines which of the remaining fields is set.
type Unaffiliated struct {
	Kind         UnaffiliatedKind
	Notification *Notification
	Notice       *psqlerr.Error
	Err          error
}

// SinkFn consumes unaffiliated events. The function is invoked synchronously
// from the routing stage and must not block.
type SinkFn func(Unaffiliated)
