package dispatch

// Stream consumes a variable number of backend messages and produces a
// single result. Streams are built from single-message parsers using Pure,
// Bind, Alt and RaiseError and are driven one message at a time by the
// routing stage.
//
// Alternation is left biased and backtracks only while the left branch has
// not consumed a message: the moment the left branch matches its first
// message the alternative becomes unreachable and any subsequent failure of
// the branch resolves the whole stream.
type Stream interface {
	stream()
}

type pureStream struct {
	value any
}

type raiseStream struct {
	err error
}

type liftStream struct {
	parse ParseMessage
	next  func(value any) Stream
}

type altStream struct {
	left  Stream
	right Stream
}

func (pureStream) stream()  {}
func (raiseStream) stream() {}
func (liftStream) stream()  {}
func (altStream) stream()   {}

// Pure returns a stream which resolves to the given value without consuming
// any message.
func Pure(value any) Stream {
	return pureStream{value: value}
}

// RaiseError returns a stream which resolves to the given error without
// consuming any message.
func RaiseError(err error) Stream {
	return raiseStream{err: newParsingError(err)}
}

// Expect returns a stream consuming a single message using the given parser
// and resolving to the parsed value.
func Expect(parse ParseMessage) Stream {
	return liftStream{parse: parse, next: Pure}
}

// Bind sequences the given stream with a continuation receiving its result.
func Bind(stream Stream, next func(value any) Stream) Stream {
	switch typed := stream.(type) {
	case pureStream:
		return next(typed.value)
	case raiseStream:
		return typed
	case liftStream:
		inner := typed.next
		return liftStream{
			parse: typed.parse,
			next: func(value any) Stream {
				return Bind(inner(value), next)
			},
		}
	case altStream:
		return altStream{
			left:  Bind(typed.left, next),
			right: Bind(typed.right, next),
		}
	default:
		return stream
	}
}

// Alt returns the left biased alternation of the given streams. The right
// branch is offered a message only when the left branch rejects it before
// having consumed any message.
func Alt(left, right Stream) Stream {
	return altStream{left: left, right: right}
}

// resolveStream reduces a stream which requires no further input to its
// result. The returned flag reports whether the stream has resolved.
func resolveStream(stream Stream) (any, error, bool) {
	switch typed := stream.(type) {
	case pureStream:
		return typed.value, nil, true
	case raiseStream:
		return nil, typed.err, true
	case altStream:
		// an alternation resolves the moment its preferred branch does
		return resolveStream(typed.left)
	default:
		return nil, nil, false
	}
}

// offerStream feeds a single message to the given stream. On a match the
// returned stream is the continuation which replaces the offered one; an
// alternation node is collapsed into the matching branch, committing the
// stream to it.
func offerStream(stream Stream, msg *Message) (Stream, MatchState, error) {
	switch typed := stream.(type) {
	case liftStream:
		match := typed.parse(msg)
		switch match.State {
		case StateMatched:
			return typed.next(match.Value), StateMatched, nil
		case StateRejected:
			return stream, StateRejected, nil
		default:
			return nil, StateFailed, match.Err
		}
	case altStream:
		next, state, err := offerStream(typed.left, msg)
		if state == StateRejected {
			return offerStream(typed.right, msg)
		}

		return next, state, err
	default:
		// pure and raise streams are resolved before messages are offered
		return stream, StateRejected, nil
	}
}
