package dispatch

import (
	"log/slog"
)

// OptionFn options pattern used to define and set options for the given
// dispatcher.
type OptionFn func(*Dispatcher)

// Logger sets the logger used by all stages of the dispatcher.
func Logger(logger *slog.Logger) OptionFn {
	return func(dispatcher *Dispatcher) {
		dispatcher.logger = logger
	}
}

// ReadBufferSize sets the size of the receive buffer. Each socket read fills
// at most one buffer of the given size.
func ReadBufferSize(size int) OptionFn {
	return func(dispatcher *Dispatcher) {
		if size > 0 {
			dispatcher.readBufferSize = size
		}
	}
}

// QueueDepth sets the capacity of the submission and outbound queues. Submit
// applies backpressure once the pipeline holds the given number of requests.
func QueueDepth(depth int) OptionFn {
	return func(dispatcher *Dispatcher) {
		if depth > 0 {
			dispatcher.queueDepth = depth
		}
	}
}

// StrictProtocol controls the handling of unexpected message types received
// while no request is able to consume them. When strict (the default) such
// messages are reported to the unaffiliated sink as protocol errors, when
// lenient they are dropped with a debug log.
func StrictProtocol(strict bool) OptionFn {
	return func(dispatcher *Dispatcher) {
		dispatcher.strict = strict
	}
}

// UnaffiliatedSink sets the sink receiving server-initiated events which
// belong to no pending request, such as notifications and stray errors. The
// sink is invoked from the routing stage and must not block.
func UnaffiliatedSink(sink SinkFn) OptionFn {
	return func(dispatcher *Dispatcher) {
		dispatcher.sink = sink
	}
}
