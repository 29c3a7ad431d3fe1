package dispatch

import (
	"log/slog"
	"net"
	"sync"

	"github.com/jeroenrinzema/psql-dispatch/pkg/buffer"
)

// DefaultReadBufferSize is the size of the receive buffer whenever no
// explicit size has been configured.
const DefaultReadBufferSize = 8192

// DefaultQueueDepth is the capacity of the submission and outbound queues
// whenever no explicit depth has been configured. Submit applies
// backpressure once the pipeline is saturated.
const DefaultQueueDepth = 64

// EncodeFn appends the wire bytes of one or more frontend messages to the
// given writer. The produced bytes are written to the socket verbatim as a
// single batch, in submission order.
type EncodeFn func(writer *buffer.Writer) error

// resultProcessor pairs the result stream of a single submission with the
// future its outcome resolves.
type resultProcessor struct {
	stream  Stream
	deliver func(value any, err error)
}

// Dispatcher multiplexes concurrent requests onto a single backend
// connection. Submitted requests are pipelined: their encoded messages are
// written to the socket in submission order and their result streams consume
// the reply messages in the same order. Server-initiated events which belong
// to no request are delivered to the unaffiliated sink.
//
// The dispatcher assumes exclusive ownership of the given connection; it is
// torn down by the first transport failure or by Stop, resolving every
// pending and future submission with the transport error.
type Dispatcher struct {
	logger         *slog.Logger
	conn           net.Conn
	sink           SinkFn
	readBufferSize int
	queueDepth     int
	strict         bool

	latch *errorLatch
	wg    sync.WaitGroup

	submitMu sync.Mutex
	draining bool

	serializerQ chan EncodeFn
	outboundQ   chan []byte
	inboundQ    chan []byte
	messageQ    chan *Message
	processorQ  chan *resultProcessor
}

// NewDispatcher constructs a new dispatcher over the given open connection
// and starts its stages. The connection is expected to have completed any
// transport negotiation; the startup message exchange itself is submitted
// through the dispatcher.
func NewDispatcher(conn net.Conn, options ...OptionFn) *Dispatcher {
	dispatcher := &Dispatcher{
		logger:         slog.Default(),
		conn:           conn,
		readBufferSize: DefaultReadBufferSize,
		queueDepth:     DefaultQueueDepth,
		strict:         true,
		latch:          newErrorLatch(),
	}

	for _, option := range options {
		option(dispatcher)
	}

	if dispatcher.sink == nil {
		logger := dispatcher.logger
		dispatcher.sink = func(event Unaffiliated) {
			logger.Debug("unaffiliated event dropped, no sink configured", slog.Any("kind", event.Kind))
		}
	}

	dispatcher.serializerQ = make(chan EncodeFn, dispatcher.queueDepth)
	dispatcher.outboundQ = make(chan []byte, dispatcher.queueDepth)
	dispatcher.inboundQ = make(chan []byte, dispatcher.queueDepth)
	dispatcher.messageQ = make(chan *Message, dispatcher.queueDepth)
	dispatcher.processorQ = make(chan *resultProcessor, dispatcher.queueDepth)

	dispatcher.wg.Add(5)
	go dispatcher.serialize()
	go dispatcher.send()
	go dispatcher.receive()
	go dispatcher.slice()
	go dispatcher.interpret()

	return dispatcher
}

// Submit pairs the given encoder with a result stream and schedules both for
// execution. The encoder and the stream are enqueued under a single lock so
// the order of encoded batches on the wire always matches the order in which
// result streams consume replies. The returned future resolves once the
// stream completes, the request fails, or the transport is torn down.
//
// Submit blocks while the pipeline is saturated.
func (dispatcher *Dispatcher) Submit(encode EncodeFn, stream Stream) *Future {
	future := newFuture()
	processor := &resultProcessor{
		stream:  stream,
		deliver: future.resolve,
	}

	dispatcher.submitMu.Lock()
	defer dispatcher.submitMu.Unlock()

	if dispatcher.draining || dispatcher.latch.Err() != nil {
		future.resolve(nil, dispatcher.transportErr())
		return future
	}

	select {
	case dispatcher.serializerQ <- encode:
	case <-dispatcher.latch.Done():
		future.resolve(nil, dispatcher.transportErr())
		return future
	}

	select {
	case dispatcher.processorQ <- processor:
	case <-dispatcher.latch.Done():
		future.resolve(nil, dispatcher.transportErr())
	}

	return future
}

// Stop tears the dispatcher down: the connection is closed, all stages are
// joined and every outstanding future resolves with the transport error.
// Stop is idempotent and safe to call from any goroutine.
func (dispatcher *Dispatcher) Stop() error {
	dispatcher.fatal(newTransportError(ErrDispatcherStopped))
	dispatcher.wg.Wait()
	return nil
}

// fatal latches the given error as the transport outcome and closes the
// connection, unblocking the sender and receiver stages.
func (dispatcher *Dispatcher) fatal(err error) {
	dispatcher.latch.Set(err)
	_ = dispatcher.conn.Close()
}

// transportErr returns the latched transport error, falling back to the
// stopped sentinel in the window where the latch has not been set yet.
func (dispatcher *Dispatcher) transportErr() error {
	if err := dispatcher.latch.Err(); err != nil {
		return err
	}

	return newTransportError(ErrDispatcherStopped)
}
