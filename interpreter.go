package dispatch

import (
	"github.com/jeroenrinzema/psql-dispatch/pkg/types"
)

// interpret is the routing core of the dispatcher. It holds a single-slot
// cursor over the head result processor and drives its stream across
// successive messages. Messages which belong to no pending request are
// delivered to the unaffiliated sink. Once the transport has failed, every
// remaining processor is resolved with the transport error.
func (dispatcher *Dispatcher) interpret() {
	defer dispatcher.wg.Done()

	var current *resultProcessor
	for msg := range dispatcher.messageQ {
		current = dispatcher.route(current, msg)
	}

	// the message queue only closes after a transport failure has been
	// latched: stop accepting submissions and fan the error out. The queue
	// is drained under the submission lock so no submission can slip behind
	// the drain and be left unresolved.
	dispatcher.submitMu.Lock()
	defer dispatcher.submitMu.Unlock()
	dispatcher.draining = true

	err := dispatcher.transportErr()
	if current != nil {
		current.deliver(nil, err)
	}

	for {
		select {
		case processor := <-dispatcher.processorQ:
			processor.deliver(nil, err)
		default:
			return
		}
	}
}

// route offers a single message to the current result processor, retiring
// and replacing the processor as its stream resolves. The returned
// processor is the cursor for the next message.
func (dispatcher *Dispatcher) route(current *resultProcessor, msg *Message) *resultProcessor {
	for {
		if current == nil {
			select {
			case current = <-dispatcher.processorQ:
			default:
				dispatcher.unaffiliated(msg)
				return nil
			}
		}

		// streams built solely from pure or raiseError resolve without
		// consuming any message
		if value, err, ok := resolveStream(current.stream); ok {
			current.deliver(value, err)
			current = nil
			continue
		}

		next, state, err := offerStream(current.stream, msg)
		switch state {
		case StateMatched:
			if value, err, ok := resolveStream(next); ok {
				current.deliver(value, err)
				return nil
			}

			current.stream = next
			return current

		case StateRejected:
			// an error response refusing the in-flight request resolves the
			// request itself, every other rejected message is unaffiliated
			if msg.Type == types.ServerErrorResponse {
				desc, derr := decodeErrorFields(msg.Body)
				if derr != nil {
					current.deliver(nil, newProtocolError("decoding error response: %w", derr))
					return nil
				}

				current.deliver(nil, desc)
				return nil
			}

			dispatcher.unaffiliated(msg)
			return current

		default:
			current.deliver(nil, err)
			return nil
		}
	}
}

// unaffiliated routes a message which belongs to no pending request to the
// sink. The message is never buffered beyond this point.
func (dispatcher *Dispatcher) unaffiliated(msg *Message) {
	switch msg.Type {
	case types.ServerNotificationResponse:
		notification, err := decodeNotification(msg.Body)
		if err != nil {
			dispatcher.sink(Unaffiliated{
				Kind: UnaffiliatedProtocol,
				Err:  newProtocolError("decoding notification response: %w", err),
			})
			return
		}

		dispatcher.sink(Unaffiliated{Kind: UnaffiliatedNotification, Notification: notification})

	case types.ServerErrorResponse:
		desc, err := decodeErrorFields(msg.Body)
		if err != nil {
			dispatcher.sink(Unaffiliated{
				Kind: UnaffiliatedProtocol,
				Err:  newProtocolError("decoding error response: %w", err),
			})
			return
		}

		dispatcher.sink(Unaffiliated{Kind: UnaffiliatedError, Err: desc})

	case types.ServerNoticeResponse:
		desc, err := decodeErrorFields(msg.Body)
		if err != nil {
			dispatcher.sink(Unaffiliated{
				Kind: UnaffiliatedProtocol,
				Err:  newProtocolError("decoding notice response: %w", err),
			})
			return
		}

		dispatcher.sink(Unaffiliated{Kind: UnaffiliatedNotice, Notice: desc})

	default:
		if !dispatcher.strict {
			dispatcher.logger.Debug("dropping unexpected message", "type", msg.Type.String())
			return
		}

		dispatcher.sink(Unaffiliated{
			Kind: UnaffiliatedProtocol,
			Err:  newProtocolError("unexpected message: type=%s", msg.Type),
		})
	}
}
