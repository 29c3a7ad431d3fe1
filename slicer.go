package dispatch

import (
	"encoding/binary"

	"github.com/jeroenrinzema/psql-dispatch/pkg/types"
)

// headerSize is the size of a message header: one type byte followed by a
// big-endian uint32 length which includes itself but not the type byte.
const headerSize = 5

// slicer accumulates the inbound byte stream into typed messages. Message
// boundaries may straddle arbitrary chunk boundaries: a single chunk could
// complete multiple messages and leave a partial header behind. Every byte
// fed into the slicer is accounted for by an emitted message or the
// residual header and payload buffers.
type slicer struct {
	header  []byte
	typed   types.ServerMessage
	payload []byte
	need    int
	emit    func(msg *Message) bool
}

func newSlicer(emit func(msg *Message) bool) *slicer {
	return &slicer{
		header: make([]byte, 0, headerSize),
		emit:   emit,
	}
}

// Feed consumes a single chunk, emitting every message it completes. Feed
// reports the malformed length protocol violation; any other outcome leaves
// the slicer ready for the next chunk.
func (slicer *slicer) Feed(chunk []byte) error {
	for len(chunk) > 0 {
		if slicer.need == 0 {
			take := headerSize - len(slicer.header)
			if take > len(chunk) {
				take = len(chunk)
			}

			slicer.header = append(slicer.header, chunk[:take]...)
			chunk = chunk[take:]

			if len(slicer.header) < headerSize {
				return nil
			}

			length := binary.BigEndian.Uint32(slicer.header[1:headerSize])
			if length < 4 {
				return ErrMalformedLength
			}

			slicer.typed = types.ServerMessage(slicer.header[0])
			slicer.need = int(length - 4)
			slicer.payload = make([]byte, 0, slicer.need)
			slicer.header = slicer.header[:0]

			if slicer.need == 0 && !slicer.flush() {
				return nil
			}

			continue
		}

		take := slicer.need - len(slicer.payload)
		if take > len(chunk) {
			take = len(chunk)
		}

		slicer.payload = append(slicer.payload, chunk[:take]...)
		chunk = chunk[take:]

		if len(slicer.payload) == slicer.need && !slicer.flush() {
			return nil
		}
	}

	return nil
}

// flush emits the completed message and resets the slicer to accumulate the
// next header.
func (slicer *slicer) flush() bool {
	msg := &Message{Type: slicer.typed, Body: slicer.payload}
	slicer.need = 0
	slicer.payload = nil
	return slicer.emit(msg)
}

// slice drains the inbound queue through the slicer state machine, pushing
// every completed message into the message queue in wire order. A malformed
// length tears the dispatcher down and is reported to the unaffiliated sink.
func (dispatcher *Dispatcher) slice() {
	defer dispatcher.wg.Done()
	defer close(dispatcher.messageQ)

	slicer := newSlicer(func(msg *Message) bool {
		dispatcher.logger.Debug("<- received message", "type", msg.Type.String())

		select {
		case dispatcher.messageQ <- msg:
			return true
		case <-dispatcher.latch.Done():
			return false
		}
	})

	for chunk := range dispatcher.inboundQ {
		err := slicer.Feed(chunk)
		if err != nil {
			err = newProtocolError("slicing inbound stream: %w", err)
			dispatcher.sink(Unaffiliated{Kind: UnaffiliatedProtocol, Err: err})
			dispatcher.fatal(err)
			return
		}
	}
}
