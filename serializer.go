package dispatch

import (
	"bytes"

	"github.com/jeroenrinzema/psql-dispatch/pkg/buffer"
)

// serialize executes encoder jobs into contiguous byte buffers, one buffer
// per submission. Jobs are never coalesced: each submission stays a single
// batch on the wire, preserving the correspondence between submissions and
// reply streams. An encoder failure poisons the pipeline as the reply
// correspondence could no longer be guaranteed.
func (dispatcher *Dispatcher) serialize() {
	defer dispatcher.wg.Done()

	for {
		var encode EncodeFn
		select {
		case encode = <-dispatcher.serializerQ:
		case <-dispatcher.latch.Done():
			return
		}

		var frame bytes.Buffer
		writer := buffer.NewWriter(dispatcher.logger, &frame)

		err := encode(writer)
		if err == nil {
			err = writer.Error()
		}

		if err != nil {
			dispatcher.logger.Error("failed to encode a submitted request", "err", err)
			dispatcher.fatal(newProtocolError("encoding submitted request: %w", err))
			return
		}

		select {
		case dispatcher.outboundQ <- frame.Bytes():
		case <-dispatcher.latch.Done():
			return
		}
	}
}
