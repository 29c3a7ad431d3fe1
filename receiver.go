package dispatch

import (
	"errors"
	"io"
)

// receive reads the socket into fixed-size buffers and pushes every
// non-empty read as an opaque chunk into the inbound queue. Each chunk is
// uniquely owned by the queue. EOF and any read failure are latched as the
// transport outcome, after which the inbound queue is closed so downstream
// stages drain and exit.
func (dispatcher *Dispatcher) receive() {
	defer dispatcher.wg.Done()
	defer close(dispatcher.inboundQ)

	for {
		chunk := make([]byte, dispatcher.readBufferSize)
		n, err := dispatcher.conn.Read(chunk)

		if n > 0 {
			select {
			case dispatcher.inboundQ <- chunk[:n]:
			case <-dispatcher.latch.Done():
				return
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrPeerClosed
			}

			dispatcher.logger.Debug("read failed, tearing the dispatcher down", "err", err)
			dispatcher.fatal(newTransportError(err))
			return
		}
	}
}
