package dispatch

// send drains the outbound queue and writes each buffer to the socket in
// full. Buffers are never interleaved; partial writes are retried by the
// underlying net.Conn until the buffer is exhausted or the socket errors.
// The first I/O failure is latched as the transport outcome.
func (dispatcher *Dispatcher) send() {
	defer dispatcher.wg.Done()

	for {
		var frame []byte
		select {
		case frame = <-dispatcher.outboundQ:
		case <-dispatcher.latch.Done():
			return
		}

		for len(frame) > 0 {
			n, err := dispatcher.conn.Write(frame)
			if err != nil {
				dispatcher.logger.Debug("write failed, tearing the dispatcher down", "err", err)
				dispatcher.fatal(newTransportError(err))
				return
			}

			frame = frame[n:]
		}
	}
}
