package buffer

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/jeroenrinzema/psql-dispatch/pkg/types"
)

// Writer provides a convenient way to write pgwire protocol messages
type Writer struct {
	io.Writer
	logger *slog.Logger
	frame  bytes.Buffer
	putbuf [64]byte // buffer used to construct messages which could be written to the writer frame buffer
	typed  bool
	err    error
}

// NewWriter constructs a new Postgres buffered message writer for the given io.Writer
func NewWriter(logger *slog.Logger, writer io.Writer) *Writer {
	return &Writer{
		logger: logger,
		Writer: writer,
	}
}

// Start resets the frame buffer and starts a new message with the given
// message type. The message type (byte) and reserved message length bytes
// (int32) are written to the underlaying bytes buffer.
func (writer *Writer) Start(t types.ClientMessage) {
	writer.reset()
	writer.typed = true
	writer.putbuf[0] = byte(t)
	writer.frame.Write(writer.putbuf[:5]) // message type + message length
}

// StartUntyped resets the frame buffer and starts a new message without a
// message type byte. Untyped messages are only exchanged before the protocol
// version has been negotiated, such as the startup message.
func (writer *Writer) StartUntyped() {
	writer.reset()
	writer.typed = false
	writer.frame.Write(writer.putbuf[:4]) // reserved message length
}

// AddByte writes the given byte to the writer frame. Errors thrown while
// writing to the frame could be read by calling writer.Error()
func (writer *Writer) AddByte(b byte) {
	if writer.err != nil {
		return
	}

	writer.err = writer.frame.WriteByte(b)
}

// AddInt16 writes the given int16 to the writer frame. Errors thrown while
// writing to the frame could be read by calling writer.Error()
func (writer *Writer) AddInt16(i int16) (size int) {
	if writer.err != nil {
		return size
	}

	x := make([]byte, 2)
	binary.BigEndian.PutUint16(x, uint16(i))
	size, writer.err = writer.frame.Write(x)
	return size
}

// AddInt32 writes the given int32 to the writer frame. Errors thrown while
// writing to the frame could be read by calling writer.Error()
func (writer *Writer) AddInt32(i int32) (size int) {
	if writer.err != nil {
		return size
	}

	x := make([]byte, 4)
	binary.BigEndian.PutUint32(x, uint32(i))
	size, writer.err = writer.frame.Write(x)
	return size
}

// AddBytes writes the given bytes to the writer frame. Errors thrown while
// writing to the frame could be read by calling writer.Error()
func (writer *Writer) AddBytes(b []byte) (size int) {
	if writer.err != nil {
		return size
	}

	size, writer.err = writer.frame.Write(b)
	return size
}

// AddString writes the given string to the writer frame. Errors thrown while
// writing to the frame could be read by calling writer.Error()
func (writer *Writer) AddString(s string) (size int) {
	if writer.err != nil {
		return size
	}

	size, writer.err = writer.frame.WriteString(s)
	return size
}

// AddNullTerminate writes a null terminate symbol to the end of the given data frame
func (writer *Writer) AddNullTerminate() {
	if writer.err != nil {
		return
	}

	writer.err = writer.frame.WriteByte(0)
}

func (writer *Writer) Error() error {
	return writer.err
}

// Bytes returns the written bytes to the active data frame
func (writer *Writer) Bytes() []byte {
	return writer.frame.Bytes()
}

// reset resets the data frame to be empty
func (writer *Writer) reset() {
	writer.frame.Reset()
	writer.err = nil
}

// End writes the prepared message to the underlaying writer and resets the
// frame buffer. The message length is computed over the frame, inclusive of
// the length field itself and exclusive of the message type byte.
func (writer *Writer) End() error {
	defer writer.reset()
	if writer.Error() != nil {
		return writer.Error()
	}

	frame := writer.frame.Bytes()
	if writer.typed {
		length := uint32(writer.frame.Len() - 1) // total message length minus the message type byte
		binary.BigEndian.PutUint32(frame[1:5], length)
	} else {
		binary.BigEndian.PutUint32(frame[0:4], uint32(writer.frame.Len()))
	}

	_, err := writer.Write(frame)

	if writer.typed {
		writer.logger.Debug("-> writing message", slog.String("type", types.ClientMessage(frame[0]).String()))
	}

	return err
}
