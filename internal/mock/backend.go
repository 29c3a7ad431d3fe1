// Package mock provides a low level scripted Postgres backend allowing a
// test to write raw server messages and read the client messages produced by
// a dispatcher. This implementation is mainly used for mocking/testing
// purposes.
package mock

import (
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/jeroenrinzema/psql-dispatch/pkg/buffer"
	"github.com/jeroenrinzema/psql-dispatch/pkg/types"
	"github.com/neilotoole/slogt"
)

// NewBackend constructs a new scripted backend over the given connection.
func NewBackend(t *testing.T, conn net.Conn) *Backend {
	return &Backend{
		conn:   conn,
		writer: buffer.NewWriter(slogt.New(t), conn),
	}
}

// Backend represents a scripted Postgres backend writing server messages
// over the underlaying connection.
type Backend struct {
	conn   net.Conn
	writer *buffer.Writer
}

// start starts a new server message inside the writer frame. The writer is
// client oriented; the server message type is presented through a cast.
func (backend *Backend) start(t types.ServerMessage) {
	backend.writer.Start(types.ClientMessage(t))
}

func (backend *Backend) end(t *testing.T) {
	t.Helper()

	err := backend.writer.End()
	if err != nil {
		t.Fatal(err)
	}
}

// Raw writes the given bytes to the connection verbatim, allowing a test to
// present arbitrary or malformed frames.
func (backend *Backend) Raw(t *testing.T, chunk []byte) {
	t.Helper()

	_, err := backend.conn.Write(chunk)
	if err != nil {
		t.Fatal(err)
	}
}

// AuthOK announces that the connection has been authenticated.
func (backend *Backend) AuthOK(t *testing.T) {
	backend.start(types.ServerAuth)
	backend.writer.AddInt32(int32(types.AuthOK))
	backend.end(t)
}

// AuthCleartext requests the password in clear text.
func (backend *Backend) AuthCleartext(t *testing.T) {
	backend.start(types.ServerAuth)
	backend.writer.AddInt32(int32(types.AuthCleartextPassword))
	backend.end(t)
}

// AuthMD5 requests the password hashed using MD5 and the given salt.
func (backend *Backend) AuthMD5(t *testing.T, salt [4]byte) {
	backend.start(types.ServerAuth)
	backend.writer.AddInt32(int32(types.AuthMD5Password))
	backend.writer.AddBytes(salt[:])
	backend.end(t)
}

// Parameter reports the value of a backend runtime parameter.
func (backend *Backend) Parameter(t *testing.T, name, value string) {
	backend.start(types.ServerParameterStatus)
	backend.writer.AddString(name)
	backend.writer.AddNullTerminate()
	backend.writer.AddString(value)
	backend.writer.AddNullTerminate()
	backend.end(t)
}

// KeyData presents the backend process id and secret key.
func (backend *Backend) KeyData(t *testing.T, pid, secret int32) {
	backend.start(types.ServerBackendKeyData)
	backend.writer.AddInt32(pid)
	backend.writer.AddInt32(secret)
	backend.end(t)
}

// ReadyForQuery announces the end of a command cycle.
func (backend *Backend) ReadyForQuery(t *testing.T) {
	backend.start(types.ServerReady)
	backend.writer.AddByte(byte(types.ServerIdle))
	backend.end(t)
}

// RowDescription announces the given text format columns using the unknown
// type oid, leaving the raw field bytes untouched by decoders.
func (backend *Backend) RowDescription(t *testing.T, columns ...string) {
	backend.start(types.ServerRowDescription)
	backend.writer.AddInt16(int16(len(columns)))

	for _, column := range columns {
		backend.writer.AddString(column)
		backend.writer.AddNullTerminate()
		backend.writer.AddInt32(0) // table id
		backend.writer.AddInt16(0) // column attribute number
		backend.writer.AddInt32(0) // unknown type oid
		backend.writer.AddInt16(-1)
		backend.writer.AddInt32(-1)
		backend.writer.AddInt16(0) // text format
	}

	backend.end(t)
}

// DataRow writes a single data row containing the given text fields. A nil
// field is presented as a NULL value.
func (backend *Backend) DataRow(t *testing.T, fields ...[]byte) {
	backend.start(types.ServerDataRow)
	backend.writer.AddInt16(int16(len(fields)))

	for _, field := range fields {
		if field == nil {
			backend.writer.AddInt32(-1)
			continue
		}

		backend.writer.AddInt32(int32(len(field)))
		backend.writer.AddBytes(field)
	}

	backend.end(t)
}

// CommandComplete announces the completion of a command using the given tag.
func (backend *Backend) CommandComplete(t *testing.T, tag string) {
	backend.start(types.ServerCommandComplete)
	backend.writer.AddString(tag)
	backend.writer.AddNullTerminate()
	backend.end(t)
}

// EmptyQuery announces the completion of a query containing no statements.
func (backend *Backend) EmptyQuery(t *testing.T) {
	backend.start(types.ServerEmptyQuery)
	backend.end(t)
}

// Error writes an error response carrying the given severity, code and
// primary message.
func (backend *Backend) Error(t *testing.T, severity, code, message string) {
	backend.fields(t, types.ServerErrorResponse, severity, code, message)
}

// Notice writes a notice response carrying the given severity, code and
// primary message.
func (backend *Backend) Notice(t *testing.T, severity, code, message string) {
	backend.fields(t, types.ServerNoticeResponse, severity, code, message)
}

func (backend *Backend) fields(t *testing.T, typed types.ServerMessage, severity, code, message string) {
	backend.start(typed)
	backend.writer.AddByte('S')
	backend.writer.AddString(severity)
	backend.writer.AddNullTerminate()
	backend.writer.AddByte('C')
	backend.writer.AddString(code)
	backend.writer.AddNullTerminate()
	backend.writer.AddByte('M')
	backend.writer.AddString(message)
	backend.writer.AddNullTerminate()
	backend.writer.AddNullTerminate()
	backend.end(t)
}

// Notification writes an asynchronous notification for the given channel.
func (backend *Backend) Notification(t *testing.T, pid int32, channel, payload string) {
	backend.start(types.ServerNotificationResponse)
	backend.writer.AddInt32(pid)
	backend.writer.AddString(channel)
	backend.writer.AddNullTerminate()
	backend.writer.AddString(payload)
	backend.writer.AddNullTerminate()
	backend.end(t)
}

// ReadMessage reads a single typed client message of the connection,
// returning its type and payload.
func (backend *Backend) ReadMessage(t *testing.T) (types.ClientMessage, []byte) {
	t.Helper()

	var header [5]byte
	_, err := io.ReadFull(backend.conn, header[:])
	if err != nil {
		t.Fatal(err)
	}

	length := binary.BigEndian.Uint32(header[1:5])
	payload := make([]byte, length-4)
	_, err = io.ReadFull(backend.conn, payload)
	if err != nil {
		t.Fatal(err)
	}

	return types.ClientMessage(header[0]), payload
}

// ReadStartup reads the untyped startup message of the connection, returning
// the presented connection parameters.
func (backend *Backend) ReadStartup(t *testing.T) map[string]string {
	t.Helper()

	var header [4]byte
	_, err := io.ReadFull(backend.conn, header[:])
	if err != nil {
		t.Fatal(err)
	}

	length := binary.BigEndian.Uint32(header[:])
	payload := make([]byte, length-4)
	_, err = io.ReadFull(backend.conn, payload)
	if err != nil {
		t.Fatal(err)
	}

	version := types.Version(binary.BigEndian.Uint32(payload[:4]))
	if version != types.Version30 {
		t.Fatalf("unexpected protocol version: %d", version)
	}

	parameters := map[string]string{}
	reader := buffer.NewReader(payload[4:])
	for reader.Remaining() > 1 {
		key, err := reader.GetString()
		if err != nil {
			t.Fatal(err)
		}

		value, err := reader.GetString()
		if err != nil {
			t.Fatal(err)
		}

		parameters[key] = value
	}

	return parameters
}

// Drain discards all client messages until the connection is closed,
// unblocking dispatcher writes a test is not interested in.
func (backend *Backend) Drain() {
	_, _ = io.Copy(io.Discard, backend.conn)
}

// Close closes the backend side of the connection.
func (backend *Backend) Close(t *testing.T) {
	t.Helper()

	err := backend.conn.Close()
	if err != nil {
		t.Fatal(err)
	}
}
