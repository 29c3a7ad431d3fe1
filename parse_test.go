package dispatch

import (
	"encoding/hex"
	"strings"
	"testing"

	psqlerr "github.com/jeroenrinzema/psql-dispatch/errors"
	"github.com/jeroenrinzema/psql-dispatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeWire slices the given hex encoded wire bytes into messages.
func decodeWire(t *testing.T, encoded string) []Message {
	t.Helper()

	wire, err := hex.DecodeString(strings.ReplaceAll(encoded, " ", ""))
	require.NoError(t, err)

	slicer, messages := collectSlicer()
	require.NoError(t, slicer.Feed(wire))
	return *messages
}

func TestCommandCompleteAffectedRows(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		tag      string
		affected int64
	}{
		"select": {"SELECT 1", 1},
		"insert": {"INSERT 0 5", 5},
		"update": {"UPDATE 42", 42},
		"absent": {"CREATE TABLE", 0},
		"listen": {"LISTEN", 0},
		"copy":   {"COPY 1234", 1234},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			msg := &Message{Type: types.ServerCommandComplete, Body: append([]byte(test.tag), 0)}
			match := CommandComplete(msg)
			require.Equal(t, StateMatched, match.State)
			assert.Equal(t, test.affected, match.Value)
		})
	}
}

func TestCommandCompleteScenario(t *testing.T) {
	t.Parallel()

	// CommandComplete "SELECT 1" followed by ReadyForQuery idle
	messages := decodeWire(t, "43 00 00 00 0D 53 45 4C 45 43 54 20 31 00 5A 00 00 00 05 49")
	require.Len(t, messages, 2)

	match := CommandComplete(&messages[0])
	require.Equal(t, StateMatched, match.State)
	assert.Equal(t, int64(1), match.Value)

	match = ReadyForQuery(&messages[1])
	require.Equal(t, StateMatched, match.State)
	assert.Equal(t, types.ServerIdle, match.Value)
}

func TestEmptyQueryScenario(t *testing.T) {
	t.Parallel()

	messages := decodeWire(t, "49 00 00 00 04 5A 00 00 00 05 49")
	require.Len(t, messages, 2)

	match := EmptyQuery(&messages[0])
	require.Equal(t, StateMatched, match.State)
}

func TestDataRowSingleField(t *testing.T) {
	t.Parallel()

	messages := decodeWire(t, "44 00 00 00 0B 00 01 00 00 00 01 41 43 00 00 00 0D 53 45 4C 45 43 54 20 31 00")
	require.Len(t, messages, 2)

	row := func(fields [][]byte) (any, error) {
		require.Len(t, fields, 1)
		return string(fields[0]), nil
	}

	match := DataRow(row)(&messages[0])
	require.Equal(t, StateMatched, match.State)
	assert.Equal(t, "A", match.Value)
}

func TestDataRowNullField(t *testing.T) {
	t.Parallel()

	msg := &Message{
		Type: types.ServerDataRow,
		Body: []byte{0x00, 0x02, 0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x01, 'B'},
	}

	row := func(fields [][]byte) (any, error) {
		require.Len(t, fields, 2)
		assert.Nil(t, fields[0])
		assert.Equal(t, []byte{'B'}, fields[1])
		return nil, nil
	}

	match := DataRow(row)(msg)
	require.Equal(t, StateMatched, match.State)
}

func TestParameterStatus(t *testing.T) {
	t.Parallel()

	msg := &Message{
		Type: types.ServerParameterStatus,
		Body: []byte("integer_datetimes\x00on\x00"),
	}

	match := ParameterStatus(msg)
	require.Equal(t, StateMatched, match.State)
	assert.Equal(t, Parameter{Name: "integer_datetimes", Value: "on"}, match.Value)
}

func TestErrorResponseFields(t *testing.T) {
	t.Parallel()

	msg := &Message{
		Type: types.ServerErrorResponse,
		Body: []byte("SERROR\x00C28P01\x00Moops\x00\x00"),
	}

	match := ErrorResponse(msg)
	require.Equal(t, StateMatched, match.State)

	desc, ok := match.Value.(*psqlerr.Error)
	require.True(t, ok)
	assert.Equal(t, psqlerr.LevelError, desc.Severity)
	assert.Equal(t, "oops", desc.Message)
	assert.Equal(t, "28P01", string(desc.Code))
}

func TestAuthentication(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()

		messages := decodeWire(t, "52 00 00 00 08 00 00 00 00")
		match := Authentication(&messages[0])
		require.Equal(t, StateMatched, match.State)
		assert.Equal(t, types.AuthOK, match.Value.(AuthRequest).Kind)
	})

	t.Run("cleartext", func(t *testing.T) {
		t.Parallel()

		msg := &Message{Type: types.ServerAuth, Body: []byte{0x00, 0x00, 0x00, 0x03}}
		match := Authentication(msg)
		require.Equal(t, StateMatched, match.State)
		assert.Equal(t, types.AuthCleartextPassword, match.Value.(AuthRequest).Kind)
	})

	t.Run("md5", func(t *testing.T) {
		t.Parallel()

		msg := &Message{Type: types.ServerAuth, Body: []byte{0x00, 0x00, 0x00, 0x05, 1, 2, 3, 4}}
		match := Authentication(msg)
		require.Equal(t, StateMatched, match.State)

		request := match.Value.(AuthRequest)
		assert.Equal(t, types.AuthMD5Password, request.Kind)
		assert.Equal(t, [4]byte{1, 2, 3, 4}, request.Salt)
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()

		msg := &Message{Type: types.ServerAuth, Body: []byte{0x00, 0x00, 0x00, 0x0A}}
		match := Authentication(msg)
		require.Equal(t, StateFailed, match.State)
		assert.True(t, IsProtocolErr(match.Err))
	})
}

func TestParsersRejectForeignTypes(t *testing.T) {
	t.Parallel()

	msg := &Message{Type: types.ServerNoticeResponse, Body: []byte{}}

	parsers := map[string]ParseMessage{
		"commandComplete": CommandComplete,
		"emptyQuery":      EmptyQuery,
		"parseComplete":   ParseComplete,
		"bindComplete":    BindComplete,
		"readyForQuery":   ReadyForQuery,
		"dataRow":         DataRow(func([][]byte) (any, error) { return nil, nil }),
		"parameterStatus": ParameterStatus,
		"error":           ErrorResponse,
		"authentication":  Authentication,
		"rowDescription":  RowDescription,
		"backendKeyData":  BackendKeyData,
		"paramDescribe":   ParameterDescription,
	}

	for name, parse := range parsers {
		assert.Equal(t, StateRejected, parse(msg).State, name)
	}
}

func TestNotificationScenario(t *testing.T) {
	t.Parallel()

	messages := decodeWire(t, "41 00 00 00 0C 00 00 00 01 63 68 00 00")
	require.Len(t, messages, 1)

	notification, err := decodeNotification(messages[0].Body)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), notification.PID)
	assert.Equal(t, "ch", notification.Channel)
	assert.Equal(t, "", notification.Payload)
}

func TestRowDescription(t *testing.T) {
	t.Parallel()

	body := []byte{0x00, 0x01}
	body = append(body, []byte("id\x00")...)
	body = append(body,
		0x00, 0x00, 0x00, 0x00, // table id
		0x00, 0x00, // attribute number
		0x00, 0x00, 0x00, 0x17, // int4 oid
		0x00, 0x04, // width
		0xFF, 0xFF, 0xFF, 0xFF, // type modifier
		0x00, 0x00, // text format
	)

	msg := &Message{Type: types.ServerRowDescription, Body: body}
	match := RowDescription(msg)
	require.Equal(t, StateMatched, match.State)

	columns := match.Value.(Columns)
	require.Len(t, columns, 1)
	assert.Equal(t, "id", columns[0].Name)
	assert.Equal(t, int16(4), columns[0].Width)
	assert.Equal(t, TextFormat, columns[0].Format)
}
