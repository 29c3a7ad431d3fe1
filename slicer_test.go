package dispatch

import (
	"encoding/binary"
	"testing"

	"github.com/jeroenrinzema/psql-dispatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeFrames returns the wire encoding of the given messages.
func encodeFrames(messages []Message) []byte {
	var wire []byte
	for _, msg := range messages {
		header := make([]byte, headerSize)
		header[0] = byte(msg.Type)
		binary.BigEndian.PutUint32(header[1:], uint32(len(msg.Body)+4))
		wire = append(wire, header...)
		wire = append(wire, msg.Body...)
	}

	return wire
}

// collectSlicer returns a slicer appending every emitted message to the
// returned slice.
func collectSlicer() (*slicer, *[]Message) {
	var messages []Message
	slicer := newSlicer(func(msg *Message) bool {
		messages = append(messages, *msg)
		return true
	})

	return slicer, &messages
}

func TestSlicerRoundTrip(t *testing.T) {
	t.Parallel()

	frames := []Message{
		{Type: types.ServerParseComplete, Body: []byte{}},
		{Type: types.ServerCommandComplete, Body: []byte("SELECT 1\x00")},
		{Type: types.ServerReady, Body: []byte{'I'}},
		{Type: types.ServerDataRow, Body: []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 'A'}},
		{Type: types.ServerEmptyQuery, Body: []byte{}},
	}

	wire := encodeFrames(frames)
	chunkSizes := []int{1, 2, 3, 4, 5, 7, 11, 16, len(wire)}

	for _, size := range chunkSizes {
		slicer, messages := collectSlicer()

		for offset := 0; offset < len(wire); offset += size {
			end := offset + size
			if end > len(wire) {
				end = len(wire)
			}

			require.NoError(t, slicer.Feed(wire[offset:end]))
		}

		require.Len(t, *messages, len(frames), "chunk size %d", size)
		for index, msg := range *messages {
			assert.Equal(t, frames[index].Type, msg.Type, "chunk size %d", size)
			assert.Equal(t, frames[index].Body, msg.Body, "chunk size %d", size)
		}
	}
}

func TestSlicerZeroLengthPayload(t *testing.T) {
	t.Parallel()

	slicer, messages := collectSlicer()
	require.NoError(t, slicer.Feed([]byte{'I', 0x00, 0x00, 0x00, 0x04}))

	require.Len(t, *messages, 1)
	assert.Equal(t, types.ServerEmptyQuery, (*messages)[0].Type)
	assert.Empty(t, (*messages)[0].Body)
}

func TestSlicerHeaderSplitAcrossChunks(t *testing.T) {
	t.Parallel()

	slicer, messages := collectSlicer()

	wire := encodeFrames([]Message{{Type: types.ServerReady, Body: []byte{'I'}}})
	for _, chunk := range wire {
		require.NoError(t, slicer.Feed([]byte{chunk}))
	}

	require.Len(t, *messages, 1)
	assert.Equal(t, types.ServerReady, (*messages)[0].Type)
	assert.Equal(t, []byte{'I'}, (*messages)[0].Body)
}

func TestSlicerMalformedLength(t *testing.T) {
	t.Parallel()

	slicer, messages := collectSlicer()

	err := slicer.Feed([]byte{'Z', 0x00, 0x00, 0x00, 0x03})
	require.ErrorIs(t, err, ErrMalformedLength)
	assert.Empty(t, *messages)
}

func TestSlicerResidualAccounting(t *testing.T) {
	t.Parallel()

	slicer, messages := collectSlicer()

	// a chunk completing one message and leaving a partial header
	wire := encodeFrames([]Message{
		{Type: types.ServerBindComplete, Body: []byte{}},
		{Type: types.ServerCommandComplete, Body: []byte("UPDATE 5\x00")},
	})

	require.NoError(t, slicer.Feed(wire[:headerSize+2]))
	require.Len(t, *messages, 1)

	require.NoError(t, slicer.Feed(wire[headerSize+2:]))
	require.Len(t, *messages, 2)
	assert.Equal(t, []byte("UPDATE 5\x00"), (*messages)[1].Body)
}
