package dispatch

import (
	"github.com/jeroenrinzema/psql-dispatch/pkg/types"
)

// Message is a single tagged, length-prefixed backend wire message. The
// framing (length field) has been removed by the time a message is produced,
// leaving the message type and its payload.
type Message struct {
	Type types.ServerMessage
	Body []byte
}
