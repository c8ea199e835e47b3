package signaling

import "github.com/BioHazard786/classcast/internal/protocol"

// Inbound is one frame read from a client, already decoded by the client's
// read pump. Err is set when the frame did not match any known message.
type Inbound struct {
	Event protocol.Event
	Err   error

	// client is the client that sent the message.
	// It's used internally by the Hub and not sent over the wire.
	client *Client
}

func outbound(typ string, payload any) *protocol.Message {
	return &protocol.Message{Type: typ, Payload: payload}
}
