package signaling

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/classcast/internal/conference"
	"github.com/BioHazard786/classcast/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. State reports are small.
	maxMessageSize = 16 * 1024
)

// Client is a wrapper for a single websocket connection (a participant).
type Client struct {
	// Hub is the hub that manages this client.
	Hub *Hub

	// Conn is the websocket connection. Nil for in-process clients.
	Conn *websocket.Conn

	// Handle addresses this connection inside the hub. Never reused.
	Handle conference.Handle

	// Addr is the remote address, kept for logging.
	Addr string

	// ClientType is "cli" or "web" and selects the codec.
	ClientType string

	// Send is a buffered channel for all outbound messages. Only the hub
	// writes to it and only the hub closes it.
	Send chan *protocol.Message

	codec protocol.Codec
}

// NewClient allocates a client with a fresh handle. conn may be nil in tests.
func NewClient(hub *Hub, conn *websocket.Conn, clientType string) *Client {
	c := &Client{
		Hub:        hub,
		Conn:       conn,
		Handle:     conference.Handle(hub.nextHandle.Add(1)),
		ClientType: clientType,
		Send:       make(chan *protocol.Message, hub.opts.SendBuffer),
		codec:      protocol.CodecFor(clientType),
	}
	if conn != nil {
		c.Addr = conn.RemoteAddr().String()
	}
	return c
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	// When this function exits (e.g., connection closes), unregister the client
	defer func() {
		c.Hub.unregisterLater(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Debug("websocket read failed", "addr", c.Addr, "err", err)
			}
			return
		}

		ev, err := protocol.Decode(c.codec, data)
		if !c.Hub.deliver(&Inbound{Event: ev, Err: err, client: c}) {
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			data, err := c.codec.Marshal(*message)
			if err != nil {
				c.Hub.log.Error("encode outbound message", "type", message.Type, "err", err)
				continue
			}
			if err := c.Conn.WriteMessage(frame, data); err != nil {
				c.Hub.log.Debug("websocket write failed", "addr", c.Addr, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) logAttrs() []any {
	return []any{slog.Uint64("handle", uint64(c.Handle)), slog.String("addr", c.Addr), slog.String("client", c.ClientType)}
}
