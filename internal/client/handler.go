package client

import (
	"context"
	"errors"

	"github.com/BioHazard786/classcast/internal/protocol"
)

// ErrConnectionLost is returned when the server goes away mid-request.
var ErrConnectionLost = errors.New("connection to server lost")

// Handler routes incoming server messages to appropriate channels.
//
// Joined receives the room snapshot that answers a join, Error the message
// of every error event, Ended the id of a conference that ended. Every
// other message, ended included, goes to Events. All channels are closed
// once the connection drops.
type Handler struct {
	client *Client
	Joined chan *protocol.ConferenceData
	Events chan protocol.Message
	Error  chan string
	Ended  chan string
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client: client,
		Joined: make(chan *protocol.ConferenceData, 1),
		Events: make(chan protocol.Message, 64),
		Error:  make(chan string, 4),
		Ended:  make(chan string, 1),
	}
}

// Start begins listening to incoming messages and routing them. It returns
// when the connection drops.
func (h *Handler) Start() {
	defer h.close()

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case protocol.TypeConferenceData:
			if data, ok := msg.Payload.(*protocol.ConferenceData); ok {
				offer(h.Joined, data)
			}

		case protocol.TypeError:
			text := "unknown error from server"
			if p, ok := msg.Payload.(*protocol.ErrorPayload); ok {
				text = p.Message
			}
			offer(h.Error, text)

		case protocol.TypeConferenceEnded:
			if ref, ok := msg.Payload.(*protocol.ConfRef); ok {
				offer(h.Ended, ref.ConfID)
			}
			h.Events <- msg

		default:
			h.Events <- msg
		}
	}
}

// offer never blocks; a value nobody is waiting for is dropped.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func (h *Handler) close() {
	close(h.Joined)
	close(h.Events)
	close(h.Error)
	close(h.Ended)
}

// Join sends join-room and waits for the server's snapshot.
func (h *Handler) Join(ctx context.Context, req protocol.JoinRoom) (*protocol.ConferenceData, error) {
	if err := h.client.Send(protocol.TypeJoinRoom, req); err != nil {
		return nil, err
	}
	select {
	case data, ok := <-h.Joined:
		if !ok {
			return nil, ErrConnectionLost
		}
		return data, nil
	case msg, ok := <-h.Error:
		if !ok {
			return nil, ErrConnectionLost
		}
		return nil, errors.New(msg)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
