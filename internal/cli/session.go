package cli

import (
	"context"

	"github.com/BioHazard786/classcast/internal/client"
	"github.com/BioHazard786/classcast/internal/protocol"
	"github.com/BioHazard786/classcast/internal/ui"
)

// session is a live connection with its message router running.
type session struct {
	Client  *client.Client
	Handler *client.Handler
}

func connect(ctx context.Context, cfg *Config) (*session, error) {
	sp := ui.NewConnectionSpinner("Connecting to " + cfg.Server + "...")
	sp.Start()
	c := client.NewClient(cfg.WebSocketURL)
	if err := c.Connect(ctx); err != nil {
		sp.Error("Could not reach " + cfg.Server)
		return nil, err
	}
	sp.Success(ui.IconConnect + " Connected to " + cfg.Server)

	h := client.NewHandler(c)
	go h.Start()
	return &session{Client: c, Handler: h}, nil
}

func (s *session) Close() {
	s.Client.Close()
}

// Messages merges server errors back into the event stream so a single
// consumer sees both. The channel closes when the connection drops.
func (s *session) Messages() <-chan protocol.Message {
	out := make(chan protocol.Message, cap(s.Handler.Events))
	go func() {
		defer close(out)
		events, errs := s.Handler.Events, s.Handler.Error
		for events != nil {
			select {
			case msg, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				out <- msg
			case text, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				out <- protocol.Message{Type: protocol.TypeError, Payload: &protocol.ErrorPayload{Message: text}}
			}
		}
	}()
	return out
}
