package signaling

import (
	"github.com/BioHazard786/classcast/internal/conference"
	"github.com/BioHazard786/classcast/internal/protocol"
)

// sendTo queues msg for one connection without blocking. It reports whether
// the message was queued.
func (h *Hub) sendTo(handle conference.Handle, msg *protocol.Message) bool {
	if handle == conference.NoHandle {
		return false
	}
	c, ok := h.clients[handle]
	if !ok {
		return false
	}
	select {
	case c.Send <- msg:
		h.metrics.EventsSent.WithLabelValues(msg.Type).Inc()
		return true
	default:
		h.metrics.RelayDropped.Inc()
		h.log.Warn("client queue full, dropping event", append(c.logAttrs(), "type", msg.Type)...)
		return false
	}
}

// sendToTeacher is a no-op when the conference has no teacher connection.
func (h *Hub) sendToTeacher(conf *conference.Conference, msg *protocol.Message) bool {
	return h.sendTo(conf.Teacher.Handle, msg)
}

// broadcast sends msg to every member of the conference.
func (h *Hub) broadcast(conf *conference.Conference, msg *protocol.Message) {
	h.broadcastExcept(conf, conference.NoHandle, msg)
}

// broadcastExcept sends msg to every member of the conference but skip.
func (h *Hub) broadcastExcept(conf *conference.Conference, skip conference.Handle, msg *protocol.Message) {
	for _, handle := range conf.Handles() {
		if handle != skip {
			h.sendTo(handle, msg)
		}
	}
}

func (h *Hub) bind(handle conference.Handle, b binding) {
	h.bindings[handle] = b
}

// unbind forgets what handle had joined; the connection stays open.
func (h *Hub) unbind(handle conference.Handle) {
	delete(h.bindings, handle)
}
