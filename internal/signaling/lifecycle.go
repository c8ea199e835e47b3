package signaling

import (
	"time"

	"github.com/BioHazard786/classcast/internal/audit"
	"github.com/BioHazard786/classcast/internal/conference"
	"github.com/BioHazard786/classcast/internal/protocol"
)

// Reasons attached to conferenceEnded audit records.
const (
	reasonTeacherLeft = "teacher-disconnected"
	reasonAbandoned   = "abandoned"
	reasonShutdown    = "shutdown"
)

type stopper interface {
	Stop() bool
}

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

type timerKey struct {
	confID    string
	studentID string
}

// responseTimer is one armed call. seq tells a stale fire apart from the
// current one after the same student was called again.
type responseTimer struct {
	seq  uint64
	stop stopper
}

type timerFired struct {
	key timerKey
	seq uint64
}

func (h *Hub) armResponseTimer(key timerKey) {
	h.disarmResponseTimer(key)
	h.timerSeq++
	seq := h.timerSeq
	stop := h.afterFunc(h.opts.ResponseTimeout, func() {
		select {
		case h.expired <- timerFired{key: key, seq: seq}:
		case <-h.stopped:
		}
	})
	h.timers[key] = &responseTimer{seq: seq, stop: stop}
}

func (h *Hub) disarmResponseTimer(key timerKey) {
	if t, ok := h.timers[key]; ok {
		t.stop.Stop()
		delete(h.timers, key)
	}
}

func (h *Hub) cancelConferenceTimers(confID string) {
	for key := range h.timers {
		if key.confID == confID {
			h.disarmResponseTimer(key)
		}
	}
}

// responseTimedOut tells the teacher a called student never answered. It
// does nothing if the call was answered, re-armed, or its target is gone.
func (h *Hub) responseTimedOut(fired timerFired) {
	t, ok := h.timers[fired.key]
	if !ok || t.seq != fired.seq {
		return
	}
	delete(h.timers, fired.key)

	conf, err := h.registry.Get(fired.key.confID)
	if err != nil {
		return
	}
	s, ok := conf.Student(fired.key.studentID)
	if !ok || !s.ResponsePending {
		return
	}
	pending := false
	if _, err := conf.UpdateStudentState(s.ID, conference.StatePatch{ResponsePending: &pending}); err != nil {
		return
	}

	h.metrics.NoResponses.Inc()
	h.log.Info("student did not respond", "confId", conf.ID, "studentId", s.ID)
	h.audit.Emit(audit.New(audit.NoResponse, conf.ID, "studentId", s.ID))
	h.sendToTeacher(conf, outbound(protocol.TypeNoResponse, protocol.StudentRef{StudentID: s.ID}))
}

// participantLeft runs the departure cascade for a connection that had joined.
func (h *Hub) participantLeft(handle conference.Handle, b binding) {
	conf, err := h.registry.Get(b.confID)
	if err != nil {
		return
	}

	if b.role == conference.RoleTeacher {
		if conf.Teacher.Handle != handle {
			return
		}
		conf.DetachTeacher(handle, h.now())
		h.endConference(conf, reasonTeacherLeft)
		return
	}

	s, ok := conf.Student(b.participantID)
	if !ok || s.Handle != handle {
		return
	}
	conf.RemoveStudent(s.ID)
	h.disarmResponseTimer(timerKey{confID: conf.ID, studentID: s.ID})

	h.log.Info("student disconnected", "confId", conf.ID, "studentId", s.ID)
	h.audit.Emit(audit.New(audit.StudentDisconnected, conf.ID, "studentId", s.ID))

	h.broadcast(conf, outbound(protocol.TypeUserDisconnected, protocol.StudentRef{StudentID: s.ID}))
	h.sendToTeacher(conf, outbound(protocol.TypeUpdateStudentList, rosterOf(conf)))

	if conf.Idle() {
		h.removeConference(conf, reasonAbandoned)
	}
}

// endConference tells every remaining member the conference is over and
// removes it from the registry. Members stay connected but unbound.
func (h *Hub) endConference(conf *conference.Conference, reason string) {
	msg := outbound(protocol.TypeConferenceEnded, protocol.ConfRef{ConfID: conf.ID})
	for _, handle := range conf.Handles() {
		h.sendTo(handle, msg)
		h.unbind(handle)
	}
	h.removeConference(conf, reason)
}

func (h *Hub) removeConference(conf *conference.Conference, reason string) {
	h.cancelConferenceTimers(conf.ID)
	h.registry.Remove(conf.ID)
	h.log.Info("conference removed", "confId", conf.ID, "reason", reason)
	h.audit.Emit(audit.New(audit.ConferenceEnded, conf.ID, "reason", reason))
}

// sweep reclaims conferences that have been without a teacher for longer
// than the idle grace: empty ones silently, ones with students still in
// them by ending the conference for those students.
func (h *Hub) sweep() {
	now := h.now()
	removed := 0
	for _, conf := range h.registry.All() {
		if conf.HasTeacher() || now.Sub(conf.TeacherlessSince) < h.opts.IdleGrace {
			continue
		}
		if conf.StudentCount() == 0 {
			h.cancelConferenceTimers(conf.ID)
			h.registry.Remove(conf.ID)
			h.audit.Emit(audit.New(audit.ConferenceCleared, conf.ID))
		} else {
			h.endConference(conf, reasonAbandoned)
		}
		removed++
	}
	if removed > 0 {
		h.log.Info("idle sweep", "removed", removed, "remaining", h.registry.Len())
	}
}

// shutdown drains the hub: every room is told the conference ended, the
// registry is cleared and every client queue is closed.
func (h *Hub) shutdown() {
	rooms := h.registry.All()
	for _, conf := range rooms {
		msg := outbound(protocol.TypeConferenceEnded, protocol.ConfRef{ConfID: conf.ID})
		for _, handle := range conf.Handles() {
			h.sendTo(handle, msg)
		}
		h.audit.Emit(audit.New(audit.ConferenceEnded, conf.ID, "reason", reasonShutdown))
	}
	for key := range h.timers {
		h.disarmResponseTimer(key)
	}
	h.registry.Clear()
	clear(h.bindings)
	for handle, c := range h.clients {
		close(c.Send)
		delete(h.clients, handle)
	}
	h.observe()
	h.audit.Emit(audit.New(audit.ServerShutdown, "", "conferences", len(rooms)))
	h.log.Info("hub stopped", "conferences", len(rooms))
}
