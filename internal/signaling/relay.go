package signaling

import (
	"fmt"

	"github.com/BioHazard786/classcast/internal/audit"
	"github.com/BioHazard786/classcast/internal/conference"
	"github.com/BioHazard786/classcast/internal/protocol"
)

const displacedMessage = "session replaced by a newer connection"

func (h *Hub) conference(confID string) (*conference.Conference, error) {
	return h.registry.Get(confID)
}

func (h *Hub) student(conf *conference.Conference, studentID string) (conference.StudentRecord, error) {
	s, ok := conf.Student(studentID)
	if !ok {
		return conference.StudentRecord{}, conference.NewError("lookup student", conference.ErrNotFound, "student "+studentID+" is not in conference")
	}
	return s, nil
}

func (h *Hub) handleJoin(c *Client, ev *protocol.JoinRoom) error {
	conf, err := h.conference(ev.ConfID)
	if err != nil {
		return err
	}

	want := binding{confID: conf.ID, participantID: ev.UserID, role: conference.Role(ev.Role)}
	if cur, ok := h.bindings[c.Handle]; ok && cur != want {
		return conference.NewError("join room", conference.ErrInvalidInput,
			fmt.Sprintf("connection already joined conference %s as %s", cur.confID, cur.role))
	}

	if want.role == conference.RoleTeacher {
		prev := conf.AttachTeacher(ev.UserID, ev.UserName, c.Handle)
		h.bind(c.Handle, want)
		h.displace(prev, c.Handle)

		h.log.Info("teacher joined", "confId", conf.ID, "teacherId", ev.UserID, "handle", c.Handle)
		h.audit.Emit(audit.New(audit.TeacherJoined, conf.ID, "teacherId", ev.UserID, "teacherName", conf.Teacher.DisplayName))

		h.broadcastExcept(conf, c.Handle, outbound(protocol.TypeTeacherJoined, protocol.TeacherRef{TeacherID: ev.UserID}))
		h.broadcastExcept(conf, c.Handle, outbound(protocol.TypeUserConnected, protocol.UserRef{UserID: ev.UserID}))
		h.sendTo(c.Handle, outbound(protocol.TypeConferenceData, conferenceData(conf)))
		return nil
	}

	prev, created := conf.UpsertStudent(ev.UserID, ev.UserName, c.Handle)
	h.bind(c.Handle, want)
	h.displace(prev, c.Handle)

	h.log.Info("student joined", "confId", conf.ID, "studentId", ev.UserID, "reconnect", !created, "handle", c.Handle)
	h.audit.Emit(audit.New(audit.StudentJoined, conf.ID, "studentId", ev.UserID, "studentName", ev.UserName))

	h.sendToTeacher(conf, outbound(protocol.TypeUpdateStudentList, rosterOf(conf)))
	h.broadcastExcept(conf, c.Handle, outbound(protocol.TypeUserConnected, protocol.UserRef{UserID: ev.UserID}))
	h.sendTo(c.Handle, outbound(protocol.TypeConferenceData, conferenceData(conf)))
	return nil
}

// displace unbinds a connection that was replaced by a newer one for the
// same participant and tells it so. Its later disconnect is then ignored.
func (h *Hub) displace(prev, cur conference.Handle) {
	if prev == conference.NoHandle || prev == cur {
		return
	}
	h.unbind(prev)
	h.log.Info("connection displaced", "handle", prev, "by", cur)
	h.sendTo(prev, outbound(protocol.TypeError, protocol.ErrorPayload{Message: displacedMessage}))
}

func (h *Hub) handleRequestTeacherStream(ev *protocol.RequestTeacherStream) error {
	conf, err := h.conference(ev.ConfID)
	if err != nil {
		return err
	}
	if !conf.HasTeacher() {
		return conference.NewError("request teacher stream", conference.ErrNotFound, "teacher is not connected")
	}
	h.sendToTeacher(conf, outbound(protocol.TypeCallStudent, protocol.CallRequest{ConfID: conf.ID, StudentID: ev.UserID}))
	return nil
}

func (h *Hub) handleReportState(ev *protocol.ReportState) error {
	conf, err := h.conference(ev.ConfID)
	if err != nil {
		return err
	}
	rec, err := conf.UpdateStudentState(ev.StudentID, statePatch(ev))
	if err != nil {
		return err
	}
	h.audit.Emit(audit.New(audit.StateUpdate, conf.ID,
		"studentId", ev.StudentID, "attention", ev.Attention, "emotion", ev.Emotion, "camera", ev.Camera))
	h.sendToTeacher(conf, outbound(protocol.TypeUpdateState, studentState(rec)))
	return nil
}

func (h *Hub) handleFeelBad(ev *protocol.FeelBad) error {
	conf, err := h.conference(ev.ConfID)
	if err != nil {
		return err
	}
	s, err := h.student(conf, ev.StudentID)
	if err != nil {
		return err
	}
	h.audit.Emit(audit.New(audit.FeelBad, conf.ID, "studentId", s.ID))
	h.sendToTeacher(conf, outbound(protocol.TypeAlert, protocol.AlertPayload{Message: s.Name + " is not feeling well"}))
	return nil
}

func (h *Hub) handleAttentionTest(ev *protocol.AttentionTest) error {
	conf, err := h.conference(ev.ConfID)
	if err != nil {
		return err
	}
	h.audit.Emit(audit.New(audit.AttentionTest, conf.ID))
	h.broadcast(conf, outbound(protocol.TypeStartAttentionTest, protocol.ConfRef{ConfID: conf.ID}))
	return nil
}

func (h *Hub) handleRequestAction(ev *protocol.RequestAction) error {
	conf, err := h.conference(ev.ConfID)
	if err != nil {
		return err
	}
	h.audit.Emit(audit.New(audit.RequestAction, conf.ID, "action", ev.Action))
	h.broadcast(conf, outbound(protocol.TypePerformAction, protocol.ActionRequest{ConfID: conf.ID, Action: ev.Action}))
	return nil
}

func (h *Hub) handleCallStudent(ev *protocol.CallStudent) error {
	conf, err := h.conference(ev.ConfID)
	if err != nil {
		return err
	}
	s, err := h.student(conf, ev.StudentID)
	if err != nil {
		return err
	}
	pending := true
	if _, err := conf.UpdateStudentState(s.ID, conference.StatePatch{ResponsePending: &pending}); err != nil {
		return err
	}
	h.audit.Emit(audit.New(audit.CallStudent, conf.ID, "studentId", s.ID))
	h.sendTo(s.Handle, outbound(protocol.TypeCallStudent, protocol.CallRequest{ConfID: conf.ID, StudentID: s.ID}))
	h.armResponseTimer(timerKey{confID: conf.ID, studentID: s.ID})
	return nil
}

func (h *Hub) handleStudentResponse(ev *protocol.StudentResponse) error {
	conf, err := h.conference(ev.ConfID)
	if err != nil {
		return err
	}
	s, err := h.student(conf, ev.StudentID)
	if err != nil {
		return err
	}
	pending := false
	if _, err := conf.UpdateStudentState(s.ID, conference.StatePatch{ResponsePending: &pending}); err != nil {
		return err
	}
	h.disarmResponseTimer(timerKey{confID: conf.ID, studentID: s.ID})
	h.audit.Emit(audit.New(audit.StudentResponse, conf.ID, "studentId", s.ID))
	h.sendToTeacher(conf, outbound(protocol.TypeStudentResponse, protocol.StudentRef{StudentID: s.ID}))
	return nil
}

func (h *Hub) handleShareScreen(c *Client, ev *protocol.ShareScreen) error {
	conf, err := h.conference(ev.ConfID)
	if err != nil {
		return err
	}
	if !conf.HasTeacher() || conf.Teacher.Handle != c.Handle {
		return conference.NewError("share screen", conference.ErrUnauthorized, "only the teacher can share the screen")
	}
	h.audit.Emit(audit.New(audit.ScreenShared, conf.ID))
	h.broadcast(conf, outbound(protocol.TypeScreenShared, protocol.ConfRef{ConfID: conf.ID}))
	return nil
}

func (h *Hub) handleScreenShareEnded(ev *protocol.ScreenShareEnded) error {
	conf, err := h.conference(ev.ConfID)
	if err != nil {
		return err
	}
	h.audit.Emit(audit.New(audit.ScreenShareEnded, conf.ID))
	h.broadcast(conf, outbound(protocol.TypeScreenShareEnded, protocol.ConfRef{ConfID: conf.ID}))
	return nil
}

func (h *Hub) handleMute(c *Client, confID, userID, relayType string) error {
	conf, err := h.conference(confID)
	if err != nil {
		return err
	}
	h.broadcastExcept(conf, c.Handle, outbound(relayType, protocol.UserRef{UserID: userID}))
	return nil
}

func statePatch(r *protocol.ReportState) conference.StatePatch {
	attention := conference.Attention(r.Attention)
	emotion := conference.Emotion(r.Emotion)
	camera := conference.Camera(r.Camera)
	return conference.StatePatch{
		Attention:       &attention,
		Emotion:         &emotion,
		Camera:          &camera,
		HandRaised:      r.HandRaised,
		EyesOpen:        r.EyesOpen,
		LookingAtScreen: r.LookingAtScreen,
	}
}

func studentState(r conference.StudentRecord) protocol.StudentState {
	return protocol.StudentState{
		StudentID:       r.ID,
		Name:            r.Name,
		Attention:       string(r.Attention),
		Emotion:         string(r.Emotion),
		Camera:          string(r.Camera),
		HandRaised:      r.HandRaised,
		EyesOpen:        r.EyesOpen,
		LookingAtScreen: r.LookingAtScreen,
		ResponsePending: r.ResponsePending,
	}
}

func rosterOf(c *conference.Conference) protocol.Roster {
	snap := c.Snapshot()
	out := make(protocol.Roster, 0, len(snap))
	for _, s := range snap {
		out = append(out, studentState(s))
	}
	return out
}

func conferenceData(c *conference.Conference) protocol.ConferenceData {
	snap := c.Snapshot()
	students := make([]protocol.StudentSummary, 0, len(snap))
	for _, s := range snap {
		students = append(students, protocol.StudentSummary{ID: s.ID, Name: s.Name})
	}
	return protocol.ConferenceData{ConfID: c.ID, TeacherID: c.Teacher.ParticipantID, Students: students}
}
