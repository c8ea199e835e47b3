// Package protocol defines the real-time message set exchanged between
// conference clients and the coordinator, and the codecs that frame it.
package protocol

// Event type names shared by both directions of the real-time protocol.
const (
	// client -> server
	TypeJoinRoom             = "join-room"
	TypeRequestTeacherStream = "request-teacher-stream"
	TypeReportState          = "report-state"
	TypeFeelBad              = "feel-bad"
	TypeAttentionTest        = "attention-test"
	TypeRequestAction        = "request-action"
	TypeShareScreen          = "share-screen"
	TypeMuteMic              = "mute-mic"
	TypeMuteVideo            = "mute-video"

	// both directions
	TypeCallStudent      = "call-student"
	TypeStudentResponse  = "student-response"
	TypeScreenShareEnded = "screen-share-ended"

	// server -> client
	TypeConferenceData     = "conference-data"
	TypeUpdateStudentList  = "update-student-list"
	TypeUpdateState        = "update-state"
	TypeAlert              = "alert"
	TypeNoResponse         = "no-response"
	TypeUserConnected      = "user-connected"
	TypeUserDisconnected   = "user-disconnected"
	TypeTeacherJoined      = "teacher-joined"
	TypeStartAttentionTest = "start-attention-test"
	TypePerformAction      = "perform-action"
	TypeScreenShared       = "screen-shared"
	TypeUserMutedMic       = "user-muted-mic"
	TypeUserMutedVideo     = "user-muted-video"
	TypeConferenceEnded    = "conference-ended"
	TypeError              = "error"
)

// Event is one decoded, validated client message. The set of
// implementations is closed; Decode rejects anything else.
type Event interface {
	EventType() string
}

type JoinRoom struct {
	ConfID   string `json:"confId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=teacher student"`
}

type RequestTeacherStream struct {
	ConfID string `json:"confId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type ReportState struct {
	ConfID          string `json:"confId" validate:"required"`
	StudentID       string `json:"studentId" validate:"required"`
	Attention       string `json:"attention" validate:"required,oneof=unknown attentive distracted sleepy confused not_looking"`
	Emotion         string `json:"emotion" validate:"required"`
	Camera          string `json:"camera" validate:"required,oneof=on off"`
	HandRaised      *bool  `json:"handRaised,omitempty"`
	EyesOpen        *bool  `json:"eyesOpen,omitempty"`
	LookingAtScreen *bool  `json:"lookingAtScreen,omitempty"`
}

type FeelBad struct {
	ConfID    string `json:"confId" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
}

type AttentionTest struct {
	ConfID string `json:"confId" validate:"required"`
}

type RequestAction struct {
	ConfID string `json:"confId" validate:"required"`
	Action string `json:"action" validate:"required"`
}

type CallStudent struct {
	ConfID    string `json:"confId" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
}

type StudentResponse struct {
	ConfID    string `json:"confId" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
}

type ShareScreen struct {
	ConfID string `json:"confId" validate:"required"`
}

type ScreenShareEnded struct {
	ConfID string `json:"confId" validate:"required"`
}

type MuteMic struct {
	ConfID string `json:"confId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type MuteVideo struct {
	ConfID string `json:"confId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

func (*JoinRoom) EventType() string             { return TypeJoinRoom }
func (*RequestTeacherStream) EventType() string { return TypeRequestTeacherStream }
func (*ReportState) EventType() string          { return TypeReportState }
func (*FeelBad) EventType() string              { return TypeFeelBad }
func (*AttentionTest) EventType() string        { return TypeAttentionTest }
func (*RequestAction) EventType() string        { return TypeRequestAction }
func (*CallStudent) EventType() string          { return TypeCallStudent }
func (*StudentResponse) EventType() string      { return TypeStudentResponse }
func (*ShareScreen) EventType() string          { return TypeShareScreen }
func (*ScreenShareEnded) EventType() string     { return TypeScreenShareEnded }
func (*MuteMic) EventType() string              { return TypeMuteMic }
func (*MuteVideo) EventType() string            { return TypeMuteVideo }

// Inbound lists every message a client may send.
var Inbound = map[string]func() Event{
	TypeJoinRoom:             func() Event { return &JoinRoom{} },
	TypeRequestTeacherStream: func() Event { return &RequestTeacherStream{} },
	TypeReportState:          func() Event { return &ReportState{} },
	TypeFeelBad:              func() Event { return &FeelBad{} },
	TypeAttentionTest:        func() Event { return &AttentionTest{} },
	TypeRequestAction:        func() Event { return &RequestAction{} },
	TypeCallStudent:          func() Event { return &CallStudent{} },
	TypeStudentResponse:      func() Event { return &StudentResponse{} },
	TypeShareScreen:          func() Event { return &ShareScreen{} },
	TypeScreenShareEnded:     func() Event { return &ScreenShareEnded{} },
	TypeMuteMic:              func() Event { return &MuteMic{} },
	TypeMuteVideo:            func() Event { return &MuteVideo{} },
}

// Server -> client payloads.

type StudentSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ConferenceData struct {
	ConfID    string           `json:"confId"`
	TeacherID string           `json:"teacherId"`
	Students  []StudentSummary `json:"students"`
}

// StudentState is the wire form of a student record. StudentID is only
// set on update-state; inside a Roster the id is the map key.
type StudentState struct {
	StudentID       string `json:"studentId,omitempty"`
	Name            string `json:"name"`
	Attention       string `json:"attention"`
	Emotion         string `json:"emotion"`
	Camera          string `json:"camera"`
	HandRaised      bool   `json:"handRaised"`
	EyesOpen        bool   `json:"eyesOpen"`
	LookingAtScreen bool   `json:"lookingAtScreen"`
	ResponsePending bool   `json:"responsePending"`
}

type ConfRef struct {
	ConfID string `json:"confId"`
}

type StudentRef struct {
	StudentID string `json:"studentId"`
}

type UserRef struct {
	UserID string `json:"userId"`
}

type TeacherRef struct {
	TeacherID string `json:"teacherId"`
}

type CallRequest struct {
	ConfID    string `json:"confId"`
	StudentID string `json:"studentId"`
}

type ActionRequest struct {
	ConfID string `json:"confId"`
	Action string `json:"action"`
}

type AlertPayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Outbound maps every server message to the payload it carries, for
// clients of the protocol.
var Outbound = map[string]func() any{
	TypeConferenceData:     func() any { return &ConferenceData{} },
	TypeUpdateStudentList:  func() any { return &Roster{} },
	TypeUpdateState:        func() any { return &StudentState{} },
	TypeAlert:              func() any { return &AlertPayload{} },
	TypeCallStudent:        func() any { return &CallRequest{} },
	TypeNoResponse:         func() any { return &StudentRef{} },
	TypeStudentResponse:    func() any { return &StudentRef{} },
	TypeUserConnected:      func() any { return &UserRef{} },
	TypeUserDisconnected:   func() any { return &StudentRef{} },
	TypeTeacherJoined:      func() any { return &TeacherRef{} },
	TypeStartAttentionTest: func() any { return &ConfRef{} },
	TypePerformAction:      func() any { return &ActionRequest{} },
	TypeScreenShared:       func() any { return &ConfRef{} },
	TypeScreenShareEnded:   func() any { return &ConfRef{} },
	TypeUserMutedMic:       func() any { return &UserRef{} },
	TypeUserMutedVideo:     func() any { return &UserRef{} },
	TypeConferenceEnded:    func() any { return &ConfRef{} },
	TypeError:              func() any { return &ErrorPayload{} },
}
