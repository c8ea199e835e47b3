package conference

// Attention is the attention level last reported by a student's client.
type Attention string

const (
	AttentionUnknown    Attention = "unknown"
	AttentionAttentive  Attention = "attentive"
	AttentionDistracted Attention = "distracted"
	AttentionSleepy     Attention = "sleepy"
	AttentionConfused   Attention = "confused"
	AttentionNotLooking Attention = "not_looking"
)

// Valid reports whether a is one of the known attention levels.
func (a Attention) Valid() bool {
	switch a {
	case AttentionUnknown, AttentionAttentive, AttentionDistracted,
		AttentionSleepy, AttentionConfused, AttentionNotLooking:
		return true
	}
	return false
}

// Emotion is an open set; the constants are the values clients are known to send.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionSurprised Emotion = "surprised"
	EmotionAngry     Emotion = "angry"
)

type Camera string

const (
	CameraOn  Camera = "on"
	CameraOff Camera = "off"
)

func (c Camera) Valid() bool {
	return c == CameraOn || c == CameraOff
}

// StudentRecord is the coordinator's view of one student in a conference.
type StudentRecord struct {
	ID     string
	Name   string
	Handle Handle

	Attention       Attention
	Emotion         Emotion
	Camera          Camera
	HandRaised      bool
	EyesOpen        bool
	LookingAtScreen bool

	// ResponsePending is true while a call-to-attention is outstanding.
	ResponsePending bool
}

func newStudent(id, name string, h Handle) *StudentRecord {
	return &StudentRecord{
		ID:              id,
		Name:            name,
		Handle:          h,
		Attention:       AttentionUnknown,
		Emotion:         EmotionNeutral,
		Camera:          CameraOn,
		EyesOpen:        true,
		LookingAtScreen: true,
	}
}

// StatePatch carries a partial state report. Nil fields keep their prior value.
type StatePatch struct {
	Attention       *Attention
	Emotion         *Emotion
	Camera          *Camera
	HandRaised      *bool
	EyesOpen        *bool
	LookingAtScreen *bool
	ResponsePending *bool
}

func (p StatePatch) apply(r *StudentRecord) {
	if p.Attention != nil {
		r.Attention = *p.Attention
	}
	if p.Emotion != nil {
		r.Emotion = *p.Emotion
	}
	if p.Camera != nil {
		r.Camera = *p.Camera
	}
	if p.HandRaised != nil {
		r.HandRaised = *p.HandRaised
	}
	if p.EyesOpen != nil {
		r.EyesOpen = *p.EyesOpen
	}
	if p.LookingAtScreen != nil {
		r.LookingAtScreen = *p.LookingAtScreen
	}
	if p.ResponsePending != nil {
		r.ResponsePending = *p.ResponsePending
	}
}
