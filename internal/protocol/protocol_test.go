package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/classcast/internal/conference"
)

func encode(t *testing.T, c Codec, typ string, payload any) []byte {
	t.Helper()
	raw, err := c.Marshal(Message{Type: typ, Payload: payload})
	require.NoError(t, err)
	return raw
}

func TestDecode_JoinRoomBothCodecs(t *testing.T) {
	for _, c := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(c.Name(), func(t *testing.T) {
			raw := encode(t, c, TypeJoinRoom, JoinRoom{ConfID: "C1", UserID: "S1", UserName: "Bo", Role: "student"})
			ev, err := Decode(c, raw)
			require.NoError(t, err)
			assert.Equal(t, &JoinRoom{ConfID: "C1", UserID: "S1", UserName: "Bo", Role: "student"}, ev)
		})
	}
}

func TestDecode_ReportStateOptionalFields(t *testing.T) {
	raw := []byte(`{"type":"report-state","payload":{"confId":"C1","studentId":"S1","attention":"sleepy","emotion":"sad","camera":"off","handRaised":true}}`)
	ev, err := Decode(JSONCodec{}, raw)
	require.NoError(t, err)

	rs := ev.(*ReportState)
	require.NotNil(t, rs.HandRaised)
	assert.True(t, *rs.HandRaised)
	assert.Nil(t, rs.EyesOpen)
	assert.Nil(t, rs.LookingAtScreen)
}

func TestDecode_Rejections(t *testing.T) {
	cases := map[string]string{
		"not json":         `nope`,
		"unknown type":     `{"type":"teleport","payload":{}}`,
		"missing payload":  `{"type":"attention-test"}`,
		"wrong field type": `{"type":"attention-test","payload":{"confId":5}}`,
		"bad role":         `{"type":"join-room","payload":{"confId":"C1","userId":"U","userName":"N","role":"admin"}}`,
		"bad attention":    `{"type":"report-state","payload":{"confId":"C1","studentId":"S1","attention":"bored","emotion":"sad","camera":"on"}}`,
		"bad camera":       `{"type":"report-state","payload":{"confId":"C1","studentId":"S1","attention":"sleepy","emotion":"sad","camera":"blurry"}}`,
		"missing emotion":  `{"type":"report-state","payload":{"confId":"C1","studentId":"S1","attention":"sleepy","camera":"on"}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ev, err := Decode(JSONCodec{}, []byte(raw))
			assert.Nil(t, ev)
			assert.True(t, errors.Is(err, conference.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestDecode_ErrorNamesWireFields(t *testing.T) {
	_, err := Decode(JSONCodec{}, []byte(`{"type":"call-student","payload":{"confId":"C1"}}`))
	require.Error(t, err)
	assert.Equal(t, "invalid call-student: missing or invalid studentId", conference.Message(err))
}

func sampleRoster() Roster {
	return Roster{
		{StudentID: "S2", Name: "Cy", Attention: "unknown", Emotion: "neutral", Camera: "on", EyesOpen: true},
		{StudentID: "S1", Name: "Bo", Attention: "sleepy", Emotion: "sad", Camera: "off"},
	}
}

func TestRoster_JSONKeepsOrder(t *testing.T) {
	raw, err := json.Marshal(sampleRoster())
	require.NoError(t, err)
	assert.Regexp(t, `^\{"S2":\{"name":"Cy".*\},"S1":\{"name":"Bo".*\}\}$`, string(raw))

	var asMap map[string]StudentState
	require.NoError(t, json.Unmarshal(raw, &asMap))
	assert.Equal(t, "Bo", asMap["S1"].Name)
	assert.Empty(t, asMap["S1"].StudentID)

	var back Roster
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, sampleRoster(), back)
}

func TestRoster_EmptyEncodesAsObject(t *testing.T) {
	raw, err := json.Marshal(Roster(nil))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}

func TestRoster_MsgpackKeepsOrder(t *testing.T) {
	c := MsgpackCodec{}
	raw := encode(t, c, TypeUpdateStudentList, sampleRoster())

	typ, payload, err := c.Split(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeUpdateStudentList, typ)

	var back Roster
	require.NoError(t, c.UnmarshalPayload(payload, &back))
	assert.Equal(t, sampleRoster(), back)

	s, ok := back.Find("S1")
	assert.True(t, ok)
	assert.Equal(t, "Bo", s.Name)
}

func TestSplit_NoPayload(t *testing.T) {
	for _, c := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		raw := encode(t, c, TypeConferenceEnded, nil)
		typ, payload, err := c.Split(raw)
		require.NoError(t, err)
		assert.Equal(t, TypeConferenceEnded, typ)
		assert.Empty(t, payload, c.Name())
	}
}

func TestCodecFor(t *testing.T) {
	assert.Equal(t, "msgpack", CodecFor(ClientCLI).Name())
	assert.Equal(t, "json", CodecFor(ClientWeb).Name())
	assert.Equal(t, "json", CodecFor("").Name())
}

func TestDecodeServer(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			roster := Roster{{StudentID: "S1", Name: "Bo", Attention: "unknown", Emotion: "neutral", Camera: "on", EyesOpen: true}}
			data, err := codec.Marshal(Message{Type: TypeUpdateStudentList, Payload: roster})
			require.NoError(t, err)

			msg, err := DecodeServer(codec, data)
			require.NoError(t, err)
			require.Equal(t, TypeUpdateStudentList, msg.Type)
			got := *msg.Payload.(*Roster)
			require.Len(t, got, 1)
			assert.Equal(t, "S1", got[0].StudentID)
			assert.Equal(t, "Bo", got[0].Name)

			data, err = codec.Marshal(Message{Type: TypeError, Payload: ErrorPayload{Message: "nope"}})
			require.NoError(t, err)
			msg, err = DecodeServer(codec, data)
			require.NoError(t, err)
			assert.Equal(t, &ErrorPayload{Message: "nope"}, msg.Payload)

			data, err = codec.Marshal(Message{Type: "future-event"})
			require.NoError(t, err)
			msg, err = DecodeServer(codec, data)
			require.NoError(t, err)
			assert.Equal(t, "future-event", msg.Type)
			assert.Nil(t, msg.Payload)
		})
	}
}
