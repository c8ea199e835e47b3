package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Client types negotiated on connect.
const (
	ClientWeb = "web"
	ClientCLI = "cli"
)

// Codec frames messages for one connection. Web clients speak JSON text
// frames, CLI clients msgpack binary frames.
type Codec interface {
	Name() string
	Binary() bool
	Marshal(msg Message) ([]byte, error)
	// Split decodes the envelope and returns the still-encoded payload.
	Split(data []byte) (typ string, payload []byte, err error)
	UnmarshalPayload(payload []byte, v any) error
}

// CodecFor picks the codec for a client type; unknown types get JSON.
func CodecFor(clientType string) Codec {
	if clientType == ClientCLI {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Marshal(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Split(data []byte) (string, []byte, error) {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, err
	}
	if bytes.Equal(env.Payload, []byte("null")) {
		env.Payload = nil
	}
	return env.Type, env.Payload, nil
}

func (JSONCodec) UnmarshalPayload(payload []byte, v any) error {
	return json.Unmarshal(payload, v)
}

// MsgpackCodec reuses the json struct tags so both codecs share one set of
// field names.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Marshal(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Split(data []byte) (string, []byte, error) {
	var env struct {
		Type    string             `json:"type"`
		Payload msgpack.RawMessage `json:"payload"`
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&env); err != nil {
		return "", nil, err
	}
	if len(env.Payload) == 1 && env.Payload[0] == msgpcode.Nil {
		env.Payload = nil
	}
	return env.Type, env.Payload, nil
}

func (MsgpackCodec) UnmarshalPayload(payload []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
