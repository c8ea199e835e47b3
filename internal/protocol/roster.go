package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Roster is the ordered student list sent as update-student-list. On the
// wire it is an object keyed by student id whose keys keep roster order.
type Roster []StudentState

func (r Roster) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.StudentID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		s.StudentID = ""
		val, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Roster) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("roster: expected object, got %v", tok)
	}

	out := Roster{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("roster: expected string key, got %v", keyTok)
		}
		var s StudentState
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("roster: student %s: %w", key, err)
		}
		s.StudentID = key
		out = append(out, s)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

var (
	_ msgpack.CustomEncoder = Roster(nil)
	_ msgpack.CustomDecoder = (*Roster)(nil)
)

func (r Roster) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(r)); err != nil {
		return err
	}
	for _, s := range r {
		if err := enc.EncodeString(s.StudentID); err != nil {
			return err
		}
		s.StudentID = ""
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Roster) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	if n < 0 {
		*r = nil
		return nil
	}
	out := make(Roster, 0, n)
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		var s StudentState
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("roster: student %s: %w", key, err)
		}
		s.StudentID = key
		out = append(out, s)
	}
	*r = out
	return nil
}

// Find returns the student with the given id.
func (r Roster) Find(id string) (StudentState, bool) {
	for _, s := range r {
		if s.StudentID == id {
			return s, true
		}
	}
	return StudentState{}, false
}
