// Package audit records notable coordinator events to an append-only sink.
// Writes are fire-and-forget: a failing sink never blocks or fails the
// event that produced the record.
package audit

import (
	"encoding/json"
	"time"
)

// Record types.
const (
	ConferenceCreated   = "conferenceCreated"
	TeacherJoined       = "teacherJoined"
	StudentJoined       = "studentJoined"
	StateUpdate         = "stateUpdate"
	FeelBad             = "feelBad"
	AttentionTest       = "attentionTest"
	RequestAction       = "requestAction"
	CallStudent         = "callStudent"
	NoResponse          = "noResponse"
	StudentResponse     = "studentResponse"
	ScreenShared        = "screenShared"
	ScreenShareEnded    = "screenShareEnded"
	StudentDisconnected = "studentDisconnected"
	ConferenceEnded     = "conferenceEnded"
	ConferenceCleared   = "conferenceCleared"
	ServerShutdown      = "serverShutdown"
)

type Record struct {
	Timestamp time.Time
	Type      string
	ConfID    string
	Fields    map[string]any
}

// New builds a record from alternating key/value pairs. A trailing key
// without a value is ignored.
func New(typ, confID string, kv ...any) Record {
	r := Record{Type: typ, ConfID: confID}
	if len(kv) > 1 {
		r.Fields = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			k, ok := kv[i].(string)
			if !ok {
				continue
			}
			r.Fields[k] = kv[i+1]
		}
	}
	return r
}

// MarshalJSON flattens the record into a single object, one per line in the
// file sink: {"timestamp":..., "type":..., "confId":..., <fields>}.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["timestamp"] = r.Timestamp.UTC().Format(time.RFC3339Nano)
	out["type"] = r.Type
	if r.ConfID != "" {
		out["confId"] = r.ConfID
	}
	return json.Marshal(out)
}
