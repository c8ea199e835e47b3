package protocol

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/BioHazard786/classcast/internal/conference"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode parses one client frame into its typed event. Unknown types,
// malformed payloads and missing or invalid fields all fail with
// conference.ErrInvalidInput.
func Decode(codec Codec, data []byte) (Event, error) {
	typ, payload, err := codec.Split(data)
	if err != nil {
		return nil, conference.NewError("decode message", conference.ErrInvalidInput, "malformed message")
	}
	newEvent, ok := Inbound[typ]
	if !ok {
		return nil, conference.NewError("decode message", conference.ErrInvalidInput, "unknown event type "+quote(typ))
	}

	ev := newEvent()
	if len(payload) > 0 {
		if err := codec.UnmarshalPayload(payload, ev); err != nil {
			return nil, conference.NewError("decode "+typ, conference.ErrInvalidInput, "malformed payload for "+typ)
		}
	}
	if err := validate.Struct(ev); err != nil {
		return nil, conference.NewError("validate "+typ, conference.ErrInvalidInput, describe(typ, err))
	}
	return ev, nil
}

// DecodeServer parses one server frame. The payload is a pointer to the
// type listed in Outbound. Unknown types are returned with a nil payload.
func DecodeServer(codec Codec, data []byte) (Message, error) {
	typ, payload, err := codec.Split(data)
	if err != nil {
		return Message{}, fmt.Errorf("decode server message: %w", err)
	}
	newPayload, ok := Outbound[typ]
	if !ok {
		return Message{Type: typ}, nil
	}
	v := newPayload()
	if len(payload) > 0 {
		if err := codec.UnmarshalPayload(payload, v); err != nil {
			return Message{}, fmt.Errorf("decode %s payload: %w", typ, err)
		}
	}
	return Message{Type: typ, Payload: v}, nil
}

func describe(typ string, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid payload for " + typ
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "invalid " + typ + ": missing or invalid " + strings.Join(fields, ", ")
}

func quote(s string) string {
	if s == "" {
		return `""`
	}
	return `"` + s + `"`
}
