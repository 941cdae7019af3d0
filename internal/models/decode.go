package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DecodeError is returned when a payload from the network does not have the
// expected shape.
type DecodeError struct {
	Kind  string // what was being decoded, e.g. "message"
	Field string // offending field (json name), empty for syntax errors
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: field %s: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func decode[T any](kind string, data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &DecodeError{Kind: kind, Err: err}
	}
	if err := check(kind, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func check(kind string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		// drop the root struct name from the namespace
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		return &DecodeError{Kind: kind, Field: field, Err: fmt.Errorf("failed on %q", fe.Tag())}
	}
	return &DecodeError{Kind: kind, Err: err}
}

func checkMessage(m *Message) error {
	if m.Type.HasFile() && m.FileURL == "" {
		return &DecodeError{Kind: "message", Field: "fileUrl", Err: fmt.Errorf("required for %s messages", m.Type)}
	}
	if m.Type == "" {
		m.Type = MessageText
	}
	return nil
}

// DecodeMessage decodes and validates a single message record
func DecodeMessage(data []byte) (*Message, error) {
	m, err := decode[Message]("message", data)
	if err != nil {
		return nil, err
	}
	if err := checkMessage(m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeMessages decodes a list of message records
func DecodeMessages(data []byte) ([]Message, error) {
	var ms []Message
	if err := json.Unmarshal(data, &ms); err != nil {
		return nil, &DecodeError{Kind: "messages", Err: err}
	}
	for i := range ms {
		if err := check("message", &ms[i]); err != nil {
			return nil, err
		}
		if err := checkMessage(&ms[i]); err != nil {
			return nil, err
		}
	}
	return ms, nil
}

// DecodeConversation decodes and validates a single conversation record
func DecodeConversation(data []byte) (*Conversation, error) {
	return decode[Conversation]("conversation", data)
}

// DecodeConversations decodes a list of conversation records
func DecodeConversations(data []byte) ([]Conversation, error) {
	var cs []Conversation
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, &DecodeError{Kind: "conversations", Err: err}
	}
	for i := range cs {
		if err := check("conversation", &cs[i]); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

// DecodeAck decodes an acknowledgement payload including any records it
// carries.
func DecodeAck(data []byte) (*Ack, error) {
	ack, err := decode[Ack]("ack", data)
	if err != nil {
		return nil, err
	}
	for i := range ack.Messages {
		if err := checkMessage(&ack.Messages[i]); err != nil {
			return nil, err
		}
	}
	if ack.Message != nil {
		if err := checkMessage(ack.Message); err != nil {
			return nil, err
		}
	}
	return ack, nil
}

// DecodeEnvelope decodes a raw socket frame
func DecodeEnvelope(data []byte) (*WSMessage, error) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &DecodeError{Kind: "frame", Err: err}
	}
	if msg.Event == "" {
		return nil, &DecodeError{Kind: "frame", Field: "event", Err: errors.New("missing event")}
	}
	return &msg, nil
}

// DecodePayload decodes and validates a push payload into v
func DecodePayload(event string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Kind: event, Err: err}
	}
	return check(event, v)
}
