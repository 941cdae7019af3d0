package models

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		wantField string
	}{
		{
			name:  "Text message",
			input: `{"id":"m1","conversationId":"c1","senderId":"u1","content":"hi","createdAt":"2024-01-02T10:00:00Z"}`,
		},
		{
			name:  "Code message",
			input: `{"id":"m1","conversationId":"c1","senderId":"u1","type":"code","language":"go","content":"package main"}`,
		},
		{
			name:      "Missing conversation",
			input:     `{"id":"m1","senderId":"u1","content":"hi"}`,
			wantErr:   true,
			wantField: "conversationId",
		},
		{
			name:      "Unknown type",
			input:     `{"id":"m1","conversationId":"c1","senderId":"u1","type":"video"}`,
			wantErr:   true,
			wantField: "type",
		},
		{
			name:      "Image without url",
			input:     `{"id":"m1","conversationId":"c1","senderId":"u1","type":"image"}`,
			wantErr:   true,
			wantField: "fileUrl",
		},
		{
			name:    "Syntax error",
			input:   `{"id":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var derr *DecodeError
				if !errors.As(err, &derr) {
					t.Fatalf("Expected *DecodeError, got %T", err)
				}
				if derr.Field != tt.wantField {
					t.Errorf("Expected field %q, got %q", tt.wantField, derr.Field)
				}
				return
			}
			if m.Type == "" {
				t.Error("Expected message type to default")
			}
		})
	}
}

func TestDecodeMessage_DefaultsToText(t *testing.T) {
	m, err := DecodeMessage([]byte(`{"id":"m1","conversationId":"c1","senderId":"u1","content":"hi"}`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if m.Type != MessageText {
		t.Errorf("Expected type %q, got %q", MessageText, m.Type)
	}
	if !m.CreatedAt.IsZero() {
		t.Errorf("Expected zero timestamp to pass through, got %v", m.CreatedAt)
	}
}

func TestDecodeAck(t *testing.T) {
	ack, err := DecodeAck([]byte(`{"success":true,"messages":[{"id":"m1","conversationId":"c1","senderId":"u1","content":"a"}]}`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !ack.Success || len(ack.Messages) != 1 {
		t.Fatalf("Unexpected ack: %+v", ack)
	}

	_, err = DecodeAck([]byte(`{"success":true,"messages":[{"id":"m1","content":"a"}]}`))
	if err == nil {
		t.Fatal("Expected error for invalid nested message")
	}

	ack, err = DecodeAck([]byte(`{"success":false,"error":"Access denied"}`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ack.Success || ack.Error != "Access denied" {
		t.Errorf("Unexpected failure ack: %+v", ack)
	}
}

func TestDecodeConversations(t *testing.T) {
	input := `[{"id":"c1","title":"Support","unreadCount":2,"participants":["u1",{"id":"u2","name":"Bo"}]}]`
	cs, err := DecodeConversations([]byte(input))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(cs) != 1 || len(cs[0].Participants) != 2 {
		t.Fatalf("Unexpected conversations: %+v", cs)
	}

	_, err = DecodeConversations([]byte(`[{"id":"c1","unreadCount":-1}]`))
	var derr *DecodeError
	if !errors.As(err, &derr) || derr.Field != "unreadCount" {
		t.Fatalf("Expected unreadCount decode error, got %v", err)
	}

	_, err = DecodeConversations([]byte(`[{"id":"c1","participants":["u1",{"name":"No Id"}]}]`))
	if !errors.As(err, &derr) || !strings.HasPrefix(derr.Field, "participants[1]") {
		t.Fatalf("Expected participant id decode error, got %v", err)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	msg, err := DecodeEnvelope([]byte(`{"event":"ack","ack_id":"a1","payload":{"success":true}}`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if msg.Event != EventAck || msg.AckID != "a1" {
		t.Errorf("Unexpected envelope: %+v", msg)
	}

	if _, err := DecodeEnvelope([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("Expected error for missing event")
	}
}

func TestDecodePayload(t *testing.T) {
	var p WSUserTypingPayload
	if err := DecodePayload(EventUserTyping, []byte(`{"conversationId":"c1"}`), &p); err == nil {
		t.Fatal("Expected error for missing userId")
	}
	if err := DecodePayload(EventUserTyping, []byte(`{"conversationId":"c1","userId":"u1"}`), &p); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}
