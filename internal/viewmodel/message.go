// Package viewmodel turns gateway records into the shapes the console
// renders. Everything here is pure.
package viewmodel

import (
	"time"

	"github.com/tullo/chatdesk/internal/models"
)

// Sender tags who wrote a message relative to the signed-in user.
type Sender string

const (
	SenderMe    Sender = "me"
	SenderOther Sender = "other"
)

// DeliveryStatus tracks optimistic sends.
type DeliveryStatus string

const (
	StatusSent    DeliveryStatus = "sent"
	StatusPending DeliveryStatus = "pending"
	StatusFailed  DeliveryStatus = "failed"
)

type Message struct {
	ID              string             `json:"id"`
	ClientID        string             `json:"clientId,omitempty"`
	ConversationID  string             `json:"conversationId"`
	SenderID        string             `json:"senderId"`
	SenderName      string             `json:"senderName,omitempty"`
	Sender          Sender             `json:"sender"`
	Type            models.MessageType `json:"type"`
	Content         string             `json:"content"`
	Language        string             `json:"language,omitempty"`
	FileURL         string             `json:"fileUrl,omitempty"`
	FileName        string             `json:"fileName,omitempty"`
	Timestamp       string             `json:"timestamp"`
	CreatedAt       time.Time          `json:"createdAt"`
	Edited          bool               `json:"edited"`
	Read            bool               `json:"read"`
	ReadBy          []string           `json:"readBy,omitempty"`
	Status          DeliveryStatus     `json:"status"`
	ShowDateDivider bool               `json:"showDateDivider,omitempty"`
	DateLabel       string             `json:"dateLabel,omitempty"`
}

// ToMessage maps a wire message to its view-model. Text content is
// sanitized; code and file payloads are left for the renderer to escape.
func ToMessage(m models.Message, currentUserID string) Message {
	sender := SenderOther
	if m.SenderID == currentUserID {
		sender = SenderMe
	}

	content := m.Content
	kind := m.Type
	if kind == "" {
		kind = models.MessageText
	}
	if kind == models.MessageText {
		content = Sanitize(content)
	}

	var name string
	if m.Sender != nil {
		name = m.Sender.DisplayName()
	}

	readBy := append([]string(nil), m.ReadBy...)

	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     name,
		Sender:         sender,
		Type:           kind,
		Content:        content,
		Language:       m.Language,
		FileURL:        m.FileURL,
		FileName:       m.FileName,
		Timestamp:      DisplayTime(m.CreatedAt),
		CreatedAt:      m.CreatedAt,
		Edited:         m.Edited,
		Read:           isRead(sender, m.SenderID, currentUserID, readBy),
		ReadBy:         readBy,
		Status:         StatusSent,
	}
}

// ToMessages maps a list of wire messages, preserving order
func ToMessages(ms []models.Message, currentUserID string) []Message {
	out := make([]Message, 0, len(ms))
	for _, m := range ms {
		out = append(out, ToMessage(m, currentUserID))
	}
	return out
}

// isRead: my messages count as read once anyone else read them; other
// messages once I did.
func isRead(sender Sender, senderID, currentUserID string, readBy []string) bool {
	for _, id := range readBy {
		if sender == SenderMe && id != senderID {
			return true
		}
		if sender == SenderOther && id == currentUserID {
			return true
		}
	}
	return false
}

// WithReader returns a copy of m with userID added to its readers
func WithReader(m Message, userID, currentUserID string) Message {
	for _, id := range m.ReadBy {
		if id == userID {
			return m
		}
	}
	m.ReadBy = append(append([]string(nil), m.ReadBy...), userID)
	m.Read = isRead(m.Sender, m.SenderID, currentUserID, m.ReadBy)
	return m
}

// Preview returns the conversation-list preview text for a message
func Preview(m Message) string {
	switch m.Type {
	case models.MessageImage:
		return "Sent an image"
	case models.MessageFile:
		if m.FileName != "" {
			return "Sent a file: " + m.FileName
		}
		return "Sent a file"
	case models.MessageCode:
		return "Sent a code snippet"
	}
	return truncate(m.Content, 80)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
