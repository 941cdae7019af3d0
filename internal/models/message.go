package models

import (
	"time"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageCode  MessageType = "code"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

// HasFile reports whether messages of this type carry a file reference
func (t MessageType) HasFile() bool {
	return t == MessageImage || t == MessageFile
}

type Message struct {
	ID             string       `json:"id" validate:"required"`
	ConversationID string       `json:"conversationId" validate:"required"`
	SenderID       string       `json:"senderId" validate:"required"`
	Sender         *Participant `json:"sender,omitempty"`
	Type           MessageType  `json:"type,omitempty" validate:"omitempty,oneof=text code image file"`
	Content        string       `json:"content"`
	Language       string       `json:"language,omitempty"`
	FileURL        string       `json:"fileUrl,omitempty"`
	FileName       string       `json:"fileName,omitempty"`
	FileSize       int64        `json:"fileSize,omitempty" validate:"gte=0"`
	Edited         bool         `json:"edited"`
	ReadBy         []string     `json:"readBy,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      *time.Time   `json:"updatedAt,omitempty"`
}

// SendMessageRequest carries a new message. File messages reference an
// upload that already lives in media storage.
type SendMessageRequest struct {
	Content  string      `json:"content"`
	Type     MessageType `json:"type,omitempty"`
	FileURL  string      `json:"fileUrl,omitempty"`
	FileName string      `json:"fileName,omitempty"`
	FileSize int64       `json:"fileSize,omitempty"`
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

type MarkReadRequest struct {
	MessageIDs []string `json:"messageIds,omitempty"`
}

// Pagination is the paging block of a history response.
type Pagination struct {
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}
