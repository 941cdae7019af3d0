package models

import (
	"time"
)

// Conversation types the gateway knows about.
const (
	ConversationDirect  = "direct"
	ConversationGroup   = "group"
	ConversationSupport = "support"
)

type Conversation struct {
	ID            string        `json:"id" validate:"required"`
	Title         string        `json:"title"`
	Topic         string        `json:"topic,omitempty"`
	Type          string        `json:"type,omitempty" validate:"omitempty,oneof=direct group support"`
	AvatarURL     string        `json:"avatarUrl,omitempty"`
	Online        bool          `json:"online"`
	LastMessage   string        `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time    `json:"lastMessageAt,omitempty"`
	UnreadCount   int           `json:"unreadCount" validate:"gte=0"`
	Participants  []Participant `json:"participants,omitempty" validate:"dive"`
	Archived      bool          `json:"archived"`
	Starred       bool          `json:"starred"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type StartConversationRequest struct {
	ParticipantIDs []string `json:"participantIds"`
	Title          string   `json:"title,omitempty"`
}

type CreateConversationRequest struct {
	Title        string   `json:"title"`
	Participants []string `json:"participants"`
	Type         string   `json:"type"`
}

type ArchiveRequest struct {
	Archived bool `json:"archived"`
}

type StarRequest struct {
	Starred bool `json:"starred"`
}
