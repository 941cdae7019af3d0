package viewmodel

import (
	"time"

	"github.com/tullo/chatdesk/internal/models"
)

type Conversation struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Topic           string               `json:"topic,omitempty"`
	Type            string               `json:"type,omitempty"`
	AvatarURL       string               `json:"avatarUrl,omitempty"`
	Online          bool                 `json:"online"`
	LastMessage     string               `json:"lastMessage,omitempty"`
	LastMessageAt   time.Time            `json:"lastMessageAt"`
	LastMessageTime string               `json:"lastMessageTime,omitempty"`
	UnreadCount     int                  `json:"unreadCount"`
	Participants    []models.Participant `json:"participants,omitempty"`
	Archived        bool                 `json:"archived"`
	Starred         bool                 `json:"starred"`
}

// ToConversation maps a wire conversation. Direct conversations without a
// title are named after the other participant.
func ToConversation(c models.Conversation, currentUserID string, now time.Time) Conversation {
	name := c.Title
	avatar := c.AvatarURL
	if name == "" {
		for _, p := range c.Participants {
			if p.ID == currentUserID {
				continue
			}
			name = p.DisplayName()
			if avatar == "" {
				avatar = p.AvatarURL
			}
			break
		}
	}

	var last time.Time
	if c.LastMessageAt != nil {
		last = *c.LastMessageAt
	}

	return Conversation{
		ID:              c.ID,
		Name:            name,
		Topic:           c.Topic,
		Type:            c.Type,
		AvatarURL:       avatar,
		Online:          c.Online,
		LastMessage:     truncate(c.LastMessage, 80),
		LastMessageAt:   last,
		LastMessageTime: RelativeTime(last, now),
		UnreadCount:     c.UnreadCount,
		Participants:    append([]models.Participant(nil), c.Participants...),
		Archived:        c.Archived,
		Starred:         c.Starred,
	}
}

// ToConversations maps a list of wire conversations, preserving order
func ToConversations(cs []models.Conversation, currentUserID string, now time.Time) []Conversation {
	out := make([]Conversation, 0, len(cs))
	for _, c := range cs {
		out = append(out, ToConversation(c, currentUserID, now))
	}
	return out
}

// HasParticipant reports whether userID is a member of c
func (c Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}
