package models

import (
	"bytes"
	"encoding/json"
)

// Participant is a conversation member as the gateway sends it: either a
// bare user id or a pre-resolved profile fragment.
type Participant struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Role      string `json:"role,omitempty"`
}

// UnmarshalJSON accepts both "user-id" and {"id": "user-id", ...}.
func (p *Participant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = Participant{ID: id}
		return nil
	}

	type plain Participant
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Participant(v)
	return nil
}

// DisplayName returns the best available label for the participant
func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Email != "" {
		return p.Email
	}
	return p.ID
}

type UserPresence struct {
	UserID string `json:"userId"`
	Status string `json:"status"` // online, offline
}
