package store

import (
	"github.com/tullo/chatdesk/internal/viewmodel"
)

// MessagePatch lists the fields to overwrite; nil fields are kept.
type MessagePatch struct {
	Content *string
	Edited  *bool
	Read    *bool
	ReadBy  []string
	Status  *viewmodel.DeliveryStatus
}

func (p MessagePatch) apply(m *viewmodel.Message) {
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Edited != nil {
		m.Edited = *p.Edited
	}
	if p.Read != nil {
		m.Read = *p.Read
	}
	if p.ReadBy != nil {
		m.ReadBy = append([]string(nil), p.ReadBy...)
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
}

// SetMessages replaces the bucket of a conversation
func (s *Store) SetMessages(conversationID string, list []viewmodel.Message) {
	s.mu.Lock()
	s.messages[conversationID] = append([]viewmodel.Message(nil), list...)
	s.mu.Unlock()

	s.notify(Change{Kind: MessagesChanged, ConversationID: conversationID})
}

// AddMessage appends m to the end of the conversation's bucket. It does not
// deduplicate.
func (s *Store) AddMessage(conversationID string, m viewmodel.Message) {
	s.mu.Lock()
	s.messages[conversationID] = append(s.messages[conversationID], m)
	s.mu.Unlock()

	s.notify(Change{Kind: MessageAdded, ConversationID: conversationID, MessageID: m.ID})
}

// PrependMessages inserts an older history page before the existing
// messages. It does not deduplicate.
func (s *Store) PrependMessages(conversationID string, older []viewmodel.Message) {
	if len(older) == 0 {
		return
	}

	s.mu.Lock()
	cur := s.messages[conversationID]
	merged := make([]viewmodel.Message, 0, len(older)+len(cur))
	merged = append(merged, older...)
	merged = append(merged, cur...)
	s.messages[conversationID] = merged
	s.mu.Unlock()

	s.notify(Change{Kind: MessagesChanged, ConversationID: conversationID})
}

// InsertMessage puts m at index i of the bucket, clamped to its bounds
func (s *Store) InsertMessage(conversationID string, i int, m viewmodel.Message) {
	s.mu.Lock()
	cur := s.messages[conversationID]
	if i < 0 {
		i = 0
	}
	if i > len(cur) {
		i = len(cur)
	}
	next := make([]viewmodel.Message, 0, len(cur)+1)
	next = append(next, cur[:i]...)
	next = append(next, m)
	next = append(next, cur[i:]...)
	s.messages[conversationID] = next
	s.mu.Unlock()

	s.notify(Change{Kind: MessageAdded, ConversationID: conversationID, MessageID: m.ID})
}

// MessageIndex returns the position of a message in its bucket, or -1
func (s *Store) MessageIndex(conversationID, messageID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return indexOf(s.messages[conversationID], messageID)
}

// UpdateMessage applies patch to a message. It reports false when the
// message is unknown.
func (s *Store) UpdateMessage(conversationID, messageID string, patch MessagePatch) bool {
	return s.MutateMessage(conversationID, messageID, patch.apply)
}

// MutateMessage runs fn on the stored message under the store lock
func (s *Store) MutateMessage(conversationID, messageID string, fn func(*viewmodel.Message)) bool {
	s.mu.Lock()
	bucket := s.messages[conversationID]
	i := indexOf(bucket, messageID)
	if i >= 0 {
		next := append([]viewmodel.Message(nil), bucket...)
		fn(&next[i])
		next[i].ID = messageID
		s.messages[conversationID] = next
	}
	s.mu.Unlock()

	if i < 0 {
		return false
	}
	s.notify(Change{Kind: MessageChanged, ConversationID: conversationID, MessageID: messageID})
	return true
}

// ReplaceMessage swaps the message with id messageID for m, keeping its
// position. Used when a pending message is confirmed under its server id.
func (s *Store) ReplaceMessage(conversationID, messageID string, m viewmodel.Message) bool {
	s.mu.Lock()
	bucket := s.messages[conversationID]
	i := indexOf(bucket, messageID)
	if i >= 0 {
		next := append([]viewmodel.Message(nil), bucket...)
		next[i] = m
		s.messages[conversationID] = next
	}
	s.mu.Unlock()

	if i < 0 {
		return false
	}
	s.notify(Change{Kind: MessageChanged, ConversationID: conversationID, MessageID: m.ID})
	return true
}

// RemoveMessage deletes a message from its bucket
func (s *Store) RemoveMessage(conversationID, messageID string) bool {
	s.mu.Lock()
	bucket := s.messages[conversationID]
	i := indexOf(bucket, messageID)
	if i >= 0 {
		next := make([]viewmodel.Message, 0, len(bucket)-1)
		next = append(next, bucket[:i]...)
		next = append(next, bucket[i+1:]...)
		s.messages[conversationID] = next
	}
	s.mu.Unlock()

	if i < 0 {
		return false
	}
	s.notify(Change{Kind: MessageRemoved, ConversationID: conversationID, MessageID: messageID})
	return true
}

// Messages returns a copy of the conversation's bucket in order
func (s *Store) Messages(conversationID string) []viewmodel.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]viewmodel.Message(nil), s.messages[conversationID]...)
}

// Message returns a single message
func (s *Store) Message(conversationID, messageID string) (viewmodel.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.messages[conversationID]
	if i := indexOf(bucket, messageID); i >= 0 {
		return bucket[i], true
	}
	return viewmodel.Message{}, false
}

// HasMessage reports whether the bucket holds a message with the given id
func (s *Store) HasMessage(conversationID, messageID string) bool {
	_, ok := s.Message(conversationID, messageID)
	return ok
}

// HasBucket reports whether messages were ever set for the conversation
func (s *Store) HasBucket(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.messages[conversationID]
	return ok
}

// LastMessage returns the newest message of a conversation
func (s *Store) LastMessage(conversationID string) (viewmodel.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.messages[conversationID]
	if len(bucket) == 0 {
		return viewmodel.Message{}, false
	}
	return bucket[len(bucket)-1], true
}

func indexOf(bucket []viewmodel.Message, id string) int {
	for i := range bucket {
		if bucket[i].ID == id {
			return i
		}
	}
	return -1
}
