package store

import (
	"sort"
	"strings"
	"time"

	"github.com/tullo/chatdesk/internal/viewmodel"
)

// ConversationPatch lists the fields to overwrite; nil fields are kept.
type ConversationPatch struct {
	Name          *string
	Topic         *string
	AvatarURL     *string
	Online        *bool
	LastMessage   *string
	LastMessageAt *time.Time
	UnreadCount   *int
	Archived      *bool
	Starred       *bool
}

func (p ConversationPatch) apply(c *viewmodel.Conversation) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Topic != nil {
		c.Topic = *p.Topic
	}
	if p.AvatarURL != nil {
		c.AvatarURL = *p.AvatarURL
	}
	if p.Online != nil {
		c.Online = *p.Online
	}
	if p.LastMessage != nil {
		c.LastMessage = *p.LastMessage
	}
	if p.LastMessageAt != nil {
		c.LastMessageAt = *p.LastMessageAt
	}
	if p.UnreadCount != nil {
		c.UnreadCount = *p.UnreadCount
	}
	if p.Archived != nil {
		c.Archived = *p.Archived
	}
	if p.Starred != nil {
		c.Starred = *p.Starred
	}
}

// SetConversations replaces the conversation list, keeping the given order.
// Message buckets are left alone.
func (s *Store) SetConversations(list []viewmodel.Conversation) {
	s.mu.Lock()
	s.order = make([]string, 0, len(list))
	s.conversations = make(map[string]viewmodel.Conversation, len(list))
	for _, c := range list {
		if _, dup := s.conversations[c.ID]; !dup {
			s.order = append(s.order, c.ID)
		}
		s.conversations[c.ID] = c
	}
	s.mu.Unlock()

	s.notify(Change{Kind: ConversationsChanged})
}

// AddConversation puts c at the top of the list, or replaces it in place if
// it is already known.
func (s *Store) AddConversation(c viewmodel.Conversation) {
	s.mu.Lock()
	if _, ok := s.conversations[c.ID]; !ok {
		s.order = append([]string{c.ID}, s.order...)
	}
	s.conversations[c.ID] = c
	s.mu.Unlock()

	s.notify(Change{Kind: ConversationChanged, ConversationID: c.ID})
}

// UpdateConversation applies patch to the conversation. It reports false when
// the conversation is unknown.
func (s *Store) UpdateConversation(id string, patch ConversationPatch) bool {
	return s.MutateConversation(id, patch.apply)
}

// MutateConversation runs fn on the stored conversation under the store lock,
// for read-modify-write updates such as incrementing the unread count.
func (s *Store) MutateConversation(id string, fn func(*viewmodel.Conversation)) bool {
	s.mu.Lock()
	c, ok := s.conversations[id]
	if ok {
		fn(&c)
		c.ID = id
		s.conversations[id] = c
	}
	s.mu.Unlock()

	if ok {
		s.notify(Change{Kind: ConversationChanged, ConversationID: id})
	}
	return ok
}

// RemoveConversation drops the conversation, its message bucket and its UI
// bookkeeping, and clears the selection if it pointed at it.
func (s *Store) RemoveConversation(id string) {
	s.mu.Lock()
	_, known := s.conversations[id]
	delete(s.conversations, id)
	delete(s.messages, id)
	delete(s.pages, id)
	delete(s.loading, id)
	delete(s.typing, id)
	for i, cid := range s.order {
		if cid == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	wasSelected := s.selected == id
	if wasSelected {
		s.selected = ""
	}
	s.mu.Unlock()

	changes := []Change{{Kind: ConversationRemoved, ConversationID: id}}
	if wasSelected {
		changes = append(changes, Change{Kind: SelectionChanged})
	}
	if known || wasSelected {
		s.notify(changes...)
	}
}

// Conversation returns the conversation with the given id
func (s *Store) Conversation(id string) (viewmodel.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	return c, ok
}

// Conversations returns all conversations in list order
func (s *Store) Conversations() []viewmodel.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]viewmodel.Conversation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.conversations[id])
	}
	return out
}

// FilteredConversations applies the active filter tab and search query and
// orders the result by last activity, newest first. "all" and "unread" hide
// archived conversations.
func (s *Store) FilteredConversations() []viewmodel.Conversation {
	s.mu.RLock()
	filter, query := s.filter, strings.ToLower(strings.TrimSpace(s.search))
	s.mu.RUnlock()

	var out []viewmodel.Conversation
	for _, c := range s.Conversations() {
		if !matchesFilter(c, filter) || !matchesQuery(c, query) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out
}

func matchesFilter(c viewmodel.Conversation, f Filter) bool {
	switch f {
	case FilterUnread:
		return !c.Archived && c.UnreadCount > 0
	case FilterArchived:
		return c.Archived
	case FilterStarred:
		return c.Starred
	default:
		return !c.Archived
	}
}

func matchesQuery(c viewmodel.Conversation, q string) bool {
	if q == "" {
		return true
	}
	for _, field := range []string{c.Name, c.Topic, c.LastMessage} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// TotalUnread sums the unread counts of non-archived conversations
func (s *Store) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, c := range s.conversations {
		if !c.Archived {
			total += c.UnreadCount
		}
	}
	return total
}
