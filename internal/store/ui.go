package store

import "sort"

// Connection and presence

// SetConnection records the transport status and, when connected, the
// socket session id.
func (s *Store) SetConnection(status ConnectionStatus, socketID string) {
	s.mu.Lock()
	changed := s.status != status || s.socketID != socketID
	s.status = status
	s.socketID = socketID
	s.mu.Unlock()

	if changed {
		s.notify(Change{Kind: ConnectionChanged})
	}
}

// SetConnected is a shorthand for toggling between connected and
// disconnected without a socket id
func (s *Store) SetConnected(connected bool) {
	if connected {
		s.SetConnection(StatusConnected, "")
		return
	}
	s.SetConnection(StatusDisconnected, "")
}

// Connection returns the transport status and socket id
func (s *Store) Connection() (ConnectionStatus, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status, s.socketID
}

// Connected reports whether the transport is up
func (s *Store) Connected() bool {
	status, _ := s.Connection()
	return status == StatusConnected
}

// The online set is replaced, never mutated in place, so a set handed out
// by OnlineUsers stays unchanged.

// SetOnlineUsers replaces the online set
func (s *Store) SetOnlineUsers(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	s.mu.Lock()
	s.online = next
	s.mu.Unlock()

	s.notify(Change{Kind: PresenceChanged})
}

// AddOnlineUser marks a user online
func (s *Store) AddOnlineUser(id string) {
	s.mu.Lock()
	if _, ok := s.online[id]; ok {
		s.mu.Unlock()
		return
	}
	next := make(map[string]struct{}, len(s.online)+1)
	for k := range s.online {
		next[k] = struct{}{}
	}
	next[id] = struct{}{}
	s.online = next
	s.mu.Unlock()

	s.notify(Change{Kind: PresenceChanged, UserID: id})
}

// RemoveOnlineUser marks a user offline
func (s *Store) RemoveOnlineUser(id string) {
	s.mu.Lock()
	if _, ok := s.online[id]; !ok {
		s.mu.Unlock()
		return
	}
	next := make(map[string]struct{}, len(s.online))
	for k := range s.online {
		if k != id {
			next[k] = struct{}{}
		}
	}
	s.online = next
	s.mu.Unlock()

	s.notify(Change{Kind: PresenceChanged, UserID: id})
}

// OnlineUsers returns the current online set. The map must not be modified.
func (s *Store) OnlineUsers() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.online
}

// IsOnline reports whether a user is online
func (s *Store) IsOnline(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.online[id]
	return ok
}

// Selection, search and filter

// SelectConversation sets the selected conversation; empty clears it
func (s *Store) SelectConversation(id string) {
	s.mu.Lock()
	changed := s.selected != id
	s.selected = id
	s.mu.Unlock()

	if changed {
		s.notify(Change{Kind: SelectionChanged, ConversationID: id})
	}
}

// Selected returns the selected conversation id
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selected
}

// SetSearchQuery sets the conversation search query
func (s *Store) SetSearchQuery(q string) {
	s.mu.Lock()
	s.search = q
	s.mu.Unlock()

	s.notify(Change{Kind: UIChanged})
}

// SearchQuery returns the conversation search query
func (s *Store) SearchQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.search
}

// SetFilter sets the conversation filter tab
func (s *Store) SetFilter(f Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()

	s.notify(Change{Kind: UIChanged})
}

// Filter returns the conversation filter tab
func (s *Store) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter
}

// SetDialogOpen toggles a named dialog such as "new_conversation"
func (s *Store) SetDialogOpen(name string, open bool) {
	s.mu.Lock()
	if open {
		s.dialogs[name] = true
	} else {
		delete(s.dialogs, name)
	}
	s.mu.Unlock()

	s.notify(Change{Kind: UIChanged})
}

// DialogOpen reports whether a named dialog is open
func (s *Store) DialogOpen(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dialogs[name]
}

// OpenDialogs returns the names of the open dialogs, sorted
func (s *Store) OpenDialogs() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.dialogs))
	for name := range s.dialogs {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Per-conversation bookkeeping. Every flag is keyed by conversation so one
// conversation never clobbers another.

// SetPage records the paging cursor of a conversation
func (s *Store) SetPage(conversationID string, p Page) {
	s.mu.Lock()
	s.pages[conversationID] = p
	s.mu.Unlock()

	s.notify(Change{Kind: UIChanged, ConversationID: conversationID})
}

// Page returns the paging cursor of a conversation. Unknown conversations
// report HasMore so the first page gets requested.
func (s *Store) Page(conversationID string) Page {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pages[conversationID]
	if !ok {
		return Page{HasMore: true}
	}
	return p
}

// SetLoading toggles the loading flag of a conversation
func (s *Store) SetLoading(conversationID string, loading bool) {
	s.mu.Lock()
	if loading {
		s.loading[conversationID] = true
	} else {
		delete(s.loading, conversationID)
	}
	s.mu.Unlock()

	s.notify(Change{Kind: LoadingChanged, ConversationID: conversationID})
}

// TryStartLoading sets the loading flag unless it is already set. It reports
// whether the caller now owns the flag.
func (s *Store) TryStartLoading(conversationID string) bool {
	s.mu.Lock()
	if s.loading[conversationID] {
		s.mu.Unlock()
		return false
	}
	s.loading[conversationID] = true
	s.mu.Unlock()

	s.notify(Change{Kind: LoadingChanged, ConversationID: conversationID})
	return true
}

// IsLoading reports the loading flag of a conversation
func (s *Store) IsLoading(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading[conversationID]
}

// SetTyping records whether userID is typing in a conversation
func (s *Store) SetTyping(conversationID, userID string, typing bool) {
	s.mu.Lock()
	users := s.typing[conversationID]
	if typing {
		if users == nil {
			users = make(map[string]bool)
			s.typing[conversationID] = users
		}
		users[userID] = true
	} else if users != nil {
		delete(users, userID)
		if len(users) == 0 {
			delete(s.typing, conversationID)
		}
	}
	s.mu.Unlock()

	s.notify(Change{Kind: TypingChanged, ConversationID: conversationID, UserID: userID})
}

// TypingUsers returns who is typing in a conversation
func (s *Store) TypingUsers(conversationID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.typing[conversationID]))
	for id := range s.typing[conversationID] {
		users = append(users, id)
	}
	return users
}

// IsTyping reports whether anyone is typing in a conversation
func (s *Store) IsTyping(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.typing[conversationID]) > 0
}
