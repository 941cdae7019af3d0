package chat

import (
	"encoding/json"
	"log"

	"github.com/tullo/chatdesk/internal/metrics"
	"github.com/tullo/chatdesk/internal/models"
	"github.com/tullo/chatdesk/internal/store"
	"github.com/tullo/chatdesk/internal/viewmodel"
)

// handleEvent applies a gateway push to the store. Malformed payloads are
// logged and dropped.
func (s *Session) handleEvent(event string, payload json.RawMessage) {
	var err error
	switch event {
	case models.EventNewMessage:
		err = s.onNewMessage(payload)
	case models.EventMessageUpdated:
		err = s.onMessageUpdated(payload)
	case models.EventMessageDeleted:
		var p models.WSMessageDeletedPayload
		if err = models.DecodePayload(event, payload, &p); err == nil {
			s.store.RemoveMessage(p.ConversationID, p.MessageID)
		}
	case models.EventMessagesRead:
		var p models.WSMessagesReadPayload
		if err = models.DecodePayload(event, payload, &p); err == nil {
			s.onMessagesRead(p)
		}
	case models.EventUserOnline, models.EventUserOffline:
		var p models.WSPresencePayload
		if err = models.DecodePayload(event, payload, &p); err == nil {
			s.onPresence(p.UserID, event == models.EventUserOnline)
		}
	case models.EventOnlineUsers:
		var p models.WSOnlineUsersPayload
		if err = models.DecodePayload(event, payload, &p); err == nil {
			s.store.SetOnlineUsers(p.UserIDs)
			s.refreshOnlineFlags()
		}
	case models.EventUserTyping, models.EventUserStoppedTyping:
		var p models.WSUserTypingPayload
		if err = models.DecodePayload(event, payload, &p); err == nil && p.UserID != s.cfg.UserID {
			s.store.SetTyping(p.ConversationID, p.UserID, event == models.EventUserTyping)
		}
	case models.EventConversationCreated, models.EventConversationUpdated:
		err = s.onConversation(event, payload)
	case models.EventError:
		var p models.WSErrorPayload
		if err = models.DecodePayload(event, payload, &p); err == nil {
			log.Printf("[chat] gateway error: %s", p.Message)
			s.notify(LevelError, userMessage(&RejectedError{Message: p.Message}, "Chat server error"))
		}
	default:
		log.Printf("[chat] ignoring unknown event %q", event)
	}

	if err != nil {
		log.Printf("[chat] dropping %s: %v", event, err)
	}
}

// onNewMessage appends a pushed message unless a message with the same id is
// already held, which happens when the gateway replays after a reconnect
func (s *Session) onNewMessage(payload json.RawMessage) error {
	wire, err := models.DecodeMessage(payload)
	if err != nil {
		return err
	}
	convID := wire.ConversationID

	if s.store.HasMessage(convID, wire.ID) {
		metrics.MessagesTotal.WithLabelValues("duplicate").Inc()
		return nil
	}
	metrics.MessagesTotal.WithLabelValues("received").Inc()

	m := viewmodel.ToMessage(*wire, s.cfg.UserID)
	if s.store.HasBucket(convID) {
		s.store.AddMessage(convID, m)
	}
	s.store.SetTyping(convID, m.SenderID, false)

	if _, known := s.store.Conversation(convID); !known {
		// the list is stale; the next refresh brings the conversation in
		log.Printf("[chat] message %s for unknown conversation %s", m.ID, convID)
		return nil
	}

	s.setPreview(convID, m)
	if m.Sender == viewmodel.SenderOther && s.store.Selected() != convID {
		s.store.MutateConversation(convID, func(c *viewmodel.Conversation) {
			c.UnreadCount++
		})
	}
	return nil
}

func (s *Session) onMessageUpdated(payload json.RawMessage) error {
	wire, err := models.DecodeMessage(payload)
	if err != nil {
		return err
	}
	m := viewmodel.ToMessage(*wire, s.cfg.UserID)
	s.store.MutateMessage(wire.ConversationID, wire.ID, func(cur *viewmodel.Message) {
		cur.Content = m.Content
		cur.Edited = m.Edited
		if m.ReadBy != nil {
			cur.ReadBy = m.ReadBy
			cur.Read = m.Read
		}
	})
	return nil
}

// onMessagesRead adds the reader to the listed messages, or to every
// message of the conversation when no ids are given
func (s *Session) onMessagesRead(p models.WSMessagesReadPayload) {
	ids := p.MessageIDs
	if len(ids) == 0 {
		for _, m := range s.store.Messages(p.ConversationID) {
			ids = append(ids, m.ID)
		}
	}
	for _, id := range ids {
		s.store.MutateMessage(p.ConversationID, id, func(m *viewmodel.Message) {
			*m = viewmodel.WithReader(*m, p.UserID, s.cfg.UserID)
		})
	}
	if p.UserID == s.cfg.UserID {
		zero := 0
		s.store.UpdateConversation(p.ConversationID, store.ConversationPatch{UnreadCount: &zero})
	}
}

func (s *Session) onPresence(userID string, online bool) {
	if online {
		s.store.AddOnlineUser(userID)
	} else {
		s.store.RemoveOnlineUser(userID)
	}
	for _, c := range s.store.Conversations() {
		if c.Type == models.ConversationDirect && c.HasParticipant(userID) && c.Online != online {
			v := online
			s.store.UpdateConversation(c.ID, store.ConversationPatch{Online: &v})
		}
	}
}

func (s *Session) refreshOnlineFlags() {
	for _, c := range s.store.Conversations() {
		if c.Type != models.ConversationDirect {
			continue
		}
		if online := s.peerOnline(c); online != c.Online {
			s.store.UpdateConversation(c.ID, store.ConversationPatch{Online: &online})
		}
	}
}

func (s *Session) onConversation(event string, payload json.RawMessage) error {
	wire, err := models.DecodeConversation(payload)
	if err != nil {
		return err
	}
	if event == models.EventConversationCreated {
		s.adopt(*wire)
		return nil
	}

	if _, known := s.store.Conversation(wire.ID); !known {
		s.adopt(*wire)
		return nil
	}
	vm := viewmodel.ToConversation(*wire, s.cfg.UserID, s.now())
	s.store.UpdateConversation(wire.ID, store.ConversationPatch{
		Name:        &vm.Name,
		Topic:       &vm.Topic,
		AvatarURL:   &vm.AvatarURL,
		Archived:    &vm.Archived,
		Starred:     &vm.Starred,
		UnreadCount: &vm.UnreadCount,
	})
	return nil
}
