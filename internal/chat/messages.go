package chat

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/tullo/chatdesk/internal/metrics"
	"github.com/tullo/chatdesk/internal/models"
	"github.com/tullo/chatdesk/internal/store"
	"github.com/tullo/chatdesk/internal/validation"
	"github.com/tullo/chatdesk/internal/viewmodel"
	"github.com/tullo/chatdesk/internal/websocket"
)

// Send validates and rate-limits content, shows it immediately as pending and
// submits it over the socket, or over REST while the socket is down. The
// pending message is replaced by the server copy on success and removed on
// failure. A failed send is never resubmitted.
func (s *Session) Send(ctx context.Context, conversationID, content string, kind models.MessageType) (viewmodel.Message, error) {
	if kind == "" {
		kind = models.MessageText
	}
	if err := s.validateContent(content); err != nil {
		return viewmodel.Message{}, s.fail(err, "Invalid message")
	}
	return s.send(ctx, conversationID, models.SendMessageRequest{Content: content, Type: kind})
}

// Attachment is a file already uploaded to media storage
type Attachment struct {
	URL      string
	Name     string
	MIMEType string
	Size     int64
	Caption  string
}

// SendAttachment sends a file message with an optional caption. Anything
// with an image/ MIME type is sent as an image and held to the image rules.
func (s *Session) SendAttachment(ctx context.Context, conversationID string, a Attachment) (viewmodel.Message, error) {
	req := models.SendMessageRequest{
		Content:  a.Caption,
		Type:     models.MessageFile,
		FileURL:  a.URL,
		FileName: a.Name,
		FileSize: a.Size,
	}

	var err error
	if strings.HasPrefix(strings.ToLower(a.MIMEType), "image/") {
		req.Type = models.MessageImage
		err = validation.Image(a.Name, a.MIMEType, a.Size)
	} else {
		err = validation.File(a.Name, a.Size)
	}
	if err == nil && a.URL == "" {
		err = &validation.ValidationError{Field: "fileUrl", Reason: "is required"}
	}
	if err == nil && a.Caption != "" {
		err = s.validateContent(a.Caption)
	}
	if err != nil {
		return viewmodel.Message{}, s.fail(err, "Invalid attachment")
	}
	return s.send(ctx, conversationID, req)
}

func (s *Session) send(ctx context.Context, conversationID string, req models.SendMessageRequest) (viewmodel.Message, error) {
	conv, ok := s.store.Conversation(conversationID)
	if !ok {
		return viewmodel.Message{}, s.fail(ErrUnknownConversation, "Conversation not found")
	}
	if d := s.limiter.Allow(); !d.Allowed {
		return viewmodel.Message{}, s.fail(&RateLimitError{RetryAfter: d.RetryAfter}, "Slow down")
	}

	now := s.now()
	tempID := "tmp-" + uuid.NewString()
	optimistic := viewmodel.ToMessage(models.Message{
		ID:             tempID,
		ConversationID: conversationID,
		SenderID:       s.cfg.UserID,
		Type:           req.Type,
		Content:        req.Content,
		FileURL:        req.FileURL,
		FileName:       req.FileName,
		FileSize:       req.FileSize,
		CreatedAt:      now,
	}, s.cfg.UserID)
	optimistic.ClientID = tempID
	optimistic.Status = viewmodel.StatusPending

	action := s.pending.begin(ActionSend, conversationID, tempID)
	s.store.AddMessage(conversationID, optimistic)
	s.setPreview(conversationID, optimistic)

	wire, err := s.deliver(ctx, conversationID, req)
	if err != nil {
		s.pending.fail(action, err)
		failed := viewmodel.StatusFailed
		s.store.UpdateMessage(conversationID, tempID, store.MessagePatch{Status: &failed})

		s.store.RemoveMessage(conversationID, tempID)
		s.restorePreview(conversationID, optimistic, conv)
		s.pending.rollBack(action)

		metrics.MessagesTotal.WithLabelValues("failed").Inc()
		return viewmodel.Message{}, s.fail(err, "Failed to send message")
	}

	confirmed := viewmodel.ToMessage(*wire, s.cfg.UserID)
	confirmed.ClientID = tempID
	if s.store.HasMessage(conversationID, confirmed.ID) {
		// the push for our own message won the race with the ack
		s.store.RemoveMessage(conversationID, tempID)
	} else {
		s.store.ReplaceMessage(conversationID, tempID, confirmed)
	}
	s.setPreview(conversationID, confirmed)
	s.pending.confirm(action, confirmed.ID)

	metrics.MessagesTotal.WithLabelValues("sent").Inc()
	return confirmed, nil
}

// deliver submits over the socket when it is up and over REST otherwise.
// Once a frame went out it is not resent over REST, since the gateway may
// have stored it.
func (s *Session) deliver(ctx context.Context, conversationID string, req models.SendMessageRequest) (*models.Message, error) {
	if s.transport.IsConnected() {
		res, err := s.transport.SendMessage(ctx, conversationID, req)
		switch {
		case err == nil && !res.Success:
			return nil, &RejectedError{Op: "send", Message: res.Error}
		case err == nil && res.Message == nil:
			return nil, &RejectedError{Op: "send", Message: "empty acknowledgement"}
		case err == nil:
			return res.Message, nil
		case !errors.Is(err, websocket.ErrNotConnected):
			return nil, err
		}
	}
	return s.service.PostMessage(ctx, conversationID, req)
}

func (s *Session) setPreview(conversationID string, m viewmodel.Message) {
	preview := viewmodel.Preview(m)
	at := m.CreatedAt
	now := s.now()
	s.store.MutateConversation(conversationID, func(c *viewmodel.Conversation) {
		c.LastMessage = preview
		if !at.IsZero() {
			c.LastMessageAt = at
			c.LastMessageTime = viewmodel.RelativeTime(at, now)
		}
	})
}

// restorePreview puts back the preview from before an optimistic send unless
// something newer replaced it meanwhile
func (s *Session) restorePreview(conversationID string, optimistic viewmodel.Message, before viewmodel.Conversation) {
	preview := viewmodel.Preview(optimistic)
	s.store.MutateConversation(conversationID, func(c *viewmodel.Conversation) {
		if c.LastMessage != preview || !c.LastMessageAt.Equal(optimistic.CreatedAt) {
			return
		}
		c.LastMessage = before.LastMessage
		c.LastMessageAt = before.LastMessageAt
		c.LastMessageTime = before.LastMessageTime
	})
}

// Edit replaces the content of one of the user's messages
func (s *Session) Edit(ctx context.Context, conversationID, messageID, content string) error {
	if err := s.validateContent(content); err != nil {
		return s.fail(err, "Invalid message")
	}
	old, ok := s.store.Message(conversationID, messageID)
	if !ok {
		return s.fail(ErrUnknownMessage, "Message not found")
	}

	action := s.pending.begin(ActionEdit, conversationID, messageID)
	shown := content
	if old.Type == models.MessageText {
		shown = viewmodel.Sanitize(content)
	}
	edited := true
	s.store.UpdateMessage(conversationID, messageID, store.MessagePatch{Content: &shown, Edited: &edited})

	wire, err := s.service.EditMessage(ctx, conversationID, messageID, content)
	if err != nil {
		s.pending.fail(action, err)
		s.store.UpdateMessage(conversationID, messageID, store.MessagePatch{Content: &old.Content, Edited: &old.Edited})
		s.pending.rollBack(action)
		return s.fail(err, "Failed to edit message")
	}

	if wire != nil {
		vm := viewmodel.ToMessage(*wire, s.cfg.UserID)
		s.store.UpdateMessage(conversationID, messageID, store.MessagePatch{Content: &vm.Content, Edited: &vm.Edited})
	}
	s.pending.confirm(action, "")
	return nil
}

// DeleteMessage removes a message, restoring it in place if the server
// refuses
func (s *Session) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	old, ok := s.store.Message(conversationID, messageID)
	if !ok {
		return s.fail(ErrUnknownMessage, "Message not found")
	}
	index := s.store.MessageIndex(conversationID, messageID)

	action := s.pending.begin(ActionDeleteMessage, conversationID, messageID)
	s.store.RemoveMessage(conversationID, messageID)

	if err := s.service.DeleteMessage(ctx, conversationID, messageID); err != nil {
		s.pending.fail(action, err)
		if !s.store.HasMessage(conversationID, messageID) {
			s.store.InsertMessage(conversationID, index, old)
		}
		s.pending.rollBack(action)
		return s.fail(err, "Failed to delete message")
	}

	s.pending.confirm(action, "")
	return nil
}

// MarkRead clears the unread count of a conversation and records a read
// receipt for the messages of other participants
func (s *Session) MarkRead(ctx context.Context, conversationID string) error {
	conv, ok := s.store.Conversation(conversationID)
	if !ok {
		return s.fail(ErrUnknownConversation, "Conversation not found")
	}

	var ids []string
	before := make(map[string]viewmodel.Message)
	for _, m := range s.store.Messages(conversationID) {
		if m.Sender == viewmodel.SenderOther && !m.Read {
			ids = append(ids, m.ID)
			before[m.ID] = m
		}
	}
	if conv.UnreadCount == 0 && len(ids) == 0 {
		return nil
	}

	action := s.pending.begin(ActionMarkRead, conversationID, "")
	zero := 0
	s.store.UpdateConversation(conversationID, store.ConversationPatch{UnreadCount: &zero})
	for _, id := range ids {
		s.store.MutateMessage(conversationID, id, func(m *viewmodel.Message) {
			*m = viewmodel.WithReader(*m, s.cfg.UserID, s.cfg.UserID)
		})
	}

	if err := s.service.MarkRead(ctx, conversationID, ids); err != nil {
		s.pending.fail(action, err)
		s.store.UpdateConversation(conversationID, store.ConversationPatch{UnreadCount: &conv.UnreadCount})
		for id, m := range before {
			read, readBy := m.Read, m.ReadBy
			s.store.UpdateMessage(conversationID, id, store.MessagePatch{Read: &read, ReadBy: nonNil(readBy)})
		}
		s.pending.rollBack(action)
		return s.fail(err, "Failed to mark conversation as read")
	}

	s.pending.confirm(action, "")
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// Typing forwards typing state to the gateway, throttled per conversation.
// Typing signals are best effort; an offline socket is not an error.
func (s *Session) Typing(conversationID string, typing bool) error {
	if !s.transport.IsConnected() {
		return nil
	}
	if _, err := s.typing.signal(conversationID, typing); err != nil && !errors.Is(err, websocket.ErrNotConnected) {
		log.Printf("[chat] typing signal for %s failed: %v", conversationID, err)
		return err
	}
	return nil
}
