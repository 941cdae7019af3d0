package chat

import (
	"context"
	"log"

	"github.com/tullo/chatdesk/internal/models"
	"github.com/tullo/chatdesk/internal/store"
	"github.com/tullo/chatdesk/internal/validation"
	"github.com/tullo/chatdesk/internal/viewmodel"
)

// LoadConversations replaces the conversation list with the server's
func (s *Session) LoadConversations(ctx context.Context) error {
	list, err := s.service.ListConversations(ctx)
	if err != nil {
		return s.fail(err, "Failed to load conversations")
	}

	convs := viewmodel.ToConversations(list, s.cfg.UserID, s.now())
	for i := range convs {
		if !convs[i].Online {
			convs[i].Online = s.peerOnline(convs[i])
		}
	}
	s.store.SetConversations(convs)
	return nil
}

// peerOnline reports whether the other side of a direct conversation is in
// the online set
func (s *Session) peerOnline(c viewmodel.Conversation) bool {
	if c.Type != models.ConversationDirect {
		return false
	}
	for _, p := range c.Participants {
		if p.ID != s.cfg.UserID && s.store.IsOnline(p.ID) {
			return true
		}
	}
	return false
}

// OpenConversation selects a conversation and loads its recent history,
// through the socket join when possible and over REST otherwise. Unread
// messages are then marked read.
func (s *Session) OpenConversation(ctx context.Context, conversationID string) error {
	conv, ok := s.store.Conversation(conversationID)
	if !ok {
		return s.fail(ErrUnknownConversation, "Conversation not found")
	}
	s.store.SelectConversation(conversationID)

	if !s.store.TryStartLoading(conversationID) {
		return ErrAlreadyLoading
	}
	err := s.loadRecent(ctx, conversationID)
	s.store.SetLoading(conversationID, false)
	if err != nil {
		return s.fail(err, "Failed to load messages")
	}

	if conv.UnreadCount > 0 {
		if err := s.MarkRead(ctx, conversationID); err != nil {
			log.Printf("[chat] mark read on open %s: %v", conversationID, err)
		}
	}
	return nil
}

func (s *Session) loadRecent(ctx context.Context, conversationID string) error {
	if s.transport.IsConnected() {
		res, err := s.transport.JoinConversation(ctx, conversationID)
		if err == nil && res.Success {
			msgs := viewmodel.ToMessages(res.Messages, s.cfg.UserID)
			s.store.SetMessages(conversationID, msgs)
			// join returns the newest page; older pages are requested
			// before the oldest id we hold
			page := store.Page{HasMore: len(msgs) > 0}
			if len(msgs) > 0 {
				page.Cursor = msgs[0].ID
			}
			s.store.SetPage(conversationID, page)
			return nil
		}
		log.Printf("[chat] join %s failed, using REST history: %v", conversationID, errOr(err, res.Error))
	}

	page, err := s.service.GetMessages(ctx, conversationID, "", s.cfg.PageSize)
	if err != nil {
		return err
	}
	s.store.SetMessages(conversationID, viewmodel.ToMessages(page.Messages, s.cfg.UserID))
	s.store.SetPage(conversationID, store.Page{Cursor: page.NextCursor, HasMore: page.HasMore})
	return nil
}

// LoadOlder prepends the next page of history and returns how many messages
// were added. Messages already held are skipped.
func (s *Session) LoadOlder(ctx context.Context, conversationID string) (int, error) {
	if _, ok := s.store.Conversation(conversationID); !ok {
		return 0, s.fail(ErrUnknownConversation, "Conversation not found")
	}
	cursor := s.store.Page(conversationID)
	if !cursor.HasMore {
		return 0, nil
	}
	if !s.store.TryStartLoading(conversationID) {
		return 0, ErrAlreadyLoading
	}
	defer s.store.SetLoading(conversationID, false)

	page, err := s.service.GetMessages(ctx, conversationID, cursor.Cursor, s.cfg.PageSize)
	if err != nil {
		return 0, s.fail(err, "Failed to load older messages")
	}

	older := make([]viewmodel.Message, 0, len(page.Messages))
	for _, m := range viewmodel.ToMessages(page.Messages, s.cfg.UserID) {
		if !s.store.HasMessage(conversationID, m.ID) {
			older = append(older, m)
		}
	}
	s.store.PrependMessages(conversationID, older)
	s.store.SetPage(conversationID, store.Page{Cursor: page.NextCursor, HasMore: page.HasMore && page.NextCursor != ""})
	return len(older), nil
}

// ToggleArchive flips the archived flag
func (s *Session) ToggleArchive(ctx context.Context, conversationID string) error {
	return s.toggle(ctx, conversationID, ActionArchive,
		func(c viewmodel.Conversation) bool { return c.Archived },
		func(v bool) store.ConversationPatch { return store.ConversationPatch{Archived: &v} },
		s.service.SetArchived,
		"Failed to update archive")
}

// ToggleStar flips the starred flag
func (s *Session) ToggleStar(ctx context.Context, conversationID string) error {
	return s.toggle(ctx, conversationID, ActionStar,
		func(c viewmodel.Conversation) bool { return c.Starred },
		func(v bool) store.ConversationPatch { return store.ConversationPatch{Starred: &v} },
		s.service.SetStarred,
		"Failed to update star")
}

func (s *Session) toggle(
	ctx context.Context,
	conversationID string,
	kind ActionKind,
	get func(viewmodel.Conversation) bool,
	patch func(bool) store.ConversationPatch,
	call func(context.Context, string, bool) error,
	fallback string,
) error {
	conv, ok := s.store.Conversation(conversationID)
	if !ok {
		return s.fail(ErrUnknownConversation, "Conversation not found")
	}
	old := get(conv)

	action := s.pending.begin(kind, conversationID, "")
	s.store.UpdateConversation(conversationID, patch(!old))

	if err := call(ctx, conversationID, !old); err != nil {
		s.pending.fail(action, err)
		s.store.UpdateConversation(conversationID, patch(old))
		s.pending.rollBack(action)
		return s.fail(err, fallback)
	}

	s.pending.confirm(action, "")
	return nil
}

// DeleteConversation removes a conversation and its messages, restoring both
// if the server refuses
func (s *Session) DeleteConversation(ctx context.Context, conversationID string) error {
	conv, ok := s.store.Conversation(conversationID)
	if !ok {
		return s.fail(ErrUnknownConversation, "Conversation not found")
	}
	hadBucket := s.store.HasBucket(conversationID)
	msgs := s.store.Messages(conversationID)
	page := s.store.Page(conversationID)
	wasSelected := s.store.Selected() == conversationID

	action := s.pending.begin(ActionDeleteConversation, conversationID, "")
	s.store.RemoveConversation(conversationID)
	s.typing.forget(conversationID)

	if err := s.service.DeleteConversation(ctx, conversationID); err != nil {
		s.pending.fail(action, err)
		s.store.AddConversation(conv)
		if hadBucket {
			s.store.SetMessages(conversationID, msgs)
			s.store.SetPage(conversationID, page)
		}
		if wasSelected && s.store.Selected() == "" {
			s.store.SelectConversation(conversationID)
		}
		s.pending.rollBack(action)
		return s.fail(err, "Failed to delete conversation")
	}

	s.pending.confirm(action, "")
	s.notify(LevelSuccess, "Conversation deleted")
	return nil
}

// StartConversation opens a conversation with the given participants over
// the socket and adds it to the list
func (s *Session) StartConversation(ctx context.Context, participantIDs []string, title string) (viewmodel.Conversation, error) {
	if err := validation.Participants(participantIDs); err != nil {
		return viewmodel.Conversation{}, s.fail(err, "Invalid participants")
	}
	if title != "" {
		if err := validation.Title(title); err != nil {
			return viewmodel.Conversation{}, s.fail(err, "Invalid title")
		}
	}

	res, err := s.transport.StartConversation(ctx, models.StartConversationRequest{
		ParticipantIDs: participantIDs,
		Title:          title,
	})
	if err == nil && (!res.Success || res.Conversation == nil) {
		err = &RejectedError{Op: "start conversation", Message: res.Error}
	}
	if err != nil {
		return viewmodel.Conversation{}, s.fail(err, "Failed to start conversation")
	}
	return s.adopt(*res.Conversation), nil
}

// CreateConversation creates a titled conversation over the socket and adds
// it to the list
func (s *Session) CreateConversation(ctx context.Context, title string, participantIDs []string, kind string) (viewmodel.Conversation, error) {
	if kind == "" {
		kind = models.ConversationGroup
	}
	if err := validation.Title(title); err != nil {
		return viewmodel.Conversation{}, s.fail(err, "Invalid title")
	}
	if err := validation.Participants(participantIDs); err != nil {
		return viewmodel.Conversation{}, s.fail(err, "Invalid participants")
	}
	if err := validation.ConversationType(kind); err != nil {
		return viewmodel.Conversation{}, s.fail(err, "Invalid conversation type")
	}

	res, err := s.transport.CreateConversation(ctx, models.CreateConversationRequest{
		Title:        title,
		Participants: participantIDs,
		Type:         kind,
	})
	if err == nil && (!res.Success || res.Conversation == nil) {
		err = &RejectedError{Op: "create conversation", Message: res.Error}
	}
	if err != nil {
		return viewmodel.Conversation{}, s.fail(err, "Failed to create conversation")
	}

	conv := s.adopt(*res.Conversation)
	s.notify(LevelSuccess, "Conversation created")
	return conv, nil
}

func (s *Session) adopt(c models.Conversation) viewmodel.Conversation {
	vm := viewmodel.ToConversation(c, s.cfg.UserID, s.now())
	if !vm.Online {
		vm.Online = s.peerOnline(vm)
	}
	s.store.AddConversation(vm)
	return vm
}
