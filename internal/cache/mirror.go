package cache

import (
	"context"
	"log"
	"time"

	"github.com/tullo/chatdesk/internal/store"
)

// Sink receives the mirrored state. *RedisClient implements it.
type Sink interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
	SetTyping(ctx context.Context, conversationID, userID string) error
	RemoveTyping(ctx context.Context, conversationID, userID string) error
	PublishChange(ctx context.Context, change store.Change) error
}

// Mirror copies presence and typing state from the store into Redis and
// republishes every change, so other processes can follow the console.
type Mirror struct {
	sink    Sink
	store   *store.Store
	timeout time.Duration
}

func NewMirror(sink Sink, st *store.Store) *Mirror {
	return &Mirror{sink: sink, store: st, timeout: 5 * time.Second}
}

// Start subscribes to the store. The returned function stops mirroring.
func (m *Mirror) Start() func() {
	return m.store.SubscribeAsync(256, m.apply)
}

func (m *Mirror) apply(c store.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var err error
	switch c.Kind {
	case store.PresenceChanged:
		err = m.presence(ctx, c.UserID)
	case store.TypingChanged:
		if m.isTyping(c.ConversationID, c.UserID) {
			err = m.sink.SetTyping(ctx, c.ConversationID, c.UserID)
		} else {
			err = m.sink.RemoveTyping(ctx, c.ConversationID, c.UserID)
		}
	}
	if err != nil {
		log.Printf("[redis] mirror %s: %v", c.Kind, err)
	}

	if err := m.sink.PublishChange(ctx, c); err != nil {
		log.Printf("[redis] publish %s: %v", c.Kind, err)
	}
}

// presence mirrors one user, or the whole online set after a snapshot
func (m *Mirror) presence(ctx context.Context, userID string) error {
	if userID == "" {
		for id := range m.store.OnlineUsers() {
			if err := m.sink.SetUserOnline(ctx, id); err != nil {
				return err
			}
		}
		return nil
	}
	if m.store.IsOnline(userID) {
		return m.sink.SetUserOnline(ctx, userID)
	}
	return m.sink.SetUserOffline(ctx, userID)
}

func (m *Mirror) isTyping(conversationID, userID string) bool {
	for _, id := range m.store.TypingUsers(conversationID) {
		if id == userID {
			return true
		}
	}
	return false
}
