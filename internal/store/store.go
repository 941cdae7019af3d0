// Package store holds the in-memory state the chat console renders:
// conversations, per-conversation message buckets, presence, connection
// status and UI selection state. Every mutation notifies subscribers with a
// Change so observers only refresh what moved.
package store

import (
	"log"
	"sync"

	"github.com/tullo/chatdesk/internal/viewmodel"
)

// ChangeKind identifies which part of the store a mutation touched.
type ChangeKind string

const (
	ConversationsChanged ChangeKind = "conversations"
	ConversationChanged  ChangeKind = "conversation"
	ConversationRemoved  ChangeKind = "conversation_removed"
	MessagesChanged      ChangeKind = "messages"
	MessageAdded         ChangeKind = "message_added"
	MessageChanged       ChangeKind = "message_changed"
	MessageRemoved       ChangeKind = "message_removed"
	PresenceChanged      ChangeKind = "presence"
	ConnectionChanged    ChangeKind = "connection"
	SelectionChanged     ChangeKind = "selection"
	UIChanged            ChangeKind = "ui"
	TypingChanged        ChangeKind = "typing"
	LoadingChanged       ChangeKind = "loading"
	StoreReset           ChangeKind = "reset"
)

// Change describes one mutation. UserID is set for presence and typing.
type Change struct {
	Kind           ChangeKind `json:"kind"`
	ConversationID string     `json:"conversationId,omitempty"`
	MessageID      string     `json:"messageId,omitempty"`
	UserID         string     `json:"userId,omitempty"`
}

// ConnectionStatus mirrors the transport's lifecycle.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusReconnecting ConnectionStatus = "reconnecting"
)

// Filter is the conversation list tab.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterUnread   Filter = "unread"
	FilterArchived Filter = "archived"
	FilterStarred  Filter = "starred"
)

// ParseFilter maps a query value to a Filter, defaulting to all
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterUnread, FilterArchived, FilterStarred:
		return Filter(s)
	}
	return FilterAll
}

// Page tracks history paging for one conversation.
type Page struct {
	Cursor  string
	HasMore bool
}

// Store is safe for concurrent use. Reads return copies.
type Store struct {
	mu sync.RWMutex

	order         []string
	conversations map[string]viewmodel.Conversation
	messages      map[string][]viewmodel.Message

	online map[string]struct{}

	status   ConnectionStatus
	socketID string

	selected string
	search   string
	filter   Filter
	dialogs  map[string]bool
	pages    map[string]Page
	loading  map[string]bool
	typing   map[string]map[string]bool

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// New creates an empty store
func New() *Store {
	s := &Store{subs: make(map[int]func(Change))}
	s.init()
	return s
}

func (s *Store) init() {
	s.order = nil
	s.conversations = make(map[string]viewmodel.Conversation)
	s.messages = make(map[string][]viewmodel.Message)
	s.online = make(map[string]struct{})
	s.status = StatusDisconnected
	s.socketID = ""
	s.selected = ""
	s.search = ""
	s.filter = FilterAll
	s.dialogs = make(map[string]bool)
	s.pages = make(map[string]Page)
	s.loading = make(map[string]bool)
	s.typing = make(map[string]map[string]bool)
}

// Subscribe registers fn for every subsequent change. fn runs on the goroutine
// that made the change, after the store lock is released. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// SubscribeAsync is Subscribe for observers that do I/O. Changes are queued
// and fn runs on a goroutine of its own; while the queue is full changes are
// dropped. The returned function stops the goroutine.
func (s *Store) SubscribeAsync(buffer int, fn func(Change)) func() {
	queue := make(chan Change, buffer)
	done := make(chan struct{})

	unsubscribe := s.Subscribe(func(c Change) {
		select {
		case queue <- c:
		case <-done:
		default:
			log.Printf("[store] observer queue full, dropping %s change", c.Kind)
		}
	})

	go func() {
		for {
			select {
			case c := <-queue:
				fn(c)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(done)
		})
	}
}

func (s *Store) notify(changes ...Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}

// Reset restores every field to its initial empty value. Subscriptions
// survive.
func (s *Store) Reset() {
	s.mu.Lock()
	s.init()
	s.mu.Unlock()
	s.notify(Change{Kind: StoreReset})
}
