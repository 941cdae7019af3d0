// Package chat ties the gateway client, the REST service and the store into
// the actions an operator performs: opening conversations, sending, editing
// and managing them. Mutations are applied optimistically and rolled back
// when the server refuses them.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tullo/chatdesk/internal/api"
	"github.com/tullo/chatdesk/internal/models"
	"github.com/tullo/chatdesk/internal/ratelimit"
	"github.com/tullo/chatdesk/internal/store"
	"github.com/tullo/chatdesk/internal/validation"
	"github.com/tullo/chatdesk/internal/viewmodel"
	"github.com/tullo/chatdesk/internal/websocket"
)

var (
	ErrUnknownConversation = errors.New("unknown conversation")
	ErrUnknownMessage      = errors.New("unknown message")
	ErrAlreadyLoading      = errors.New("history is already loading")
)

// RejectedError is an explicit refusal from the server (success:false).
type RejectedError struct {
	Op      string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return e.Op + " rejected by server"
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Message)
}

// RateLimitError is returned when the advisory send limiter refuses a send.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("sending too fast, retry in %s", e.RetryAfter.Round(100*time.Millisecond))
}

// backgroundTimeout bounds work the session starts on its own
const backgroundTimeout = 30 * time.Second

// Transport is the gateway connection the session drives.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	SocketID() string
	OnStatus(fn func(websocket.Status))
	OnEvent(h websocket.EventHandler)
	JoinConversation(ctx context.Context, conversationID string) (websocket.JoinResult, error)
	SendMessage(ctx context.Context, conversationID string, req models.SendMessageRequest) (websocket.SendResult, error)
	StartConversation(ctx context.Context, req models.StartConversationRequest) (websocket.ConversationResult, error)
	CreateConversation(ctx context.Context, req models.CreateConversationRequest) (websocket.ConversationResult, error)
	TypingStart(conversationID string) error
	TypingStop(conversationID string) error
}

// Service is the REST API the session falls back to.
type Service interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	GetMessages(ctx context.Context, conversationID, cursor string, limit int) (api.Page, error)
	PostMessage(ctx context.Context, conversationID string, req models.SendMessageRequest) (*models.Message, error)
	EditMessage(ctx context.Context, conversationID, messageID, content string) (*models.Message, error)
	DeleteMessage(ctx context.Context, conversationID, messageID string) error
	DeleteConversation(ctx context.Context, conversationID string) error
	MarkRead(ctx context.Context, conversationID string, messageIDs []string) error
	SetArchived(ctx context.Context, conversationID string, archived bool) error
	SetStarred(ctx context.Context, conversationID string, starred bool) error
}

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is user-facing feedback for an action.
type Notice struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Notifier receives notices. It must not block.
type Notifier func(Notice)

type Config struct {
	// UserID is the signed-in operator, used to tell own messages apart
	UserID string

	PageSize       int
	SendLimit      int
	SendWindow     time.Duration
	TypingInterval time.Duration

	// LongForm raises the message limit for support desks
	LongForm bool
}

// Session is the single entry point for chat actions. It is safe for
// concurrent use.
type Session struct {
	cfg       Config
	transport Transport
	service   Service
	store     *store.Store
	limiter   *ratelimit.SlidingWindow
	notifier  Notifier
	pending   *tracker
	typing    *typingThrottle
	now       func() time.Time

	mu      sync.Mutex
	started bool
}

// NewSession wires a session. notifier may be nil.
func NewSession(cfg Config, transport Transport, service Service, st *store.Store, notifier Notifier) *Session {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.TypingInterval <= 0 {
		cfg.TypingInterval = 2 * time.Second
	}
	if notifier == nil {
		notifier = func(Notice) {}
	}
	return &Session{
		cfg:       cfg,
		transport: transport,
		service:   service,
		store:     st,
		limiter:   ratelimit.NewSlidingWindow(cfg.SendLimit, cfg.SendWindow),
		notifier:  notifier,
		pending:   newTracker(time.Now),
		typing:    newTypingThrottle(transport, cfg.TypingInterval),
		now:       time.Now,
	}
}

// Store returns the store the session writes to
func (s *Session) Store() *store.Store {
	return s.store
}

// UserID returns the signed-in user
func (s *Session) UserID() string {
	return s.cfg.UserID
}

// Pending returns optimistic actions not yet settled
func (s *Session) Pending() []PendingAction {
	return s.pending.list(true)
}

// Actions returns recent optimistic actions including settled ones
func (s *Session) Actions() []PendingAction {
	return s.pending.list(false)
}

// Start registers the gateway callbacks, connects and loads the
// conversation list. A failed connection is reported but does not fail
// Start, since the REST fallback still works.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.transport.OnStatus(s.handleStatus)
	s.transport.OnEvent(s.handleEvent)

	if err := s.transport.Connect(ctx); err != nil {
		log.Printf("[chat] gateway unavailable: %v", err)
		s.notify(LevelWarning, "Live chat is unavailable, falling back to polling")
	}

	return s.LoadConversations(ctx)
}

// Stop disconnects and clears the store
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.transport.Disconnect()
	s.typing.reset()
	s.store.Reset()
}

func (s *Session) handleStatus(status websocket.Status) {
	socketID := ""
	if status == websocket.StatusConnected {
		socketID = s.transport.SocketID()
	}

	prev, _ := s.store.Connection()
	s.store.SetConnection(store.ConnectionStatus(status), socketID)

	if status == websocket.StatusConnected && prev == store.StatusReconnecting {
		if id := s.store.Selected(); id != "" {
			go s.rejoin(id)
		}
	}
}

// rejoin re-enters the selected room after a reconnect and appends any
// messages missed while offline
func (s *Session) rejoin(conversationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	res, err := s.transport.JoinConversation(ctx, conversationID)
	if err != nil || !res.Success {
		log.Printf("[chat] rejoin %s failed: %v", conversationID, errOr(err, res.Error))
		return
	}
	for _, m := range viewmodel.ToMessages(res.Messages, s.cfg.UserID) {
		if !s.store.HasMessage(conversationID, m.ID) {
			s.store.AddMessage(conversationID, m)
		}
	}
}

func (s *Session) validateContent(content string) error {
	if s.cfg.LongForm {
		return validation.LongMessage(content)
	}
	return validation.Message(content)
}

func (s *Session) notify(level Level, text string) {
	s.notifier(Notice{Level: level, Text: text})
}

// fail reports err to the user and returns it. The server's message is
// preferred over the generic fallback.
func (s *Session) fail(err error, fallback string) error {
	s.notify(LevelError, userMessage(err, fallback))
	return err
}

func userMessage(err error, fallback string) string {
	var verr *validation.ValidationError
	var rerr *RejectedError
	var aerr *api.APIError
	var lerr *RateLimitError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.As(err, &lerr):
		return fmt.Sprintf("You are sending messages too quickly. Try again in %ds.", int(lerr.RetryAfter.Seconds()+0.999))
	case errors.As(err, &rerr) && rerr.Message != "":
		return rerr.Message
	case errors.As(err, &aerr) && aerr.Message != "":
		return aerr.Message
	case errors.Is(err, websocket.ErrAckTimeout):
		return fallback + ": the server did not respond"
	}
	return fallback
}

func errOr(err error, msg string) error {
	if err != nil {
		return err
	}
	return errors.New(msg)
}
