package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tullo/chatdesk/internal/chat"
	"github.com/tullo/chatdesk/internal/models"
	"github.com/tullo/chatdesk/internal/store"
	"github.com/tullo/chatdesk/internal/viewmodel"
)

// Chat is the session the handlers drive. *chat.Session implements it.
type Chat interface {
	Store() *store.Store
	Pending() []chat.PendingAction
	OpenConversation(ctx context.Context, conversationID string) error
	LoadOlder(ctx context.Context, conversationID string) (int, error)
	Send(ctx context.Context, conversationID, content string, kind models.MessageType) (viewmodel.Message, error)
	SendAttachment(ctx context.Context, conversationID string, a chat.Attachment) (viewmodel.Message, error)
	Edit(ctx context.Context, conversationID, messageID, content string) error
	DeleteMessage(ctx context.Context, conversationID, messageID string) error
	MarkRead(ctx context.Context, conversationID string) error
	ToggleArchive(ctx context.Context, conversationID string) error
	ToggleStar(ctx context.Context, conversationID string) error
	DeleteConversation(ctx context.Context, conversationID string) error
	StartConversation(ctx context.Context, participantIDs []string, title string) (viewmodel.Conversation, error)
	CreateConversation(ctx context.Context, title string, participantIDs []string, kind string) (viewmodel.Conversation, error)
	Typing(conversationID string, typing bool) error
}

type ConversationHandler struct {
	chat Chat
	now  func() time.Time
}

func NewConversationHandler(ch Chat) *ConversationHandler {
	return &ConversationHandler{chat: ch, now: time.Now}
}

// GetConversations lists conversations for the filter tab and search query
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	st := h.chat.Store()
	if f, ok := c.GetQuery("filter"); ok {
		st.SetFilter(store.ParseFilter(f))
	}
	if q, ok := c.GetQuery("q"); ok {
		st.SetSearchQuery(q)
	}

	convs := st.FilteredConversations()
	if convs == nil {
		convs = []viewmodel.Conversation{}
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations": convs,
		"filter":        st.Filter(),
		"query":         st.SearchQuery(),
		"totalUnread":   st.TotalUnread(),
	})
}

// GetMessages returns the loaded messages of a conversation grouped by day
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	id := c.Param("id")
	st := h.chat.Store()
	if _, ok := st.Conversation(id); !ok {
		ErrorResponse(c, http.StatusNotFound, "Conversation not found")
		return
	}

	page := st.Page(id)
	c.JSON(http.StatusOK, gin.H{
		"messages": viewmodel.GroupByDay(st.Messages(id), h.now()),
		"hasMore":  page.HasMore,
		"loading":  st.IsLoading(id),
		"typing":   st.TypingUsers(id),
	})
}

// Open selects a conversation and loads its recent history
func (h *ConversationHandler) Open(c *gin.Context) {
	id := c.Param("id")
	if err := h.chat.OpenConversation(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.GetMessages(c)
}

// LoadOlder fetches the previous page of history
func (h *ConversationHandler) LoadOlder(c *gin.Context) {
	id := c.Param("id")
	added, err := h.chat.LoadOlder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"added":   added,
		"hasMore": h.chat.Store().Page(id).HasMore,
	})
}

// SendMessage sends a message to a conversation
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), c.Param("id"), req.Content, req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

type attachmentRequest struct {
	URL      string `json:"url" binding:"required"`
	Name     string `json:"name" binding:"required"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Caption  string `json:"caption"`
}

// SendAttachment sends a file that was already uploaded to media storage
func (h *ConversationHandler) SendAttachment(c *gin.Context) {
	var req attachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.chat.SendAttachment(c.Request.Context(), c.Param("id"), chat.Attachment{
		URL:      req.URL,
		Name:     req.Name,
		MIMEType: req.MIMEType,
		Size:     req.Size,
		Caption:  req.Caption,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ToggleArchive flips the archived flag
func (h *ConversationHandler) ToggleArchive(c *gin.Context) {
	h.toggle(c, h.chat.ToggleArchive)
}

// ToggleStar flips the starred flag
func (h *ConversationHandler) ToggleStar(c *gin.Context) {
	h.toggle(c, h.chat.ToggleStar)
}

func (h *ConversationHandler) toggle(c *gin.Context, fn func(context.Context, string) error) {
	id := c.Param("id")
	if err := fn(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	conv, _ := h.chat.Store().Conversation(id)
	c.JSON(http.StatusOK, conv)
}

// DeleteConversation removes a conversation
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	if err := h.chat.DeleteConversation(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkRead clears the unread count of a conversation
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	if err := h.chat.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation marked as read"})
}

type createConversationRequest struct {
	Title          string   `json:"title"`
	ParticipantIDs []string `json:"participantIds" binding:"required,min=1"`
	Type           string   `json:"type"`
}

// CreateConversation starts a conversation. Without a title it opens a
// direct conversation with the participants.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var (
		conv viewmodel.Conversation
		err  error
	)
	if req.Title == "" {
		conv, err = h.chat.StartConversation(c.Request.Context(), req.ParticipantIDs, "")
	} else {
		conv, err = h.chat.CreateConversation(c.Request.Context(), req.Title, req.ParticipantIDs, req.Type)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

type typingRequest struct {
	Typing bool `json:"typing"`
}

// Typing forwards the operator's typing state
func (h *ConversationHandler) Typing(c *gin.Context) {
	var req typingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.chat.Typing(c.Param("id"), req.Typing); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
