package models

import "encoding/json"

// Requests emitted to the gateway
const (
	EventJoinConversation   = "join_conversation"
	EventSendMessage        = "send_message"
	EventTypingStart        = "typing_start"
	EventTypingStop         = "typing_stop"
	EventStartConversation  = "start_conversation"
	EventCreateConversation = "create_conversation"
)

// Pushes received from the gateway
const (
	EventAck                 = "ack"
	EventNewMessage          = "new_message"
	EventMessageUpdated      = "message_updated"
	EventMessageDeleted      = "message_deleted"
	EventMessagesRead        = "messages_read"
	EventUserOnline          = "user_online"
	EventUserOffline         = "user_offline"
	EventOnlineUsers         = "online_users"
	EventUserTyping          = "user_typing"
	EventUserStoppedTyping   = "user_stopped_typing"
	EventConversationCreated = "conversation_created"
	EventConversationUpdated = "conversation_updated"
	EventError               = "error"
)

// WSMessage is the frame exchanged with the gateway. Requests that expect an
// acknowledgement carry an AckID; the gateway answers with an "ack" frame
// carrying the same id.
type WSMessage struct {
	Event   string          `json:"event"`
	AckID   string          `json:"ack_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Ack is the payload of an acknowledgement frame.
type Ack struct {
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Messages     []Message     `json:"messages,omitempty" validate:"dive"`
	Message      *Message      `json:"message,omitempty"`
	Conversation *Conversation `json:"conversation,omitempty"`
}

type WSJoinPayload struct {
	ConversationID string `json:"conversationId"`
}

type WSSendPayload struct {
	ConversationID string `json:"conversationId"`
	SendMessageRequest
}

type WSTypingPayload struct {
	ConversationID string `json:"conversationId"`
}

type WSMessageDeletedPayload struct {
	ConversationID string `json:"conversationId" validate:"required"`
	MessageID      string `json:"messageId" validate:"required"`
}

type WSMessagesReadPayload struct {
	ConversationID string   `json:"conversationId" validate:"required"`
	UserID         string   `json:"userId" validate:"required"`
	MessageIDs     []string `json:"messageIds,omitempty"`
}

type WSPresencePayload struct {
	UserID string `json:"userId" validate:"required"`
}

type WSOnlineUsersPayload struct {
	UserIDs []string `json:"userIds"`
}

type WSUserTypingPayload struct {
	ConversationID string `json:"conversationId" validate:"required"`
	UserID         string `json:"userId" validate:"required"`
}

type WSErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIResponse is the envelope every REST endpoint answers with.
type APIResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}
