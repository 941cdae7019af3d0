package handlers

import "github.com/gin-gonic/gin"

// SetChatRoutes mounts the chat control routes on rg
func SetChatRoutes(rg *gin.RouterGroup, ch Chat) {
	conv := NewConversationHandler(ch)
	msg := NewMessageHandler(ch)
	status := NewStatusHandler(ch)

	rg.GET("/conversations", conv.GetConversations)
	rg.POST("/conversations", conv.CreateConversation)
	rg.GET("/conversations/:id/messages", conv.GetMessages)
	rg.POST("/conversations/:id/messages", conv.SendMessage)
	rg.POST("/conversations/:id/attachments", conv.SendAttachment)
	rg.POST("/conversations/:id/open", conv.Open)
	rg.POST("/conversations/:id/older", conv.LoadOlder)
	rg.PATCH("/conversations/:id/archive", conv.ToggleArchive)
	rg.PATCH("/conversations/:id/star", conv.ToggleStar)
	rg.PUT("/conversations/:id/read", conv.MarkRead)
	rg.POST("/conversations/:id/typing", conv.Typing)
	rg.DELETE("/conversations/:id", conv.DeleteConversation)

	rg.PATCH("/messages/:conversation_id/:id", msg.EditMessage)
	rg.DELETE("/messages/:conversation_id/:id", msg.DeleteMessage)

	rg.GET("/online-users", status.GetOnlineUsers)
	rg.GET("/status", status.GetStatus)
	rg.PUT("/dialogs/:name", status.SetDialog)
}
