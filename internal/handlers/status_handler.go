package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

type StatusHandler struct {
	chat Chat
}

func NewStatusHandler(ch Chat) *StatusHandler {
	return &StatusHandler{chat: ch}
}

// GetOnlineUsers returns the ids of online users, sorted
func (h *StatusHandler) GetOnlineUsers(c *gin.Context) {
	online := h.chat.Store().OnlineUsers()
	ids := make([]string, 0, len(online))
	for id := range online {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	c.JSON(http.StatusOK, gin.H{
		"online_users": ids,
		"count":        len(ids),
	})
}

// GetStatus reports the connection state and unsettled optimistic actions
func (h *StatusHandler) GetStatus(c *gin.Context) {
	st := h.chat.Store()
	status, socketID := st.Connection()

	c.JSON(http.StatusOK, gin.H{
		"connection":  status,
		"socketId":    socketID,
		"selected":    st.Selected(),
		"totalUnread": st.TotalUnread(),
		"pending":     h.chat.Pending(),
		"dialogs":     st.OpenDialogs(),
	})
}

type dialogRequest struct {
	Open bool `json:"open"`
}

// SetDialog opens or closes a named dialog in the shared UI state
func (h *StatusHandler) SetDialog(c *gin.Context) {
	var req dialogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	st := h.chat.Store()
	st.SetDialogOpen(c.Param("name"), req.Open)
	c.JSON(http.StatusOK, gin.H{"dialogs": st.OpenDialogs()})
}
