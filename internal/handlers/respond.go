package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tullo/chatdesk/internal/api"
	"github.com/tullo/chatdesk/internal/chat"
	"github.com/tullo/chatdesk/internal/validation"
	"github.com/tullo/chatdesk/internal/websocket"
)

// ErrorResponse sends a standardized error response
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondError maps a session error to a status code
func respondError(c *gin.Context, err error) {
	var (
		verr *validation.ValidationError
		lerr *chat.RateLimitError
		rerr *chat.RejectedError
		aerr *api.APIError
	)

	switch {
	case errors.As(err, &verr):
		ErrorResponse(c, http.StatusBadRequest, verr.Error())
	case errors.As(err, &lerr):
		c.Header("Retry-After", strconv.Itoa(int(lerr.RetryAfter.Seconds()+0.999)))
		ErrorResponse(c, http.StatusTooManyRequests, lerr.Error())
	case errors.Is(err, chat.ErrUnknownConversation):
		ErrorResponse(c, http.StatusNotFound, "Conversation not found")
	case errors.Is(err, chat.ErrUnknownMessage):
		ErrorResponse(c, http.StatusNotFound, "Message not found")
	case errors.Is(err, chat.ErrAlreadyLoading):
		ErrorResponse(c, http.StatusConflict, "History is already loading")
	case errors.As(err, &rerr):
		ErrorResponse(c, http.StatusUnprocessableEntity, rerr.Error())
	case errors.As(err, &aerr) && aerr.Status >= 400 && aerr.Status < 500:
		ErrorResponse(c, aerr.Status, aerr.Error())
	case errors.Is(err, websocket.ErrAckTimeout):
		ErrorResponse(c, http.StatusGatewayTimeout, "Chat server did not respond")
	default:
		ErrorResponse(c, http.StatusBadGateway, err.Error())
	}
}
