package websocket

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades control API requests into viewer sockets
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a viewer handler. An empty allowedOrigins list accepts
// any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	h := &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	h.upgrader.CheckOrigin = func(r *http.Request) bool {
		if len(allowedOrigins) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return false
		}
		for _, pattern := range allowedOrigins {
			if matchOrigin(pattern, origin) {
				return true
			}
		}
		return false
	}
	return h
}

// HandleViewer attaches the caller as a viewer of store changes
func (h *Handler) HandleViewer(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[hub] failed to upgrade viewer: %v", err)
		return
	}

	v := newViewer(h.hub, conn)
	if !h.hub.attach(v) {
		conn.Close()
		return
	}

	go v.WritePump()
	go v.ReadPump()
}

// matchOrigin supports exact matches or wildcard patterns like *.example.com
func matchOrigin(pattern, origin string) bool {
	if pattern == origin {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		originHost := origin
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			originHost = u.Hostname()
		}
		return strings.HasSuffix(originHost, pattern[1:])
	}
	return false
}
