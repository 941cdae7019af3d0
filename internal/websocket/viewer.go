package websocket

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Maximum frame size accepted from a viewer; viewers only send control frames
const maxViewerMessageSize = 512

// Viewer is a local UI attached to the agent over a websocket. It receives
// store changes and sends nothing but control frames.
type Viewer struct {
	id   uuid.UUID
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newViewer(hub *Hub, conn *websocket.Conn) *Viewer {
	return &Viewer{
		id:   uuid.New(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 64),
	}
}

// ReadPump keeps the read deadline fresh and detaches the viewer when the
// socket closes
func (v *Viewer) ReadPump() {
	defer func() {
		v.hub.detach(v)
		v.conn.Close()
	}()

	v.conn.SetReadLimit(maxViewerMessageSize)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[hub] viewer %s: %v", v.id, err)
			}
			return
		}
	}
}

// WritePump writes queued frames to the viewer and pings it periodically
func (v *Viewer) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		v.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
