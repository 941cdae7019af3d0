package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tullo/chatdesk/internal/auth"
	"github.com/tullo/chatdesk/internal/metrics"
	"github.com/tullo/chatdesk/internal/models"
)

const (
	// Time allowed to write a frame to the gateway
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the gateway
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size accepted from the gateway
	maxMessageSize = 1 << 20

	sendBuffer = 256
)

var (
	ErrNotConnected   = errors.New("not connected to chat gateway")
	ErrAckTimeout     = errors.New("timed out waiting for acknowledgement")
	ErrConnectionLost = errors.New("connection lost before acknowledgement")
)

// Status is the lifecycle state of the gateway connection.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// EventHandler receives gateway push events on the read goroutine.
type EventHandler func(event string, payload json.RawMessage)

// Config controls dialing and request behaviour.
type Config struct {
	URL               string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ConnectTimeout    time.Duration
	AckTimeout        time.Duration
}

type JoinResult struct {
	Success  bool
	Messages []models.Message
	Error    string
}

type SendResult struct {
	Success bool
	Message *models.Message
	Error   string
}

type ConversationResult struct {
	Success      bool
	Conversation *models.Conversation
	Error        string
}

type ackResult struct {
	ack *models.Ack
	err error
}

// conn is one established socket. A new one is created on every dial.
type conn struct {
	ws   *websocket.Conn
	id   string
	send chan []byte
	done chan struct{}
}

// Client holds one authenticated connection to the chat gateway and turns
// request/acknowledgement exchanges into blocking calls.
type Client struct {
	cfg    Config
	tokens auth.TokenSource
	dialer *websocket.Dialer

	mu       sync.Mutex
	cur      *conn
	pending  map[string]chan ackResult
	status   Status
	stop     chan struct{}
	onStatus func(Status)
	onEvent  EventHandler
}

// NewClient creates a gateway client. Nothing is dialed until Connect.
func NewClient(cfg Config, tokens auth.TokenSource) *Client {
	if cfg.ReconnectAttempts < 1 {
		cfg.ReconnectAttempts = 1
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		tokens: tokens,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.ConnectTimeout,
		},
		pending: make(map[string]chan ackResult),
		status:  StatusDisconnected,
		stop:    make(chan struct{}),
	}
}

// OnStatus registers the lifecycle callback
func (c *Client) OnStatus(fn func(Status)) {
	c.mu.Lock()
	c.onStatus = fn
	c.mu.Unlock()
}

// OnEvent registers the push event handler
func (c *Client) OnEvent(h EventHandler) {
	c.mu.Lock()
	c.onEvent = h
	c.mu.Unlock()
}

// Connect dials the gateway, retrying up to ReconnectAttempts times with a
// fixed delay. It returns the last dial error once the attempts are used up.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.cur != nil {
		c.mu.Unlock()
		return nil
	}
	select {
	case <-c.stop:
		c.stop = make(chan struct{})
	default:
	}
	stop := c.stop
	c.mu.Unlock()

	c.setStatus(StatusConnecting)
	if err := c.dialWithRetry(ctx, stop); err != nil {
		c.setStatus(StatusDisconnected)
		return err
	}
	return nil
}

func (c *Client) dialWithRetry(ctx context.Context, stop chan struct{}) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.ReconnectAttempts; attempt++ {
		if attempt > 1 {
			metrics.ReconnectAttempts.Inc()
			select {
			case <-time.After(c.cfg.ReconnectDelay):
			case <-ctx.Done():
				return ctx.Err()
			case <-stop:
				return ErrNotConnected
			}
		}

		err := c.dial(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, auth.ErrNoToken) {
			return err
		}
		lastErr = err
		log.Printf("[ws] connect attempt %d/%d failed: %v", attempt, c.cfg.ReconnectAttempts, err)
	}
	return fmt.Errorf("failed to connect after %d attempts: %w", c.cfg.ReconnectAttempts, lastErr)
}

func (c *Client) dial(ctx context.Context) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", auth.BearerHeader(token))

	ws, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return err
	}

	cn := &conn{
		ws:   ws,
		id:   uuid.NewString(),
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	c.mu.Lock()
	select {
	case <-c.stop:
		c.mu.Unlock()
		ws.Close()
		return ErrNotConnected
	default:
	}
	c.cur = cn
	c.mu.Unlock()

	go c.writePump(cn)
	go c.readPump(cn)

	log.Printf("[ws] connected to %s (session %s)", c.cfg.URL, cn.id)
	c.setStatus(StatusConnected)
	return nil
}

// Disconnect closes the socket, stops reconnection and drops the handlers.
func (c *Client) Disconnect() {
	c.mu.Lock()
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	cn := c.cur
	c.mu.Unlock()

	if cn != nil {
		// writePump may be mid-frame; control frames can be written concurrently
		cn.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.drop(cn)
		cn.ws.Close()
	}
	c.setStatus(StatusDisconnected)

	c.mu.Lock()
	c.onEvent = nil
	c.onStatus = nil
	c.mu.Unlock()
}

// IsConnected reports whether the socket is currently open
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cur != nil && c.status == StatusConnected
}

// Status returns the current lifecycle state
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// SocketID identifies the current connection, empty when disconnected
func (c *Client) SocketID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur == nil {
		return ""
	}
	return c.cur.id
}

// JoinConversation joins the conversation room and returns its recent history
func (c *Client) JoinConversation(ctx context.Context, conversationID string) (JoinResult, error) {
	ack, err := c.request(ctx, models.EventJoinConversation, models.WSJoinPayload{
		ConversationID: conversationID,
	})
	if err != nil {
		return JoinResult{}, err
	}
	return JoinResult{Success: ack.Success, Messages: ack.Messages, Error: ack.Error}, nil
}

// SendMessage sends a message and returns the persisted copy
func (c *Client) SendMessage(ctx context.Context, conversationID string, req models.SendMessageRequest) (SendResult, error) {
	ack, err := c.request(ctx, models.EventSendMessage, models.WSSendPayload{
		ConversationID:     conversationID,
		SendMessageRequest: req,
	})
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{Success: ack.Success, Message: ack.Message, Error: ack.Error}, nil
}

// StartConversation opens a conversation with the given participants
func (c *Client) StartConversation(ctx context.Context, req models.StartConversationRequest) (ConversationResult, error) {
	ack, err := c.request(ctx, models.EventStartConversation, req)
	if err != nil {
		return ConversationResult{}, err
	}
	return ConversationResult{Success: ack.Success, Conversation: ack.Conversation, Error: ack.Error}, nil
}

// CreateConversation creates a titled conversation
func (c *Client) CreateConversation(ctx context.Context, req models.CreateConversationRequest) (ConversationResult, error) {
	ack, err := c.request(ctx, models.EventCreateConversation, req)
	if err != nil {
		return ConversationResult{}, err
	}
	return ConversationResult{Success: ack.Success, Conversation: ack.Conversation, Error: ack.Error}, nil
}

// TypingStart signals that the user started typing. Delivery is best effort.
func (c *Client) TypingStart(conversationID string) error {
	return c.emit(models.EventTypingStart, models.WSTypingPayload{ConversationID: conversationID})
}

// TypingStop signals that the user stopped typing. Delivery is best effort.
func (c *Client) TypingStop(conversationID string) error {
	return c.emit(models.EventTypingStop, models.WSTypingPayload{ConversationID: conversationID})
}

func (c *Client) emit(event string, payload any) error {
	frame, err := encodeFrame(event, "", payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	cn := c.cur
	c.mu.Unlock()
	if cn == nil {
		return ErrNotConnected
	}

	select {
	case cn.send <- frame:
	case <-cn.done:
		return ErrNotConnected
	default:
		log.Printf("[ws] send buffer full, dropping %s", event)
	}
	return nil
}

// request sends a frame carrying a fresh ack id and waits for the matching
// acknowledgement, the ack timeout, the context or the loss of the connection,
// whichever comes first.
func (c *Client) request(ctx context.Context, event string, payload any) (*models.Ack, error) {
	ackID := uuid.NewString()
	frame, err := encodeFrame(event, ackID, payload)
	if err != nil {
		return nil, err
	}

	ch := make(chan ackResult, 1)

	c.mu.Lock()
	cn := c.cur
	if cn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.pending[ackID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, ackID)
		c.mu.Unlock()
	}()

	start := time.Now()
	select {
	case cn.send <- frame:
	case <-cn.done:
		metrics.AckFailures.WithLabelValues(event, "connection_lost").Inc()
		return nil, fmt.Errorf("%s: %w", event, ErrConnectionLost)
	case <-ctx.Done():
		metrics.AckFailures.WithLabelValues(event, "cancelled").Inc()
		return nil, ctx.Err()
	}

	timer := time.NewTimer(c.cfg.AckTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			if errors.Is(res.err, ErrConnectionLost) {
				metrics.AckFailures.WithLabelValues(event, "connection_lost").Inc()
			}
			return nil, fmt.Errorf("%s: %w", event, res.err)
		}
		metrics.AckLatency.WithLabelValues(event).Observe(time.Since(start).Seconds())
		return res.ack, nil
	case <-timer.C:
		metrics.AckFailures.WithLabelValues(event, "timeout").Inc()
		return nil, fmt.Errorf("%s after %s: %w", event, c.cfg.AckTimeout, ErrAckTimeout)
	case <-ctx.Done():
		metrics.AckFailures.WithLabelValues(event, "cancelled").Inc()
		return nil, ctx.Err()
	}
}

func encodeFrame(event, ackID string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	frame, err := json.Marshal(models.WSMessage{Event: event, AckID: ackID, Payload: data})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", event, err)
	}
	return frame, nil
}

// readPump dispatches frames from the gateway until the socket fails
func (c *Client) readPump(cn *conn) {
	defer func() {
		lost := c.drop(cn)
		cn.ws.Close()
		if lost {
			go c.reconnect()
		}
	}()

	cn.ws.SetReadLimit(maxMessageSize)
	cn.ws.SetReadDeadline(time.Now().Add(pongWait))
	cn.ws.SetPongHandler(func(string) error {
		cn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := cn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	env, err := models.DecodeEnvelope(data)
	if err != nil {
		log.Printf("[ws] dropping malformed frame: %v", err)
		return
	}

	if env.Event == models.EventAck {
		c.mu.Lock()
		ch, ok := c.pending[env.AckID]
		delete(c.pending, env.AckID)
		c.mu.Unlock()
		if !ok {
			log.Printf("[ws] ack %q has no pending request", env.AckID)
			return
		}
		ack, err := models.DecodeAck(env.Payload)
		ch <- ackResult{ack: ack, err: err}
		return
	}

	metrics.PushEvents.WithLabelValues(env.Event).Inc()

	c.mu.Lock()
	handler := c.onEvent
	c.mu.Unlock()
	if handler != nil {
		handler(env.Event, env.Payload)
	}
}

// writePump writes queued frames and keeps the connection alive with pings
func (c *Client) writePump(cn *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cn.ws.Close()
	}()

	for {
		select {
		case frame := <-cn.send:
			cn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cn.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("[ws] write error: %v", err)
				return
			}

		case <-ticker.C:
			cn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-cn.done:
			return
		}
	}
}

// drop retires cn and fails every pending request. It reports whether the
// connection was lost rather than closed through Disconnect.
func (c *Client) drop(cn *conn) bool {
	c.mu.Lock()
	if c.cur != cn {
		c.mu.Unlock()
		return false
	}
	c.cur = nil
	close(cn.done)
	for id, ch := range c.pending {
		ch <- ackResult{err: ErrConnectionLost}
		delete(c.pending, id)
	}
	stopped := false
	select {
	case <-c.stop:
		stopped = true
	default:
	}
	c.mu.Unlock()

	return !stopped
}

// reconnect redials after an unexpected drop with the same bounded policy as
// Connect. Giving up leaves the client disconnected.
func (c *Client) reconnect() {
	c.mu.Lock()
	stop := c.stop
	c.mu.Unlock()

	log.Printf("[ws] connection lost, reconnecting")
	c.setStatus(StatusReconnecting)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := c.dialWithRetry(ctx, stop); err != nil {
		log.Printf("[ws] giving up: %v", err)
		c.setStatus(StatusDisconnected)
	}
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	if c.status == s {
		c.mu.Unlock()
		return
	}
	c.status = s
	fn := c.onStatus
	c.mu.Unlock()

	if s == StatusConnected {
		metrics.GatewayConnected.Set(1)
	} else {
		metrics.GatewayConnected.Set(0)
	}
	log.Printf("[ws] status: %s", s)

	if fn != nil {
		fn(s)
	}
}
