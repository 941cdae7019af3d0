package messaging

import (
	"encoding/json"
	"log"

	"github.com/tullo/chatdesk/internal/store"
	"github.com/tullo/chatdesk/internal/viewmodel"
)

// Publisher is the part of NATSClient the relay needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// MessageEvent is published on <prefix>.messages.<conversation_id> whenever
// a message is added or changed in the store.
type MessageEvent struct {
	Kind    store.ChangeKind  `json:"kind"`
	Message viewmodel.Message `json:"message"`
}

// Relay publishes store changes on <prefix>.changes.<kind> and full
// messages on <prefix>.messages.<conversation_id>.
type Relay struct {
	pub    Publisher
	store  *store.Store
	prefix string
}

func NewRelay(pub Publisher, st *store.Store, prefix string) *Relay {
	return &Relay{pub: pub, store: st, prefix: prefix}
}

// Start subscribes to the store. The returned function stops the relay.
func (r *Relay) Start() func() {
	return r.store.SubscribeAsync(256, r.apply)
}

func (r *Relay) apply(c store.Change) {
	data, err := json.Marshal(c)
	if err != nil {
		log.Printf("[nats] marshal change: %v", err)
		return
	}
	if err := r.pub.Publish(r.prefix+"."+SubjectChanges+"."+string(c.Kind), data); err != nil {
		log.Printf("[nats] publish %s: %v", c.Kind, err)
	}

	if c.Kind != store.MessageAdded && c.Kind != store.MessageChanged {
		return
	}
	// pending optimistic messages are published once confirmed
	m, ok := r.store.Message(c.ConversationID, c.MessageID)
	if !ok || m.Status == viewmodel.StatusPending {
		return
	}
	data, err = json.Marshal(MessageEvent{Kind: c.Kind, Message: m})
	if err != nil {
		log.Printf("[nats] marshal message: %v", err)
		return
	}
	if err := r.pub.Publish(r.prefix+"."+SubjectMessages+"."+c.ConversationID, data); err != nil {
		log.Printf("[nats] publish message %s: %v", c.MessageID, err)
	}
}
