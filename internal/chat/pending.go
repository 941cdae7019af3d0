package chat

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tullo/chatdesk/internal/metrics"
)

// ActionKind names an optimistic action.
type ActionKind string

const (
	ActionSend               ActionKind = "send"
	ActionEdit               ActionKind = "edit"
	ActionDeleteMessage      ActionKind = "delete_message"
	ActionMarkRead           ActionKind = "mark_read"
	ActionArchive            ActionKind = "archive"
	ActionStar               ActionKind = "star"
	ActionDeleteConversation ActionKind = "delete_conversation"
)

// ActionState is where an optimistic action is in its lifecycle:
//
//	pending -> confirmed
//	pending -> failed -> rolled_back
type ActionState string

const (
	StatePending    ActionState = "pending"
	StateConfirmed  ActionState = "confirmed"
	StateFailed     ActionState = "failed"
	StateRolledBack ActionState = "rolled_back"
)

// PendingAction is a snapshot of one optimistic action.
type PendingAction struct {
	ID             string      `json:"id"`
	Kind           ActionKind  `json:"kind"`
	ConversationID string      `json:"conversationId"`
	TargetID       string      `json:"targetId,omitempty"`
	State          ActionState `json:"state"`
	Error          string      `json:"error,omitempty"`
	StartedAt      time.Time   `json:"startedAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

func (a PendingAction) settled() bool {
	return a.State == StateConfirmed || a.State == StateRolledBack
}

var transitions = map[ActionState][]ActionState{
	StatePending: {StateConfirmed, StateFailed},
	StateFailed:  {StateRolledBack},
}

func canMove(from, to ActionState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// maxSettled bounds how many finished actions are kept for inspection
const maxSettled = 100

type tracker struct {
	mu      sync.Mutex
	actions map[string]*PendingAction
	order   []string
	now     func() time.Time
}

func newTracker(now func() time.Time) *tracker {
	return &tracker{actions: make(map[string]*PendingAction), now: now}
}

func (t *tracker) begin(kind ActionKind, conversationID, targetID string) string {
	now := t.now()
	a := &PendingAction{
		ID:             uuid.NewString(),
		Kind:           kind,
		ConversationID: conversationID,
		TargetID:       targetID,
		State:          StatePending,
		StartedAt:      now,
		UpdatedAt:      now,
	}

	t.mu.Lock()
	t.actions[a.ID] = a
	t.order = append(t.order, a.ID)
	t.mu.Unlock()

	metrics.PendingActions.Inc()
	return a.ID
}

func (t *tracker) move(id string, to ActionState, err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.actions[id]
	if !ok {
		return fmt.Errorf("unknown action %s", id)
	}
	if !canMove(a.State, to) {
		return fmt.Errorf("action %s cannot move from %s to %s", id, a.State, to)
	}
	if a.State == StatePending {
		metrics.PendingActions.Dec()
	}
	a.State = to
	a.UpdatedAt = t.now()
	if err != nil {
		a.Error = err.Error()
	}
	if a.settled() {
		t.trim()
	}
	return nil
}

// confirm marks the action acknowledged by the server. targetID replaces the
// temporary id when the server assigned one.
func (t *tracker) confirm(id, targetID string) error {
	if err := t.move(id, StateConfirmed, nil); err != nil {
		return err
	}
	if targetID != "" {
		t.mu.Lock()
		if a, ok := t.actions[id]; ok {
			a.TargetID = targetID
		}
		t.mu.Unlock()
	}
	return nil
}

func (t *tracker) fail(id string, err error) error {
	return t.move(id, StateFailed, err)
}

func (t *tracker) rollBack(id string) error {
	return t.move(id, StateRolledBack, nil)
}

// trim drops the oldest settled actions beyond maxSettled. Callers hold mu.
func (t *tracker) trim() {
	settled := 0
	for _, id := range t.order {
		if t.actions[id].settled() {
			settled++
		}
	}
	if settled <= maxSettled {
		return
	}

	drop := settled - maxSettled
	kept := t.order[:0]
	for _, id := range t.order {
		if drop > 0 && t.actions[id].settled() {
			delete(t.actions, id)
			drop--
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

func (t *tracker) get(id string) (PendingAction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.actions[id]
	if !ok {
		return PendingAction{}, false
	}
	return *a, true
}

// list returns snapshots in start order; unsettledOnly skips finished ones
func (t *tracker) list(unsettledOnly bool) []PendingAction {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]PendingAction, 0, len(t.order))
	for _, id := range t.order {
		a := t.actions[id]
		if unsettledOnly && a.settled() {
			continue
		}
		out = append(out, *a)
	}
	return out
}
