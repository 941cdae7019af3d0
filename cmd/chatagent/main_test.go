package main

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/tullo/chatdesk/internal/chat"
	"github.com/tullo/chatdesk/internal/store"
	"github.com/tullo/chatdesk/internal/websocket"
)

type fakePublisher struct {
	err    error
	events []string
}

func (f *fakePublisher) Publish(event string, payload any) error {
	f.events = append(f.events, event)
	return f.err
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestForwarders(t *testing.T) {
	buf := captureLog(t)
	p := &fakePublisher{}

	forwardChanges(p)(store.Change{Kind: store.MessageAdded, ConversationID: "c1"})
	forwardNotices(p)(chat.Notice{Level: chat.LevelError, Text: "Failed to send message"})

	if len(p.events) != 2 || p.events[0] != websocket.EventStoreChange || p.events[1] != eventNotice {
		t.Errorf("unexpected events %v", p.events)
	}
	if strings.Contains(buf.String(), "[hub]") {
		t.Errorf("unexpected publish failure logged: %s", buf.String())
	}
}

func TestForwardersLogPublishFailures(t *testing.T) {
	buf := captureLog(t)
	p := &fakePublisher{err: errors.New("failed to encode notice")}

	forwardChanges(p)(store.Change{Kind: store.MessageAdded})
	forwardNotices(p)(chat.Notice{Level: chat.LevelWarning, Text: "Offline"})

	out := buf.String()
	if !strings.Contains(out, "[hub] publish change: failed to encode notice") {
		t.Errorf("change failure not logged: %s", out)
	}
	if !strings.Contains(out, "[hub] publish notice: failed to encode notice") {
		t.Errorf("notice failure not logged: %s", out)
	}
}
