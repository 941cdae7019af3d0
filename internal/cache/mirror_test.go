package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tullo/chatdesk/internal/store"
)

type recordingSink struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingSink) record(s string) error {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) SetUserOnline(ctx context.Context, id string) error {
	return r.record("online:" + id)
}

func (r *recordingSink) SetUserOffline(ctx context.Context, id string) error {
	return r.record("offline:" + id)
}

func (r *recordingSink) SetTyping(ctx context.Context, conv, id string) error {
	return r.record("typing:" + conv + ":" + id)
}

func (r *recordingSink) RemoveTyping(ctx context.Context, conv, id string) error {
	return r.record("idle:" + conv + ":" + id)
}

func (r *recordingSink) PublishChange(ctx context.Context, c store.Change) error {
	return r.record("publish:" + string(c.Kind))
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func waitFor(t *testing.T, sink *recordingSink, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls := sink.snapshot(); len(calls) >= n {
			return calls
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d sink calls, got %v", n, sink.snapshot())
	return nil
}

func TestMirrorPresenceAndTyping(t *testing.T) {
	st := store.New()
	sink := &recordingSink{}
	stop := NewMirror(sink, st).Start()
	defer stop()

	// the mirror reads current state, so each step settles before the next
	steps := []struct {
		do   func()
		want []string
	}{
		{func() { st.AddOnlineUser("u1") }, []string{"online:u1", "publish:presence"}},
		{func() { st.RemoveOnlineUser("u1") }, []string{"offline:u1", "publish:presence"}},
		{func() { st.SetTyping("c1", "u2", true) }, []string{"typing:c1:u2", "publish:typing"}},
		{func() { st.SetTyping("c1", "u2", false) }, []string{"idle:c1:u2", "publish:typing"}},
	}

	seen := 0
	for i, step := range steps {
		step.do()
		calls := waitFor(t, sink, seen+len(step.want))
		if got := calls[seen:]; fmt.Sprint(got) != fmt.Sprint(step.want) {
			t.Errorf("step %d: got %v, want %v", i, got, step.want)
		}
		seen += len(step.want)
	}
}

func TestMirrorOnlineSnapshot(t *testing.T) {
	st := store.New()
	sink := &recordingSink{}
	stop := NewMirror(sink, st).Start()
	defer stop()

	st.SetOnlineUsers([]string{"a", "b"})

	calls := waitFor(t, sink, 3)
	online := calls[:2]
	sort.Strings(online)
	if fmt.Sprint(online) != "[online:a online:b]" || calls[2] != "publish:presence" {
		t.Errorf("unexpected calls %v", calls)
	}
}

// newTestClient requires a running Redis on localhost:6379.
func newTestClient(t *testing.T) *RedisClient {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewFromClient(client)
}

func TestRedisPresenceAndTyping(t *testing.T) {
	r := newTestClient(t)
	ctx := context.Background()

	if err := r.SetUserOnline(ctx, "test_u1"); err != nil {
		t.Fatalf("SetUserOnline: %v", err)
	}
	p, err := r.GetUserPresence(ctx, "test_u1")
	if err != nil || p.Status != "online" {
		t.Fatalf("expected online, got %+v %v", p, err)
	}
	if p, _ := r.GetUserPresence(ctx, "test_nobody"); p.Status != "offline" {
		t.Errorf("unknown user should be offline, got %s", p.Status)
	}

	r.SetTyping(ctx, "test_c1", "test_u1")
	defer r.RemoveTyping(ctx, "test_c1", "test_u1")
	users, err := r.GetTypingUsers(ctx, "test_c1")
	if err != nil || len(users) != 1 || users[0] != "test_u1" {
		t.Errorf("unexpected typing users %v %v", users, err)
	}
}

func TestRedisPublishChange(t *testing.T) {
	r := newTestClient(t)
	ctx := context.Background()

	sub := r.SubscribeToChanges(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := r.PublishChange(ctx, store.Change{Kind: store.MessageAdded, ConversationID: "c1", MessageID: "m1"}); err != nil {
		t.Fatalf("PublishChange: %v", err)
	}
	select {
	case msg := <-sub.Channel():
		if msg.Payload != `{"kind":"message_added","conversationId":"c1","messageId":"m1"}` {
			t.Errorf("unexpected payload %s", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
