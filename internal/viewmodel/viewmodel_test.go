package viewmodel

import (
	"strings"
	"testing"
	"time"

	"github.com/tullo/chatdesk/internal/models"
)

func TestDateLabel(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"Earlier today", time.Date(2024, 3, 10, 0, 1, 0, 0, time.UTC), LabelToday},
		{"Yesterday before midnight", time.Date(2024, 3, 9, 23, 58, 0, 0, time.UTC), LabelYesterday},
		{"Yesterday morning", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), LabelYesterday},
		{"Two days ago", time.Date(2024, 3, 8, 23, 59, 0, 0, time.UTC), "Friday, March 8, 2024"},
		{"Last year", time.Date(2023, 12, 25, 12, 0, 0, 0, time.UTC), "Monday, December 25, 2023"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateLabel(tt.t, now); got != tt.want {
				t.Errorf("DateLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGroupByDay_MidnightSplit(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	msgs := []Message{
		{ID: "m1", CreatedAt: time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)},
		{ID: "m2", CreatedAt: time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)},
	}

	got := GroupByDay(msgs, now)

	if !got[0].ShowDateDivider || got[0].DateLabel != "Monday, January 1, 2024" {
		t.Errorf("first message: divider=%v label=%q", got[0].ShowDateDivider, got[0].DateLabel)
	}
	if !got[1].ShowDateDivider {
		t.Fatal("second message should start a new day even though only 2 minutes elapsed")
	}
	if got[1].DateLabel != "Tuesday, January 2, 2024" {
		t.Errorf("second message label = %q", got[1].DateLabel)
	}
	if msgs[1].ShowDateDivider {
		t.Error("input slice must not be modified")
	}
}

func TestGroupByDay_SameDayAndMissingTimestamps(t *testing.T) {
	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)
	msgs := []Message{
		{ID: "m1", CreatedAt: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)},
		{ID: "m2"},
		{ID: "m3", CreatedAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)},
		{ID: "m4", CreatedAt: time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC)},
	}

	got := GroupByDay(msgs, now)

	if !got[0].ShowDateDivider || got[0].DateLabel != LabelToday {
		t.Errorf("expected Today divider on first message, got %+v", got[0])
	}
	for _, i := range []int{1, 2, 3} {
		if got[i].ShowDateDivider {
			t.Errorf("message %s should not carry a divider", got[i].ID)
		}
	}
	if got[1].DateLabel != "" {
		t.Errorf("message without timestamp must pass through, got label %q", got[1].DateLabel)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "now"},
		{now.Add(-5 * time.Minute), "5m"},
		{now.Add(-3 * time.Hour), "3h"},
		{time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC), LabelYesterday},
		{time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC), "Feb 1"},
		{time.Date(2023, 2, 1, 8, 0, 0, 0, time.UTC), "Feb 1, 2023"},
		{time.Time{}, ""},
	}

	for _, tt := range tests {
		if got := RelativeTime(tt.t, now); got != tt.want {
			t.Errorf("RelativeTime(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize(`<script>alert(1)</script><b>ok</b>`); got != `<b>ok</b>` {
		t.Errorf("Sanitize() = %q, want %q", got, `<b>ok</b>`)
	}

	got := Sanitize(`<a href="https://example.com" target="_blank" rel="noopener" class="x" onclick="steal()">docs</a>`)
	if !strings.Contains(got, `href="https://example.com"`) || !strings.Contains(got, `target="_blank"`) {
		t.Errorf("expected href and target to survive, got %q", got)
	}
	if strings.Contains(got, "class") || strings.Contains(got, "onclick") {
		t.Errorf("expected non allow-listed attributes to be dropped, got %q", got)
	}

	got = Sanitize(`<a href="javascript:alert(1)">click</a>`)
	if strings.Contains(got, "javascript") || !strings.Contains(got, "click") {
		t.Errorf("expected javascript href removed and text kept, got %q", got)
	}

	got = Sanitize(`<p>line<br>next</p><img src=x onerror=alert(1)><pre><code>x</code></pre>`)
	if strings.Contains(got, "img") || !strings.Contains(got, "<p>") || !strings.Contains(got, "<code>") {
		t.Errorf("unexpected sanitize result %q", got)
	}
}

func TestToMessage(t *testing.T) {
	created := time.Date(2024, 3, 10, 14, 5, 0, 0, time.UTC)
	wire := models.Message{
		ID:             "m1",
		ConversationID: "c1",
		SenderID:       "me",
		Sender:         &models.Participant{ID: "me", Name: "Admin"},
		Content:        `hi <script>x</script>`,
		ReadBy:         []string{"u2"},
		CreatedAt:      created,
	}

	m := ToMessage(wire, "me")
	if m.Sender != SenderMe {
		t.Errorf("expected sender me, got %q", m.Sender)
	}
	if m.Content != "hi " {
		t.Errorf("expected sanitized content, got %q", m.Content)
	}
	if !m.Read {
		t.Error("expected my message read by u2 to be read")
	}
	if m.Timestamp != "14:05" || m.SenderName != "Admin" || m.Type != models.MessageText {
		t.Errorf("unexpected view-model %+v", m)
	}

	wire.SenderID = "u2"
	wire.Type = models.MessageCode
	wire.Content = "<b>raw</b>"
	m = ToMessage(wire, "me")
	if m.Sender != SenderOther {
		t.Errorf("expected sender other, got %q", m.Sender)
	}
	if m.Read {
		t.Error("expected other's message unread until I read it")
	}
	if m.Content != "<b>raw</b>" {
		t.Errorf("code content must not be sanitized, got %q", m.Content)
	}

	m = WithReader(m, "me", "me")
	if !m.Read || len(m.ReadBy) != 2 {
		t.Errorf("expected read after WithReader, got %+v", m)
	}
	if again := WithReader(m, "me", "me"); len(again.ReadBy) != 2 {
		t.Errorf("WithReader must not duplicate readers, got %v", again.ReadBy)
	}
}

func TestToConversation(t *testing.T) {
	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)
	last := now.Add(-10 * time.Minute)
	wire := models.Conversation{
		ID:            "c1",
		Participants:  []models.Participant{{ID: "me"}, {ID: "u2", Name: "Student Two", AvatarURL: "/s2.png"}},
		LastMessage:   "see you",
		LastMessageAt: &last,
		UnreadCount:   3,
		Starred:       true,
	}

	c := ToConversation(wire, "me", now)
	if c.Name != "Student Two" || c.AvatarURL != "/s2.png" {
		t.Errorf("expected direct conversation named after peer, got %+v", c)
	}
	if c.LastMessageTime != "10m" || c.UnreadCount != 3 || !c.Starred {
		t.Errorf("unexpected conversation %+v", c)
	}
	if !c.HasParticipant("u2") || c.HasParticipant("u3") {
		t.Error("HasParticipant mismatch")
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		m    Message
		want string
	}{
		{Message{Type: models.MessageText, Content: "hello"}, "hello"},
		{Message{Type: models.MessageImage}, "Sent an image"},
		{Message{Type: models.MessageFile, FileName: "syllabus.pdf"}, "Sent a file: syllabus.pdf"},
		{Message{Type: models.MessageCode}, "Sent a code snippet"},
	}

	for _, tt := range tests {
		if got := Preview(tt.m); got != tt.want {
			t.Errorf("Preview() = %q, want %q", got, tt.want)
		}
	}
}
