package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tullo/chatdesk/internal/auth"
	"github.com/tullo/chatdesk/internal/models"
)

// fakeBackend mimics the chat REST endpoints
func fakeBackend(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var calls []string
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer tok" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		calls = append(calls, c.Request.Method+" "+c.Request.URL.RequestURI())
		c.Next()
	})

	chat := r.Group("/api/v1/chat")
	chat.GET("/conversations", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": []gin.H{
			{"id": "c1", "title": "Support", "unreadCount": 2, "participants": []any{"u1", gin.H{"id": "u2", "name": "Ana"}}},
		}})
	})
	chat.GET("/conversations/:id/messages", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Conversation not found"})
			return
		}
		if c.Param("id") == "broken" {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": []gin.H{{"content": "no id"}}})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": []gin.H{
				{"id": "m1", "conversationId": c.Param("id"), "senderId": "u2", "content": "older", "createdAt": "2024-03-09T10:00:00Z"},
			},
			"pagination": gin.H{"hasMore": true, "nextCursor": "cur-2"},
		})
	})
	chat.POST("/conversations/:id/messages", func(c *gin.Context) {
		var req models.SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": gin.H{
			"id": "srv-9", "conversationId": c.Param("id"), "senderId": "me", "content": req.Content, "type": req.Type,
		}})
	})
	chat.PATCH("/conversations/:id/archive", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Archiving is disabled"})
	})
	chat.PATCH("/conversations/:id/star", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	chat.PATCH("/conversations/:id/read", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	chat.DELETE("/conversations/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	chat.DELETE("/conversations/:id/messages/:mid", func(c *gin.Context) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your message"})
	})
	chat.PATCH("/conversations/:id/messages/:mid", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
			"id": c.Param("mid"), "conversationId": c.Param("id"), "senderId": "me", "content": "edited", "edited": true,
		}})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestListConversations(t *testing.T) {
	srv, _ := fakeBackend(t)
	c := NewClient(srv.URL+"/api/v1", auth.StaticToken("tok"), time.Second)

	convs, err := c.ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 1 || convs[0].UnreadCount != 2 || len(convs[0].Participants) != 2 {
		t.Fatalf("unexpected conversations %+v", convs)
	}
	if convs[0].Participants[0].ID != "u1" || convs[0].Participants[1].Name != "Ana" {
		t.Errorf("participants not decoded: %+v", convs[0].Participants)
	}
}

func TestGetMessages(t *testing.T) {
	srv, calls := fakeBackend(t)
	c := NewClient(srv.URL+"/api/v1/", auth.StaticToken("tok"), time.Second)

	page, err := c.GetMessages(context.Background(), "c1", "cur-1", 20)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(page.Messages) != 1 || !page.HasMore || page.NextCursor != "cur-2" {
		t.Errorf("unexpected page %+v", page)
	}
	if page.Messages[0].Type != models.MessageText {
		t.Errorf("expected default text type, got %q", page.Messages[0].Type)
	}
	if got := (*calls)[0]; got != "GET /api/v1/chat/conversations/c1/messages?cursor=cur-1&limit=20" {
		t.Errorf("unexpected request %q", got)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _ := fakeBackend(t)
	c := NewClient(srv.URL+"/api/v1", auth.StaticToken("tok"), time.Second)
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() error
		status  int
		message string
	}{
		{
			name:    "not found",
			call:    func() error { _, err := c.GetMessages(ctx, "missing", "", 0); return err },
			status:  http.StatusNotFound,
			message: "Conversation not found",
		},
		{
			name:    "success false on 200",
			call:    func() error { return c.SetArchived(ctx, "c1", true) },
			status:  http.StatusOK,
			message: "Archiving is disabled",
		},
		{
			name:    "error body",
			call:    func() error { return c.DeleteMessage(ctx, "c1", "m1") },
			status:  http.StatusForbidden,
			message: "Not your message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.message {
				t.Errorf("got %d %q, want %d %q", apiErr.Status, apiErr.Message, tt.status, tt.message)
			}
		})
	}

	if _, err := c.GetMessages(ctx, "missing", "", 0); !IsNotFound(err) {
		t.Error("IsNotFound should match a 404")
	}
}

func TestMalformedRecordIsDecodeError(t *testing.T) {
	srv, _ := fakeBackend(t)
	c := NewClient(srv.URL+"/api/v1", auth.StaticToken("tok"), time.Second)

	_, err := c.GetMessages(context.Background(), "broken", "", 0)
	var decErr *models.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *models.DecodeError, got %v", err)
	}
}

func TestMutations(t *testing.T) {
	srv, calls := fakeBackend(t)
	c := NewClient(srv.URL+"/api/v1", auth.StaticToken("tok"), time.Second)
	ctx := context.Background()

	m, err := c.PostMessage(ctx, "c1", models.SendMessageRequest{Content: "hello", Type: models.MessageText})
	if err != nil || m.ID != "srv-9" || m.Content != "hello" {
		t.Fatalf("PostMessage: %+v, %v", m, err)
	}
	edited, err := c.EditMessage(ctx, "c1", "srv-9", "edited")
	if err != nil || !edited.Edited {
		t.Fatalf("EditMessage: %+v, %v", edited, err)
	}
	if err := c.SetStarred(ctx, "c1", true); err != nil {
		t.Fatalf("SetStarred: %v", err)
	}
	if err := c.MarkRead(ctx, "c1", []string{"srv-9"}); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := c.DeleteConversation(ctx, "c1"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}

	want := []string{
		"POST /api/v1/chat/conversations/c1/messages",
		"PATCH /api/v1/chat/conversations/c1/messages/srv-9",
		"PATCH /api/v1/chat/conversations/c1/star",
		"PATCH /api/v1/chat/conversations/c1/read",
		"DELETE /api/v1/chat/conversations/c1",
	}
	for i, w := range want {
		if (*calls)[i] != w {
			t.Errorf("call %d: got %q, want %q", i, (*calls)[i], w)
		}
	}
}

func TestMissingTokenNeverCallsServer(t *testing.T) {
	srv, calls := fakeBackend(t)
	c := NewClient(srv.URL+"/api/v1", auth.StaticToken(""), time.Second)

	if _, err := c.ListConversations(context.Background()); !errors.Is(err, auth.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if len(*calls) != 0 {
		t.Error("request sent without token")
	}
}

func TestUnauthorized(t *testing.T) {
	srv, _ := fakeBackend(t)
	c := NewClient(srv.URL+"/api/v1", auth.StaticToken("wrong"), time.Second)

	_, err := c.ListConversations(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Unauthorized" {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}
