// Package api is the REST side of the chat service: conversation lists,
// paginated history and the mutations the socket does not cover.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tullo/chatdesk/internal/auth"
	"github.com/tullo/chatdesk/internal/metrics"
	"github.com/tullo/chatdesk/internal/models"
)

const maxResponseBytes = 8 << 20

// APIError is a non-2xx response or a response with success:false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat api: status %d", e.Status)
	}
	return fmt.Sprintf("chat api: %s (status %d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a 404 from the chat API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Page is one page of message history, oldest first.
type Page struct {
	Messages   []models.Message
	NextCursor string
	HasMore    bool
}

// Client calls the chat endpoints under <base>/chat.
type Client struct {
	base   string
	tokens auth.TokenSource
	http   *http.Client
}

// NewClient creates a REST client. timeout bounds every request.
func NewClient(baseURL string, tokens auth.TokenSource, timeout time.Duration) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/") + "/chat",
		tokens: tokens,
		http:   &http.Client{Timeout: timeout},
	}
}

// ListConversations returns every conversation visible to the user
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	resp, err := c.do(ctx, "list_conversations", http.MethodGet, "/conversations", nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, nil
	}
	return models.DecodeConversations(resp.Data)
}

// GetMessages returns the page of history before cursor. An empty cursor
// asks for the newest page.
func (c *Client) GetMessages(ctx context.Context, conversationID, cursor string, limit int) (Page, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.do(ctx, "get_messages", http.MethodGet, path, nil)
	if err != nil {
		return Page{}, err
	}

	var page Page
	if len(resp.Data) > 0 && string(resp.Data) != "null" {
		if page.Messages, err = models.DecodeMessages(resp.Data); err != nil {
			return Page{}, err
		}
	}
	if resp.Pagination != nil {
		page.HasMore = resp.Pagination.HasMore
		page.NextCursor = resp.Pagination.NextCursor
	}
	return page, nil
}

// PostMessage sends a message over HTTP, used when the socket is down
func (c *Client) PostMessage(ctx context.Context, conversationID string, req models.SendMessageRequest) (*models.Message, error) {
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	resp, err := c.do(ctx, "post_message", http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}
	return models.DecodeMessage(resp.Data)
}

// EditMessage replaces the content of a message
func (c *Client) EditMessage(ctx context.Context, conversationID, messageID, content string) (*models.Message, error) {
	resp, err := c.do(ctx, "edit_message", http.MethodPatch, messagePath(conversationID, messageID), models.EditMessageRequest{Content: content})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, nil
	}
	return models.DecodeMessage(resp.Data)
}

// DeleteMessage deletes a single message
func (c *Client) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	_, err := c.do(ctx, "delete_message", http.MethodDelete, messagePath(conversationID, messageID), nil)
	return err
}

// DeleteConversation deletes a conversation
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := c.do(ctx, "delete_conversation", http.MethodDelete, "/conversations/"+url.PathEscape(conversationID), nil)
	return err
}

// MarkRead records a read receipt. No ids marks the whole conversation.
func (c *Client) MarkRead(ctx context.Context, conversationID string, messageIDs []string) error {
	path := "/conversations/" + url.PathEscape(conversationID) + "/read"
	_, err := c.do(ctx, "mark_read", http.MethodPatch, path, models.MarkReadRequest{MessageIDs: messageIDs})
	return err
}

// SetArchived sets the archived flag of a conversation
func (c *Client) SetArchived(ctx context.Context, conversationID string, archived bool) error {
	path := "/conversations/" + url.PathEscape(conversationID) + "/archive"
	_, err := c.do(ctx, "set_archived", http.MethodPatch, path, models.ArchiveRequest{Archived: archived})
	return err
}

// SetStarred sets the starred flag of a conversation
func (c *Client) SetStarred(ctx context.Context, conversationID string, starred bool) error {
	path := "/conversations/" + url.PathEscape(conversationID) + "/star"
	_, err := c.do(ctx, "set_starred", http.MethodPatch, path, models.StarRequest{Starred: starred})
	return err
}

func messagePath(conversationID, messageID string) string {
	return "/conversations/" + url.PathEscape(conversationID) + "/messages/" + url.PathEscape(messageID)
}

// do sends one request and unwraps the response envelope
func (c *Client) do(ctx context.Context, op, method, path string, body any) (*models.APIResponse, error) {
	resp, err := c.send(ctx, method, path, body)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RESTRequests.WithLabelValues(op, outcome).Inc()
	return resp, err
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*models.APIResponse, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", auth.BearerHeader(token))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var envelope models.APIResponse
	decodeErr := json.Unmarshal(raw, &envelope)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := envelope.Message
		if msg == "" {
			msg = errorField(raw)
		}
		return nil, &APIError{Status: res.StatusCode, Message: msg}
	}
	if res.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return &models.APIResponse{Success: true}, nil
	}
	if decodeErr != nil {
		return nil, &models.DecodeError{Kind: "response", Err: decodeErr}
	}
	if !envelope.Success {
		return nil, &APIError{Status: res.StatusCode, Message: envelope.Message}
	}
	return &envelope, nil
}

// errorField extracts {"error": "..."} bodies some endpoints answer with
func errorField(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		return body.Error
	}
	return ""
}
