// Package validation rejects obviously invalid input before it reaches the
// network. Every validator is pure and returns nil when the input is valid.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	MaxMessageChars     = 5000
	MaxLongMessageChars = 10000
	MinTitleChars       = 3
	MaxTitleChars       = 100
	MinParticipants     = 1
	MaxParticipants     = 50
	MaxFileBytes        = 50 << 20
	MaxImageBytes       = 10 << 20
)

var blockedExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".com": true, ".scr": true,
	".msi": true, ".vbs": true, ".js": true, ".jar": true, ".ps1": true,
	".sh": true, ".dll": true, ".app": true,
}

var imageMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidationError names the rejected field and why
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Message validates chat message content
func Message(content string) error {
	return messageWithLimit(content, MaxMessageChars)
}

// LongMessage validates content of support replies and announcements
func LongMessage(content string) error {
	return messageWithLimit(content, MaxLongMessageChars)
}

func messageWithLimit(content string, limit int) error {
	if strings.TrimSpace(content) == "" {
		return invalid("message", "cannot be empty")
	}
	if !utf8.ValidString(content) {
		return invalid("message", "contains invalid UTF-8")
	}
	if n := utf8.RuneCountInString(content); n > limit {
		return invalid("message", "exceeds %d characters (%d)", limit, n)
	}
	return nil
}

// Title validates a conversation title
func Title(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n < MinTitleChars {
		return invalid("title", "must be at least %d characters", MinTitleChars)
	}
	if n > MaxTitleChars {
		return invalid("title", "must be at most %d characters", MaxTitleChars)
	}
	return nil
}

// Participants validates the participant list of a new conversation
func Participants(ids []string) error {
	if len(ids) < MinParticipants {
		return invalid("participants", "must include at least %d user", MinParticipants)
	}
	if len(ids) > MaxParticipants {
		return invalid("participants", "must include at most %d users", MaxParticipants)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return invalid("participants", "contains an empty id")
		}
		if seen[id] {
			return invalid("participants", "contains duplicate id %s", id)
		}
		seen[id] = true
	}
	return nil
}

// File validates an attachment by name and size
func File(name string, size int64) error {
	if name == "" {
		return invalid("file", "name is required")
	}
	if size <= 0 {
		return invalid("file", "is empty")
	}
	if size > MaxFileBytes {
		return invalid("file", "exceeds %dMB", MaxFileBytes>>20)
	}
	if blockedExtensions[strings.ToLower(filepath.Ext(name))] {
		return invalid("file", "type %s is not allowed", filepath.Ext(name))
	}
	return nil
}

// Image validates an image attachment; images have a tighter size cap and a
// MIME allow-list on top of the general file rules
func Image(name, mimeType string, size int64) error {
	if err := File(name, size); err != nil {
		return err
	}
	if size > MaxImageBytes {
		return invalid("image", "exceeds %dMB", MaxImageBytes>>20)
	}
	if !imageMIMETypes[strings.ToLower(mimeType)] {
		return invalid("image", "type %s is not allowed", mimeType)
	}
	return nil
}

// ConversationType validates the type of a conversation being created
func ConversationType(t string) error {
	switch t {
	case "direct", "group", "support":
		return nil
	}
	return invalid("type", "must be one of direct, group, support")
}
