package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"Two characters", "ab", true},
		{"Three characters", "abc", false},
		{"Hundred characters", strings.Repeat("a", 100), false},
		{"Hundred and one characters", strings.Repeat("a", 101), true},
		{"Padded short title", "  ab  ", true},
		{"Multibyte characters", "日本語", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Title(tt.title)
			if (err != nil) != tt.wantErr {
				t.Errorf("Title(%q) error = %v, wantErr %v", tt.title, err, tt.wantErr)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		long    bool
		wantErr bool
	}{
		{"Empty", "", false, true},
		{"Whitespace", "   \n", false, true},
		{"Hello", "hello", false, false},
		{"At chat limit", strings.Repeat("x", 5000), false, false},
		{"Over chat limit", strings.Repeat("x", 5001), false, true},
		{"Over chat limit as long message", strings.Repeat("x", 5001), true, false},
		{"At long limit", strings.Repeat("x", 10000), true, false},
		{"Over long limit", strings.Repeat("x", 10001), true, true},
		{"Invalid UTF-8", "\xff\xfe", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.long {
				err = LongMessage(tt.content)
			} else {
				err = Message(tt.content)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParticipants(t *testing.T) {
	many := make([]string, 51)
	for i := range many {
		many[i] = fmt.Sprintf("u%d", i)
	}

	tests := []struct {
		name    string
		ids     []string
		wantErr bool
	}{
		{"None", nil, true},
		{"One", []string{"u1"}, false},
		{"Fifty", many[:50], false},
		{"Fifty one", many, true},
		{"Duplicate", []string{"u1", "u1"}, true},
		{"Empty id", []string{"u1", ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Participants(tt.ids)
			if (err != nil) != tt.wantErr {
				t.Errorf("Participants() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileAndImage(t *testing.T) {
	tests := []struct {
		name    string
		check   func() error
		wantErr bool
	}{
		{"Document", func() error { return File("notes.pdf", 1024) }, false},
		{"File at limit", func() error { return File("big.zip", MaxFileBytes) }, false},
		{"File over limit", func() error { return File("big.zip", MaxFileBytes+1) }, true},
		{"Executable", func() error { return File("setup.EXE", 10) }, true},
		{"Shell script", func() error { return File("run.sh", 10) }, true},
		{"Empty file", func() error { return File("a.txt", 0) }, true},
		{"Png", func() error { return Image("a.png", "image/png", 2048) }, false},
		{"Image at limit", func() error { return Image("a.jpg", "image/jpeg", MaxImageBytes) }, false},
		{"Image over limit", func() error { return Image("a.jpg", "image/jpeg", MaxImageBytes+1) }, true},
		{"Svg mime", func() error { return Image("a.svg", "image/svg+xml", 100) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check()
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := Title("ab")

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if verr.Field != "title" {
		t.Errorf("Expected field title, got %q", verr.Field)
	}
}
