package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("CHAT_ACK_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Chat.AckTimeout != 10*time.Second {
		t.Errorf("Expected ack timeout 10s, got %v", cfg.Chat.AckTimeout)
	}
	if cfg.Limits.SendLimit != 5 || cfg.Limits.SendWindow != 5*time.Second {
		t.Errorf("Expected 5 sends per 5s, got %d per %v", cfg.Limits.SendLimit, cfg.Limits.SendWindow)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CHAT_RECONNECT_ATTEMPTS", "3")
	t.Setenv("CHAT_RECONNECT_DELAY", "250ms")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Chat.ReconnectAttempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", cfg.Chat.ReconnectAttempts)
	}
	if cfg.Chat.ReconnectDelay != 250*time.Millisecond {
		t.Errorf("Expected 250ms delay, got %v", cfg.Chat.ReconnectDelay)
	}
	if !cfg.Redis.Enabled {
		t.Error("Expected redis to be enabled")
	}
}

func TestLoad_ProductionRequiresAPIKey(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("CONTROL_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error when CONTROL_API_KEY is missing in production")
	}
}

func TestSocketEndpoint(t *testing.T) {
	tests := []struct {
		url, ns, want string
	}{
		{"ws://host:8080", "/chat", "ws://host:8080/chat"},
		{"ws://host:8080/", "chat", "ws://host:8080/chat"},
		{"wss://host", "", "wss://host"},
	}

	for _, tt := range tests {
		cfg := &Config{Chat: ChatConfig{SocketURL: tt.url, Namespace: tt.ns}}
		if got := cfg.SocketEndpoint(); got != tt.want {
			t.Errorf("SocketEndpoint(%q, %q) = %q, want %q", tt.url, tt.ns, got, tt.want)
		}
	}
}
