package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Chat        ChatConfig
	API         APIConfig
	Credentials CredentialsConfig
	Limits      LimitsConfig
	Redis       RedisConfig
	NATS        NATSConfig
	CORS        CORSConfig
}

type ServerConfig struct {
	Port   string
	Env    string
	APIKey string
}

// ChatConfig controls the socket connection to the chat gateway.
type ChatConfig struct {
	SocketURL         string
	Namespace         string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ConnectTimeout    time.Duration
	AckTimeout        time.Duration
	TypingInterval    time.Duration
}

type APIConfig struct {
	BaseURL                 string
	RequestTimeout          time.Duration
	PageSize                int
	KeyHeader               string
	RateLimitRequestsPerSec int
}

type CredentialsConfig struct {
	TokenFile string
	TokenEnv  string
}

type LimitsConfig struct {
	SendLimit  int
	SendWindow time.Duration
	// LongForm raises the message length limit for support desks
	LongForm bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

type NATSConfig struct {
	URL     string
	Subject string
	Enabled bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:   getEnv("PORT", "8090"),
			Env:    getEnv("ENV", "development"),
			APIKey: getEnv("CONTROL_API_KEY", ""),
		},
		Chat: ChatConfig{
			SocketURL:         getEnv("CHAT_SOCKET_URL", "ws://localhost:8080"),
			Namespace:         getEnv("CHAT_NAMESPACE", "/chat"),
			ReconnectAttempts: getInt("CHAT_RECONNECT_ATTEMPTS", 5),
			ReconnectDelay:    getDuration("CHAT_RECONNECT_DELAY", time.Second),
			ConnectTimeout:    getDuration("CHAT_CONNECT_TIMEOUT", 20*time.Second),
			AckTimeout:        getDuration("CHAT_ACK_TIMEOUT", 10*time.Second),
			TypingInterval:    getDuration("CHAT_TYPING_INTERVAL", 2*time.Second),
		},
		API: APIConfig{
			BaseURL:                 getEnv("API_BASE_URL", "http://localhost:8080/api/v1"),
			RequestTimeout:          getDuration("API_REQUEST_TIMEOUT", 15*time.Second),
			PageSize:                getInt("API_PAGE_SIZE", 50),
			KeyHeader:               getEnv("API_KEY_HEADER", "X-API-Key"),
			RateLimitRequestsPerSec: getInt("RATE_LIMIT_REQUESTS_PER_SECOND", 10),
		},
		Credentials: CredentialsConfig{
			TokenFile: getEnv("CHAT_TOKEN_FILE", ""),
			TokenEnv:  getEnv("CHAT_TOKEN_ENV", "CHAT_TOKEN"),
		},
		Limits: LimitsConfig{
			SendLimit:  getInt("SEND_RATE_LIMIT", 5),
			SendWindow: getDuration("SEND_RATE_WINDOW", 5*time.Second),
			LongForm:   getBool("CHAT_LONG_FORM", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			Enabled:  getBool("REDIS_ENABLED", false),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Subject: getEnv("NATS_SUBJECT", "chatdesk"),
			Enabled: getBool("NATS_ENABLED", false),
		},
		CORS: CORSConfig{
			AllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
	}

	if cfg.Server.APIKey == "" && cfg.Server.Env == "production" {
		return nil, fmt.Errorf("CONTROL_API_KEY must be set in production")
	}
	if cfg.Limits.SendLimit <= 0 {
		return nil, fmt.Errorf("SEND_RATE_LIMIT must be positive, got %d", cfg.Limits.SendLimit)
	}

	return cfg, nil
}

// SocketEndpoint returns the namespaced socket URL
func (c *Config) SocketEndpoint() string {
	ns := c.Chat.Namespace
	if ns != "" && !strings.HasPrefix(ns, "/") {
		ns = "/" + ns
	}
	return strings.TrimRight(c.Chat.SocketURL, "/") + ns
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}
