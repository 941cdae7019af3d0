package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tullo/chatdesk/internal/models"
	"github.com/tullo/chatdesk/internal/store"
)

const (
	keyPrefix      = "chatdesk:"
	ChangesChannel = keyPrefix + "changes"

	onlineTTL  = 5 * time.Minute
	offlineTTL = 24 * time.Hour
)

type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(ctx context.Context, addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// NewFromClient wraps an existing connection
func NewFromClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

func presenceKey(userID string) string {
	return keyPrefix + "presence:user:" + userID
}

func typingKey(conversationID string) string {
	return keyPrefix + "typing:" + conversationID
}

// Presence

// SetUserOnline records a user as online. The entry expires unless refreshed.
func (r *RedisClient) SetUserOnline(ctx context.Context, userID string) error {
	return r.setPresence(ctx, userID, "online", onlineTTL)
}

// SetUserOffline records a user as offline
func (r *RedisClient) SetUserOffline(ctx context.Context, userID string) error {
	return r.setPresence(ctx, userID, "offline", offlineTTL)
}

func (r *RedisClient) setPresence(ctx context.Context, userID, status string, ttl time.Duration) error {
	data, err := json.Marshal(models.UserPresence{UserID: userID, Status: status})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, presenceKey(userID), data, ttl).Err()
}

// GetUserPresence returns a user's presence, offline when nothing is recorded
func (r *RedisClient) GetUserPresence(ctx context.Context, userID string) (*models.UserPresence, error) {
	data, err := r.client.Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return &models.UserPresence{UserID: userID, Status: "offline"}, nil
	}
	if err != nil {
		return nil, err
	}

	var presence models.UserPresence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, err
	}
	return &presence, nil
}

// Typing indicators

func (r *RedisClient) SetTyping(ctx context.Context, conversationID, userID string) error {
	return r.client.SAdd(ctx, typingKey(conversationID), userID).Err()
}

func (r *RedisClient) RemoveTyping(ctx context.Context, conversationID, userID string) error {
	return r.client.SRem(ctx, typingKey(conversationID), userID).Err()
}

// GetTypingUsers returns the users typing in a conversation
func (r *RedisClient) GetTypingUsers(ctx context.Context, conversationID string) ([]string, error) {
	return r.client.SMembers(ctx, typingKey(conversationID)).Result()
}

// Pub/Sub

// PublishChange publishes a store change on the changes channel
func (r *RedisClient) PublishChange(ctx context.Context, change store.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, ChangesChannel, data).Err()
}

// SubscribeToChanges subscribes to the changes channel
func (r *RedisClient) SubscribeToChanges(ctx context.Context) *redis.PubSub {
	return r.client.Subscribe(ctx, ChangesChannel)
}
