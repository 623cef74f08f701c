package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("session not found")

// Session binds an opaque client-held identifier to an authenticated user.
type Session struct {
	ID        string
	UserID    int64
	Username  string
	CreatedAt time.Time
}

// Store keeps sessions server-side in Redis with a sliding inactivity window.
// The client only ever holds the opaque session ID.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Create stores a new session and returns its opaque identifier.
func (s *Store) Create(ctx context.Context, userID int64, username string) (string, error) {
	id := uuid.NewString()
	key := sessionKey(id)
	now := time.Now()

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"user_id":    userID,
		"username":   username,
		"created_at": now.Unix(),
	})
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return id, nil
}

// Get resolves a session by ID and refreshes its TTL, giving the sliding
// expiry window: a session dies after ttl of inactivity, not ttl after login.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	key := sessionKey(id)

	data, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	userID, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}

	var createdAt time.Time
	if unix, err := strconv.ParseInt(data["created_at"], 10, 64); err == nil {
		createdAt = time.Unix(unix, 0)
	}

	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to refresh session ttl: %w", err)
	}

	return &Session{
		ID:        id,
		UserID:    userID,
		Username:  data["username"],
		CreatedAt: createdAt,
	}, nil
}

// Destroy removes a session. Destroying an absent session is not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
