package notification

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const tokenKeyPrefix = "fcm_token:"

// RedisTokenSource stores push tokens in Redis, registered by the device
// endpoint on app start.
type RedisTokenSource struct {
	Client *redis.Client
}

func NewRedisTokenSource(client *redis.Client) *RedisTokenSource {
	return &RedisTokenSource{Client: client}
}

// PushToken returns the recipient's registered token, or empty when none.
func (s *RedisTokenSource) PushToken(ctx context.Context, recipientID string) (string, error) {
	token, err := s.Client.Get(ctx, tokenKeyPrefix+recipientID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load push token: %w", err)
	}
	return token, nil
}

// RegisterToken stores or replaces the recipient's token. Tokens do not
// expire; a new registration overwrites the old one.
func (s *RedisTokenSource) RegisterToken(ctx context.Context, recipientID, token string) error {
	if err := s.Client.Set(ctx, tokenKeyPrefix+recipientID, token, 0).Err(); err != nil {
		return fmt.Errorf("failed to store push token: %w", err)
	}
	return nil
}
