package geofence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"parkly/models"
	"parkly/utils"

	"github.com/go-redis/redis/v8"
)

// SessionStore persists ephemeral geofence sessions keyed by booking id.
type SessionStore interface {
	Get(ctx context.Context, bookingID string) (*models.GeofenceSession, error)
	Save(ctx context.Context, session *models.GeofenceSession) error
	Delete(ctx context.Context, bookingID string) error
	ListIDs(ctx context.Context) ([]string, error)
}

// RedisSessionStore keeps sessions as JSON blobs with a TTL, refreshed on
// every save.
type RedisSessionStore struct {
	Client *redis.Client
}

// NewRedisSessionStore wraps the given client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{Client: client}
}

func sessionKey(bookingID string) string {
	return utils.TrackerSessionPrefix + bookingID
}

func (s *RedisSessionStore) Get(ctx context.Context, bookingID string) (*models.GeofenceSession, error) {
	data, err := s.Client.Get(ctx, sessionKey(bookingID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load geofence session %s: %w", bookingID, err)
	}
	var session models.GeofenceSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to parse geofence session %s: %w", bookingID, err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *models.GeofenceSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal geofence session %s: %w", session.BookingID, err)
	}
	if err := s.Client.Set(ctx, sessionKey(session.BookingID), data, utils.TrackerSessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store geofence session %s: %w", session.BookingID, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, bookingID string) error {
	if err := s.Client.Del(ctx, sessionKey(bookingID)).Err(); err != nil {
		return fmt.Errorf("failed to delete geofence session %s: %w", bookingID, err)
	}
	return nil
}

// ListIDs scans the session keyspace and returns the booking ids with a live
// session.
func (s *RedisSessionStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.Client.Scan(ctx, 0, utils.TrackerSessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ids = append(ids, key[len(utils.TrackerSessionPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan geofence sessions: %w", err)
	}
	return ids, nil
}

// MemorySessionStore is the in-process store used by tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.GeofenceSession
}

// NewMemorySessionStore returns an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*models.GeofenceSession)}
}

func (s *MemorySessionStore) Get(ctx context.Context, bookingID string) (*models.GeofenceSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[bookingID]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *MemorySessionStore) Save(ctx context.Context, session *models.GeofenceSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.BookingID] = &copied
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, bookingID)
	return nil
}

func (s *MemorySessionStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}
