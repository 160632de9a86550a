package proctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultStateTTL = 24 * time.Hour

// StateStore keeps hot session state in Redis. The audit trail in Postgres is
// the fallback when a key has expired.
type StateStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStateStore creates a Redis-backed session state store.
func NewStateStore(redis *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &StateStore{redis: redis, ttl: ttl}
}

func stateKey(examID, studentID uuid.UUID) string {
	return fmt.Sprintf("proctor:session:%s:%s", examID, studentID)
}

// Get returns (nil, nil) when no state is cached.
func (s *StateStore) Get(ctx context.Context, examID, studentID uuid.UUID) (*Session, error) {
	data, err := s.redis.Get(ctx, stateKey(examID, studentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session state: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &sess, nil
}

// Put stores sess, refreshing its TTL.
func (s *StateStore) Put(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	return s.redis.Set(ctx, stateKey(sess.ExamID, sess.StudentID), data, s.ttl).Err()
}
