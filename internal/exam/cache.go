package exam

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// Cache provides Redis-backed question list caching to offload the database.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ QuestionCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(examID uuid.UUID) string {
	return "exam:questions:" + examID.String()
}

// Get returns (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, examID uuid.UUID) ([]Question, error) {
	data, err := c.client.Get(ctx, cacheKey(examID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *Cache) Set(ctx context.Context, examID uuid.UUID, questions []Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(examID), data, c.ttl).Err()
}
