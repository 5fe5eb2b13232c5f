package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"course-purchase/internal/model"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

func (r *RedisCache) Get(ctx context.Context, courseID string) (*model.Course, error) {
	data, err := r.client.Get(ctx, cacheKey(courseID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var course model.Course
	if err := json.Unmarshal(data, &course); err != nil {
		return nil, fmt.Errorf("unmarshal course failed: %w", err)
	}

	return &course, nil
}

// Set spreads expiries over a few minutes so a catalog reload doesn't expire every key at once.
func (r *RedisCache) Set(ctx context.Context, course *model.Course) error {
	data, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("marshal course failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, cacheKey(course.ID), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func cacheKey(courseID string) string {
	return fmt.Sprintf("course:%s", courseID)
}
