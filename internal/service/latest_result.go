package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RedisLatestResultStore keeps each user's most recent analysis result for
// a single read by the results view.
type RedisLatestResultStore struct {
	redis *database.Redis
	ttl   time.Duration
}

func NewLatestResultStore(redis *database.Redis, ttl time.Duration) *RedisLatestResultStore {
	return &RedisLatestResultStore{redis: redis, ttl: ttl}
}

func latestResultKey(userID string) string {
	return "results:latest:" + userID
}

func (s *RedisLatestResultStore) Save(ctx context.Context, userID string, result *dto.AnalyzeResponse) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := s.redis.Client.Set(ctx, latestResultKey(userID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store latest result: %w", err)
	}
	return nil
}

// Take returns and clears the stored result. ErrNotFound means nothing is stored.
func (s *RedisLatestResultStore) Take(ctx context.Context, userID string) (*dto.AnalyzeResponse, error) {
	payload, err := s.redis.Client.GetDel(ctx, latestResultKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("no latest result for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read latest result: %w", err)
	}

	var result dto.AnalyzeResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode latest result: %w", err)
	}
	return &result, nil
}
