package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riftluck/stats-api/internal/models"
)

const (
	latestRunKey = "riftluck:run:latest"
	runKeyPrefix = "riftluck:run:"
	luckKey      = "riftluck:luck"
)

// RedisClient is the subset of the go-redis client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore is a RunStore backed by Redis. Run bodies are stored as JSON;
// luck summaries live in one hash keyed by player id.
type RedisStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewRedisStore(client RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) SaveRun(ctx context.Context, run *models.RunResult) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	if err := s.client.Set(ctx, runKeyPrefix+run.RunID, body, s.ttl).Err(); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := s.client.Set(ctx, latestRunKey, body, s.ttl).Err(); err != nil {
		return fmt.Errorf("save latest run: %w", err)
	}

	// Partial runs keep the previous luck summaries.
	if len(run.Scored) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, luckKey).Err(); err != nil {
		return fmt.Errorf("clear luck: %w", err)
	}
	if len(run.Luck) == 0 {
		return nil
	}
	fields := make([]interface{}, 0, 2*len(run.Luck))
	for _, l := range run.Luck {
		b, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("encode luck: %w", err)
		}
		fields = append(fields, l.PlayerID, b)
	}
	if err := s.client.HSet(ctx, luckKey, fields...).Err(); err != nil {
		return fmt.Errorf("save luck: %w", err)
	}
	return nil
}

func (s *RedisStore) LatestRun(ctx context.Context) (*models.RunResult, error) {
	return s.getRun(ctx, latestRunKey)
}

func (s *RedisStore) Run(ctx context.Context, runID string) (*models.RunResult, error) {
	return s.getRun(ctx, runKeyPrefix+runID)
}

func (s *RedisStore) getRun(ctx context.Context, key string) (*models.RunResult, error) {
	body, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var run models.RunResult
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &run, nil
}

func (s *RedisStore) PlayerLuck(ctx context.Context, playerID string) (*models.LuckSummary, error) {
	body, err := s.client.HGet(ctx, luckKey, playerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get luck: %w", err)
	}
	var l models.LuckSummary
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("decode luck: %w", err)
	}
	return &l, nil
}
