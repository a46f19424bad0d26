// Package challengecache puts a Redis TTL cache in front of a ChallengeReader.
package challengecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/core/ports/secondary"
	"gitlab.com/codegrader.net/internal/domain"
	"gitlab.com/codegrader.net/internal/metrics"
)

const (
	challengeKeyPrefix = "codegrader:challenge:"
	testCasesKeyPrefix = "codegrader:testcases:"
	defaultTTL         = 5 * time.Minute
)

var _ secondary.ChallengeCache = (*ChallengeCache)(nil)

// ChallengeCache serves reads from Redis and falls back to the wrapped
// reader on a miss. Redis errors are logged and never fail a read.
type ChallengeCache struct {
	next        secondary.ChallengeReader
	redisClient *redis.Client
	ttl         time.Duration
	logger      primary.Logger
}

func New(next secondary.ChallengeReader, redisClient *redis.Client, ttl time.Duration, logger primary.Logger) *ChallengeCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ChallengeCache{
		next:        next,
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

func (c *ChallengeCache) GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error) {
	var challenge domain.Challenge
	if c.load(ctx, "challenge", challengeKeyPrefix+challengeID, &challenge) {
		return &challenge, nil
	}

	fresh, err := c.next.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, challengeKeyPrefix+challengeID, fresh)
	return fresh, nil
}

func (c *ChallengeCache) GetTestCases(ctx context.Context, challengeID string) ([]*domain.TestCase, error) {
	var cases []*domain.TestCase
	if c.load(ctx, "testcases", testCasesKeyPrefix+challengeID, &cases) {
		return cases, nil
	}

	fresh, err := c.next.GetTestCases(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		fresh = []*domain.TestCase{}
	}
	c.store(ctx, testCasesKeyPrefix+challengeID, fresh)
	return fresh, nil
}

// Refresh drops the cached entries of challengeID. An empty id drops every
// cached challenge.
func (c *ChallengeCache) Refresh(ctx context.Context, challengeID string) error {
	if challengeID != "" {
		if err := c.redisClient.Del(ctx, challengeKeyPrefix+challengeID, testCasesKeyPrefix+challengeID).Err(); err != nil {
			return fmt.Errorf("failed to evict challenge: %w", err)
		}
		return nil
	}

	for _, prefix := range []string{challengeKeyPrefix, testCasesKeyPrefix} {
		keys, err := c.scan(ctx, prefix+"*")
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			continue
		}
		if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to evict challenges: %w", err)
		}
	}
	return nil
}

func (c *ChallengeCache) scan(ctx context.Context, pattern string) ([]string, error) {
	var cursor uint64
	var found []string
	for {
		keys, next, err := c.redisClient.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", err)
		}
		found = append(found, keys...)
		cursor = next
		if cursor == 0 {
			return found, nil
		}
	}
}

func (c *ChallengeCache) load(ctx context.Context, kind, key string, dst interface{}) bool {
	data, err := c.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheRequests.WithLabelValues(kind, "miss").Inc()
			return false
		}
		metrics.CacheRequests.WithLabelValues(kind, "error").Inc()
		c.logger.Warn("Failed to read challenge cache", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		metrics.CacheRequests.WithLabelValues(kind, "error").Inc()
		c.logger.Warn("Discarding corrupt cache entry", "key", key, "error", err)
		return false
	}
	metrics.CacheRequests.WithLabelValues(kind, "hit").Inc()
	return true
}

func (c *ChallengeCache) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := c.redisClient.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write challenge cache", "key", key, "error", err)
	}
}
