// Package cache keeps ranked candidate selections in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"matchmaking-engine/internal/services/matcher"
)

// Errors returned by the cache.
var (
	ErrCacheConnection    = errors.New("cache: connection failed")
	ErrCacheSerialization = errors.New("cache: serialization failed")
)

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration

	DialTimeout time.Duration
}

// DefaultTTL applies when Config.TTL is zero.
const DefaultTTL = 10 * time.Minute

// GenerationKey holds the counter embedded in every selection key.
const GenerationKey = "candidates_generation"

// CandidateCache implements matcher.ResultCache.
type CandidateCache struct {
	client redis.Cmdable
	closer func() error
	ttl    time.Duration
}

var _ matcher.ResultCache = (*CandidateCache)(nil)

// New connects to Redis and checks the connection.
func New(cfg Config) (*CandidateCache, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	c := NewWithClient(client, cfg.TTL)
	c.closer = client.Close
	return c, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.Cmdable, ttl time.Duration) *CandidateCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CandidateCache{client: client, ttl: ttl}
}

// Get returns a cached selection. A miss is (nil, false, nil).
func (c *CandidateCache) Get(ctx context.Context, key string) (*matcher.Selection, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var sel matcher.Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return &sel, true, nil
}

// Set stores a selection under key with the configured TTL.
func (c *CandidateCache) Set(ctx context.Context, key string, sel *matcher.Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate deletes every cached selection requested by memberID.
func (c *CandidateCache) Invalidate(ctx context.Context, memberID int64) error {
	pattern := "candidates:" + strconv.FormatInt(memberID, 10) + ":*"

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}

// Generation returns the current key generation, 0 before the first bump.
func (c *CandidateCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// BumpGeneration retires every cached selection. Old entries expire by TTL.
func (c *CandidateCache) BumpGeneration(ctx context.Context) error {
	return c.client.Incr(ctx, GenerationKey).Err()
}

// Close closes the connection opened by New.
func (c *CandidateCache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
