package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fieldops/workorder-api/internal/core"
)

const (
	// recentSearchCap is how many terms are kept per user.
	recentSearchCap = 10
	// recentSearchTTL evicts idle users' search history.
	recentSearchTTL = 30 * 24 * time.Hour
)

// RecentSearchRepo implements core.RecentSearchRepository with a per-user
// capped Redis list, newest first.
type RecentSearchRepo struct {
	client redis.UniversalClient
}

var _ core.RecentSearchRepository = (*RecentSearchRepo)(nil)

// NewRecentSearchRepo creates a new RecentSearchRepo with the given Redis client.
func NewRecentSearchRepo(client redis.UniversalClient) *RecentSearchRepo {
	return &RecentSearchRepo{client: client}
}

func recentSearchKey(userID string) string {
	return "workorder:recent_searches:" + userID
}

// PushSearch records a search term for a user, deduplicating repeats and
// trimming the list to the cap.
func (r *RecentSearchRepo) PushSearch(ctx context.Context, userID, term string) error {
	if userID == "" {
		return errors.New("user id cannot be empty")
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	key := recentSearchKey(userID)
	pipe := r.client.TxPipeline()
	pipe.LRem(ctx, key, 0, term)
	pipe.LPush(ctx, key, term)
	pipe.LTrim(ctx, key, 0, recentSearchCap-1)
	pipe.Expire(ctx, key, recentSearchTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push search: %w", err)
	}
	return nil
}

// RecentSearches returns a user's recent search terms, newest first.
func (r *RecentSearchRepo) RecentSearches(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, errors.New("user id cannot be empty")
	}

	terms, err := r.client.LRange(ctx, recentSearchKey(userID), 0, recentSearchCap-1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis recent searches: %w", err)
	}
	return terms, nil
}

// RedisConfig holds configuration for Redis connection.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     "localhost:6379",
		Password: "",
		DB:       0,
	}
}

// NewRedisClient creates a new Redis client with the given configuration.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
