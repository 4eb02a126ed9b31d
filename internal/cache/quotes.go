package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// QuoteCache keeps the latest intraday bar per symbol in Redis so the live
// worker can read prices without hitting the database on every poll.
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQuoteCache connects to Redis and returns a cache with the given bar TTL.
func NewQuoteCache(addr, password string, db int, ttl time.Duration) (*QuoteCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &QuoteCache{client: client, ttl: ttl}, nil
}

// SetLatestBar stores the latest bar for a symbol.
func (q *QuoteCache) SetLatestBar(ctx context.Context, bar *models.RealTimeBar) error {
	data, err := json.Marshal(bar)
	if err != nil {
		return fmt.Errorf("failed to marshal bar: %w", err)
	}
	if err := q.client.Set(ctx, barKey(bar.SymbolID), data, q.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache bar: %w", err)
	}
	return nil
}

// GetLatestBar retrieves the latest bar for a symbol. The second return is
// false on a cache miss.
func (q *QuoteCache) GetLatestBar(ctx context.Context, symbolID int) (*models.RealTimeBar, bool, error) {
	data, err := q.client.Get(ctx, barKey(symbolID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached bar: %w", err)
	}

	var bar models.RealTimeBar
	if err := json.Unmarshal(data, &bar); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached bar: %w", err)
	}
	return &bar, true, nil
}

// Close closes the Redis client.
func (q *QuoteCache) Close() error {
	return q.client.Close()
}

func barKey(symbolID int) string {
	return fmt.Sprintf("bar:%d", symbolID)
}
