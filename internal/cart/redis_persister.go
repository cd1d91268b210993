package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisPersisterConfig configures RedisPersister.
type RedisPersisterConfig struct {
	// KeyPrefix is the prefix for all cart keys.
	// Default: "storefront"
	KeyPrefix string

	// TTL is how long an untouched cart is kept.
	// Default: 7 days
	TTL time.Duration
}

// RedisPersister keeps carts as JSON strings under {prefix}:cart:{user_id}.
type RedisPersister struct {
	client *redis.Client
	config RedisPersisterConfig
}

// NewRedisPersister creates a persister on an already configured client.
func NewRedisPersister(client *redis.Client, config RedisPersisterConfig) *RedisPersister {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "storefront"
	}
	if config.TTL <= 0 {
		config.TTL = 7 * 24 * time.Hour
	}
	return &RedisPersister{client: client, config: config}
}

func (p *RedisPersister) key(userID string) string {
	return fmt.Sprintf("%s:cart:%s", p.config.KeyPrefix, userID)
}

// Load reads the saved lines of userID.
func (p *RedisPersister) Load(ctx context.Context, userID string) ([]Line, error) {
	data, err := p.client.Get(ctx, p.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart for user %s: %w", userID, err)
	}

	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart for user %s: %w", userID, err)
	}
	return lines, nil
}

// Save overwrites the saved lines of userID and refreshes the TTL.
func (p *RedisPersister) Save(ctx context.Context, userID string, lines []Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart for user %s: %w", userID, err)
	}
	if err := p.client.Set(ctx, p.key(userID), data, p.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to write cart for user %s: %w", userID, err)
	}
	return nil
}

// Delete removes the saved lines of userID.
func (p *RedisPersister) Delete(ctx context.Context, userID string) error {
	if err := p.client.Del(ctx, p.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart for user %s: %w", userID, err)
	}
	return nil
}
