package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// loadedField marks a cached hash so that a company without overrides is
// distinguishable from a cache miss.
const loadedField = "__loaded"

// SettingsCache keeps per-company account settings in Redis hashes.
type SettingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSettingsCache instantiates the cache helper.
func NewSettingsCache(client *redis.Client, ttl time.Duration) *SettingsCache {
	return &SettingsCache{client: client, ttl: ttl}
}

func settingsKey(companyID int64) string {
	return fmt.Sprintf("gl:company:%d:account-settings", companyID)
}

// Load returns the cached settings and whether they were present.
func (c *SettingsCache) Load(ctx context.Context, companyID int64) (map[string]string, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	values, err := c.client.HGetAll(ctx, settingsKey(companyID)).Result()
	if err != nil {
		return nil, false, err
	}
	if _, ok := values[loadedField]; !ok {
		return nil, false, nil
	}
	delete(values, loadedField)
	return values, true, nil
}

// Store writes the settings with the configured TTL.
func (c *SettingsCache) Store(ctx context.Context, companyID int64, settings map[string]string) error {
	if c == nil || c.client == nil {
		return nil
	}
	key := settingsKey(companyID)
	fields := make(map[string]any, len(settings)+1)
	for k, v := range settings {
		fields[k] = v
	}
	fields[loadedField] = "1"
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	return err
}

// Invalidate removes cached settings for a company.
func (c *SettingsCache) Invalidate(ctx context.Context, companyID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, settingsKey(companyID)).Err()
}
