package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ShowKey caches a stored show served by the read API
func ShowKey(showID int) string {
	return "api:show:" + strconv.Itoa(showID)
}

// GetJSON decodes a cached JSON value into v. A nil cache is always a miss.
func GetJSON(ctx context.Context, c Cache, key string, v interface{}) error {
	if c == nil {
		return ErrCacheMiss
	}

	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode cached %s: %w", key, err)
	}

	return nil
}

// SetJSON stores v as JSON. A nil cache is a no-op.
func SetJSON(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s for cache: %w", key, err)
	}

	return c.Set(ctx, key, data, ttl)
}

// Invalidate drops key. A nil cache is a no-op.
func Invalidate(ctx context.Context, c Cache, key string) error {
	if c == nil {
		return nil
	}
	return c.Delete(ctx, key)
}
