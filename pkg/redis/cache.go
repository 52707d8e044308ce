package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache stores JSON-encoded values under a namespaced prefix. Every
// operation degrades to a no-op miss when Redis is disabled.
type Cache struct {
	client *Client
	prefix string
}

func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get unmarshals the cached value into dest. A missing key reports
// (false, nil); only a decode failure is an error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes key from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// GetOrSet returns the cached value, or computes it with fn and caches
// the result. A failed Set is ignored; fn's value still lands in dest.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	found, err := c.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	value, err := fn()
	if err != nil {
		return err
	}

	_ = c.Set(ctx, key, value, ttl)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// TTLs by volatility of what is cached.
const (
	TTLShort  = 1 * time.Minute  // in-flight job state
	TTLMedium = 10 * time.Minute // filing index pages
	TTLLong   = 1 * time.Hour    // ticker to CIK mapping
	TTLDaily  = 24 * time.Hour   // filing documents (immutable once published)
)

// Cache keys shared between the EDGAR source and anything else that
// reads the same entries.
func CIKKey(ticker string) string {
	return fmt.Sprintf("cik:%s", ticker)
}

func FilingTextKey(accession string) string {
	return fmt.Sprintf("filing:text:%s", accession)
}

func FilingIndexKey(cik string, filingType string) string {
	return fmt.Sprintf("filing:index:%s:%s", cik, filingType)
}
