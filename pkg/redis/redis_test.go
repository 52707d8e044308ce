package redis

import (
	"context"
	"testing"

	"github.com/manoharb30/insight-lookinsight/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{
		Redis: config.RedisConfig{Enabled: false},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	ctx := context.Background()

	// Without Redis everything is admitted
	allowed, remaining, err := limiter.Allow(ctx, EDGARRateLimit)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != EDGARRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", EDGARRateLimit.Limit, remaining)
	}

	if err := limiter.Wait(ctx, OpenAIRateLimit); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	if err := cache.Set(ctx, "key", "value", TTLShort); err != nil {
		t.Errorf("Set() error = %v", err)
	}
	if err := cache.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestCache_GetOrSetDisabledStillComputes(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	var got string
	err := cache.GetOrSet(context.Background(), "cik:ACME", &got, TTLLong, func() (interface{}, error) {
		return "0001234567", nil
	})
	if err != nil {
		t.Fatalf("GetOrSet() error = %v", err)
	}
	if got != "0001234567" {
		t.Errorf("Expected computed value, got %q", got)
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "CIKKey",
			fn:       func() string { return CIKKey("ACME") },
			expected: "cik:ACME",
		},
		{
			name:     "FilingTextKey",
			fn:       func() string { return FilingTextKey("0001234567-24-000001") },
			expected: "filing:text:0001234567-24-000001",
		},
		{
			name:     "FilingIndexKey",
			fn:       func() string { return FilingIndexKey("0001234567", "8-K") },
			expected: "filing:index:0001234567:8-K",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
