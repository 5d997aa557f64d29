package cache_test

import (
	"os"
	"testing"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/cache"

	"go.uber.org/zap"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[*domain.Principal](5 * time.Minute)
	defer c.Close()

	c.Set("principal:u1", &domain.Principal{ID: "u1"})
	c.Delete("principal:u1")

	if _, ok := c.Get("principal:u1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestRedis_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	client, err := cache.NewRedisClient(url)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	c := cache.NewRedis[*domain.Principal](client, "test:", time.Minute, zap.NewNop())
	c.Set("u1", &domain.Principal{ID: "u1", Role: domain.RoleManager})
	got, ok := c.Get("u1")
	if !ok || got.Role != domain.RoleManager {
		t.Fatalf("expected cached principal, got %+v (%v)", got, ok)
	}
	c.Delete("u1")
	if _, ok := c.Get("u1"); ok {
		t.Fatal("expected miss after delete")
	}
}
