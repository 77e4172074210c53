package cache

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client, skipping when no local
// Redis is available. Integration tests use testcontainers-go instead.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	// Flush test DB before each test
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func testKey(page string) Key {
	return Key{
		Endpoint: "/items",
		QueryParams: url.Values{
			"page":     []string{page},
			"per_page": []string{"50"},
		},
	}
}

func testEntry(data string) *Entry {
	return &Entry{
		Data:       []byte(data),
		ETag:       `"test-etag"`,
		Expires:    time.Now().Add(5 * time.Minute),
		StatusCode: 200,
		CachedAt:   time.Now(),
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_SetGet(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := testKey("1")
	entry := testEntry(`{"items": [], "page": 1}`)

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Data) != string(entry.Data) {
		t.Errorf("Data = %q, want %q", got.Data, entry.Data)
	}
	if got.ETag != entry.ETag {
		t.Errorf("ETag = %q, want %q", got.ETag, entry.ETag)
	}
}

func TestManager_Get_Miss(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)

	_, err := manager.Get(context.Background(), testKey("99"))
	if err != ErrCacheMiss {
		t.Errorf("Get for unknown key = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Set_ExpiredEntryNotStored(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := testKey("1")
	entry := testEntry("stale")
	entry.Expires = time.Now().Add(-time.Minute)

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("expired entry should not be stored, Get = %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := testKey("1")
	if err := manager.Set(ctx, key, testEntry("data")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Get after Delete = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Invalidate(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	for _, page := range []string{"1", "2", "3"} {
		if err := manager.Set(ctx, testKey(page), testEntry("page "+page)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := manager.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	for _, page := range []string{"1", "2", "3"} {
		if _, err := manager.Get(ctx, testKey(page)); err != ErrCacheMiss {
			t.Errorf("Get page %s after Invalidate = %v, want ErrCacheMiss", page, err)
		}
	}
}

func TestManager_UpdateTTL(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := testKey("1")
	if err := manager.Set(ctx, key, testEntry("data")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	newExpires := time.Now().Add(30 * time.Minute)
	if err := manager.UpdateTTL(ctx, key, newExpires); err != nil {
		t.Fatalf("UpdateTTL failed: %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TTL() < 25*time.Minute {
		t.Errorf("TTL after update = %v, want ~30m", got.TTL())
	}
}
