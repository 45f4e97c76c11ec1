package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveThenLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := &Job{Status: StatusPending, Tenant: "acme"}
	require.NoError(t, store.Save(ctx, "t1", job, 0))

	loaded, ok, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusPending, loaded.Status)
	assert.Equal(t, "acme", loaded.Tenant)
}

func TestMemoryStore_LoadMissingReturnsNotOK(t *testing.T) {
	store := NewMemoryStore()
	_, ok, err := store.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_TTLExpiryLazy(t *testing.T) {
	store := NewMemoryStore()
	fake := time.Now()
	store.now = func() time.Time { return fake }

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "t1", &Job{Status: StatusSucceeded}, time.Second))

	_, ok, _ := store.Load(ctx, "t1")
	assert.True(t, ok)

	fake = fake.Add(2 * time.Second)
	_, ok2, _ := store.Load(ctx, "t1")
	assert.False(t, ok2)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "t1", &Job{Status: StatusPending}, 0))
	require.NoError(t, store.Delete(ctx, "t1"))

	_, ok, _ := store.Load(ctx, "t1")
	assert.False(t, ok)
}

func TestNew_SelectsMemoryWhenNoAddr(t *testing.T) {
	store := New("", "", 0)
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)
}

func TestNew_SelectsRedisWhenAddrConfigured(t *testing.T) {
	store := New("localhost:6379", "", 0)
	_, ok := store.(*RedisStore)
	assert.True(t, ok)
}

func TestJobKey_Format(t *testing.T) {
	assert.Equal(t, "export:job:abc123", jobKey("abc123"))
}
