package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	lock := NewRedisLock(client, BookingKey("22970937"), 5*time.Second)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second lock on the same key cannot acquire while held.
	other := NewRedisLock(client, BookingKey("22970937"), 5*time.Second)
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx))

	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_ReleaseDoesNotStealOtherOwner(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, WorkflowKey("ship-1"), 5*time.Second)
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	b := NewRedisLock(client, WorkflowKey("ship-1"), 5*time.Second)
	// b never acquired; releasing must be a no-op, not steal a's lock.
	require.NoError(t, b.Release(ctx))

	c := NewRedisLock(client, WorkflowKey("ship-1"), 5*time.Second)
	ok, err = c.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a's lock should still be held")
}

func TestBookingKey_WorkflowKey(t *testing.T) {
	assert.Equal(t, "booking:22970937", BookingKey("22970937"))
	assert.Equal(t, "workflow:ship-1", WorkflowKey("ship-1"))
}
