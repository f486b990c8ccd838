package queue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/queue"
)

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := queue.New(nil)
	assert.ErrorIs(t, err, queue.ErrStorageNil)
}

func TestQueue_Enqueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock()
	store := queue.NewMemoryStorage()
	rec := &countingRecorder{}

	q, err := queue.New(store, queue.WithClock(clk.Now), queue.WithRecorder(rec), queue.WithLogger(logger.Discard()))
	require.NoError(t, err)

	p := notifications.Payload{NotificationID: "n1", Title: "Deploy finished"}
	require.NoError(t, q.Enqueue(ctx, "u1", notifications.ChannelPush, p))

	entries, err := store.List(ctx, queue.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, notifications.ChannelPush, e.Channel)
	assert.Equal(t, p, e.Payload)
	assert.Equal(t, queue.StatusPending, e.Status)
	assert.Zero(t, e.RetryCount)
	assert.Equal(t, clk.Now(), e.NextRetry)
	assert.Equal(t, 1, rec.count(queue.StatusPending))
	assert.Zero(t, q.Fallback().Len())
}

func TestQueue_EnqueueValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	q, err := queue.New(queue.NewMemoryStorage(), queue.WithLogger(logger.Discard()))
	require.NoError(t, err)

	assert.ErrorIs(t, q.Enqueue(ctx, "", notifications.ChannelEmail, notifications.Payload{}), queue.ErrInvalidEntry)
	assert.ErrorIs(t, q.Enqueue(ctx, "u1", notifications.Channel("fax"), notifications.Payload{}), queue.ErrInvalidEntry)
}

func TestQueue_FallbackAndDrain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFlakyStore()
	rec := &countingRecorder{}

	q, err := queue.New(store, queue.WithRecorder(rec), queue.WithLogger(logger.Discard()))
	require.NoError(t, err)

	store.down.Store(true)
	require.NoError(t, q.Enqueue(ctx, "u1", notifications.ChannelEmail, notifications.Payload{Title: "a"}))
	require.NoError(t, q.Enqueue(ctx, "u2", notifications.ChannelEmail, notifications.Payload{Title: "b"}))

	assert.Zero(t, store.Len())
	assert.Equal(t, 2, q.Fallback().Len())
	assert.Equal(t, 2, rec.fallbackDepth())

	n, err := q.DrainFallback(ctx)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Zero(t, n)
	assert.Equal(t, 2, q.Fallback().Len())

	store.down.Store(false)
	n, err = q.DrainFallback(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, q.Fallback().Len())
	assert.Equal(t, 2, store.Len())
	assert.Zero(t, rec.fallbackDepth())
}

func TestQueue_FallbackIsBounded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFlakyStore()
	store.down.Store(true)

	q, err := queue.New(store, queue.WithFallbackCapacity(2), queue.WithLogger(logger.Discard()))
	require.NoError(t, err)

	for _, u := range []string{"u1", "u2", "u3"} {
		require.NoError(t, q.Enqueue(ctx, u, notifications.ChannelInApp, notifications.Payload{}))
	}

	entries, err := q.Fallback().List(ctx, queue.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "u2", entries[0].UserID, "oldest pending entry evicted")
	assert.Equal(t, "u3", entries[1].UserID)
}
