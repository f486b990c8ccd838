package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/queue"
)

func entryAt(userID string, at time.Time) queue.Entry {
	return queue.NewEntry(userID, notifications.ChannelEmail, notifications.Payload{Title: "hello"}, at)
}

func TestMemoryStorage_Insert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := queue.NewMemoryStorage()
	now := time.Now()

	e := entryAt("u1", now)
	require.NoError(t, s.Insert(ctx, e))
	assert.ErrorIs(t, s.Insert(ctx, e), queue.ErrDuplicateEntry)

	assert.ErrorIs(t, s.Insert(ctx, queue.Entry{}), queue.ErrInvalidEntry)

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.UserID, got.UserID)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, queue.ErrEntryNotFound)
}

func TestMemoryStorage_ClaimDue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := queue.NewMemoryStorage()
	now := time.Now()

	later := entryAt("u1", now.Add(time.Minute))
	first := entryAt("u2", now.Add(-2*time.Second))
	second := entryAt("u3", now.Add(-time.Second))
	for _, e := range []queue.Entry{later, second, first} {
		require.NoError(t, s.Insert(ctx, e))
	}

	claimed, err := s.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, first.ID, claimed[0].ID, "oldest next_retry first")
	assert.Equal(t, second.ID, claimed[1].ID)
	for _, e := range claimed {
		assert.Equal(t, queue.StatusSending, e.Status)
		require.NotNil(t, e.LastAttempt)
		assert.Equal(t, now, *e.LastAttempt)
	}

	again, err := s.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, again, "claimed entries are not claimed twice")
}

func TestMemoryStorage_ClaimDueLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := queue.NewMemoryStorage()
	now := time.Now()

	for range 5 {
		require.NoError(t, s.Insert(ctx, entryAt("u1", now)))
	}

	claimed, err := s.ClaimDue(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, claimed, 3)
}

func TestMemoryStorage_ConcurrentClaims(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := queue.NewMemoryStorage()
	now := time.Now()

	for range 50 {
		require.NoError(t, s.Insert(ctx, entryAt("u1", now)))
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.ClaimDue(ctx, now, 10)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			for _, e := range claimed {
				seen[e.ID]++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
	for id, n := range seen {
		assert.Equal(t, 1, n, "entry %s claimed more than once", id)
	}
}

func TestMemoryStorage_Transitions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now()

	t.Run("sent is terminal", func(t *testing.T) {
		t.Parallel()
		s := queue.NewMemoryStorage()
		e := entryAt("u1", now)
		require.NoError(t, s.Insert(ctx, e))

		assert.ErrorIs(t, s.MarkSent(ctx, e.ID, now), queue.ErrInvalidTransition, "pending cannot jump to sent")

		_, err := s.ClaimDue(ctx, now, 1)
		require.NoError(t, err)
		require.NoError(t, s.MarkSent(ctx, e.ID, now))

		got, err := s.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusSent, got.Status)
		require.NotNil(t, got.FinishedAt)

		assert.ErrorIs(t, s.MarkRetry(ctx, e.ID, 1, now, "x"), queue.ErrInvalidTransition)
		assert.ErrorIs(t, s.MarkFailed(ctx, e.ID, 1, "x", now), queue.ErrInvalidTransition)
	})

	t.Run("retry then fail", func(t *testing.T) {
		t.Parallel()
		s := queue.NewMemoryStorage()
		e := entryAt("u1", now)
		require.NoError(t, s.Insert(ctx, e))

		_, err := s.ClaimDue(ctx, now, 1)
		require.NoError(t, err)
		next := now.Add(queue.Backoff(1))
		require.NoError(t, s.MarkRetry(ctx, e.ID, 1, next, "timeout"))

		got, err := s.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusPending, got.Status)
		assert.Equal(t, 1, got.RetryCount)
		assert.Equal(t, next, got.NextRetry)
		require.NotNil(t, got.Error)
		assert.Equal(t, "timeout", *got.Error)

		claimed, err := s.ClaimDue(ctx, now, 1)
		require.NoError(t, err)
		assert.Empty(t, claimed, "not due before next_retry")

		_, err = s.ClaimDue(ctx, next, 1)
		require.NoError(t, err)
		require.NoError(t, s.MarkFailed(ctx, e.ID, 2, "still down", next))

		got, err = s.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusFailed, got.Status)
		assert.Equal(t, 2, got.RetryCount)
	})

	t.Run("unknown entry", func(t *testing.T) {
		t.Parallel()
		s := queue.NewMemoryStorage()
		assert.ErrorIs(t, s.MarkSent(ctx, "missing", now), queue.ErrEntryNotFound)
	})
}

func TestMemoryStorage_RequeueStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := queue.NewMemoryStorage()
	now := time.Now()

	stale := entryAt("u1", now.Add(-time.Hour))
	fresh := entryAt("u2", now)
	require.NoError(t, s.Insert(ctx, stale))
	_, err := s.ClaimDue(ctx, now.Add(-time.Hour), 1)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, fresh))
	_, err = s.ClaimDue(ctx, now, 1)
	require.NoError(t, err)

	n, err := s.RequeueStale(ctx, now.Add(-time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, got.Status)
	assert.Equal(t, now, got.NextRetry)

	got, err = s.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusSending, got.Status)
}

func TestMemoryStorage_Capacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now()

	var evicted []queue.Entry
	s := queue.NewMemoryStorage(
		queue.WithCapacity(2),
		queue.WithEvictHook(func(e queue.Entry) { evicted = append(evicted, e) }),
	)

	a, b, c := entryAt("a", now), entryAt("b", now), entryAt("c", now)
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, b))

	// a becomes terminal and is the preferred victim.
	claimed, err := s.ClaimDue(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, s.MarkSent(ctx, claimed[0].ID, now))
	terminalID := claimed[0].ID

	require.NoError(t, s.Insert(ctx, c))
	require.Len(t, evicted, 1)
	assert.Equal(t, terminalID, evicted[0].ID)
	assert.Equal(t, 2, s.Len())

	// Both remaining are pending, the oldest goes next.
	d := entryAt("d", now)
	require.NoError(t, s.Insert(ctx, d))
	require.Len(t, evicted, 2)
	assert.Equal(t, queue.StatusPending, evicted[1].Status)
	assert.Equal(t, 2, s.Len())
}

func TestMemoryStorage_CapacityNeverEvictsSending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now()
	s := queue.NewMemoryStorage(queue.WithCapacity(1))

	require.NoError(t, s.Insert(ctx, entryAt("a", now)))
	_, err := s.ClaimDue(ctx, now, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Insert(ctx, entryAt("b", now)), queue.ErrQueueFull)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStorage_ListAndCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := queue.NewMemoryStorage()
	now := time.Now()

	for _, u := range []string{"u1", "u1", "u2"} {
		require.NoError(t, s.Insert(ctx, entryAt(u, now)))
	}
	push := queue.NewEntry("u1", notifications.ChannelPush, notifications.Payload{}, now)
	require.NoError(t, s.Insert(ctx, push))

	list, err := s.List(ctx, queue.ListOptions{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = s.List(ctx, queue.ListOptions{Channel: notifications.ChannelPush})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, push.ID, list[0].ID)

	list, err = s.List(ctx, queue.ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, counts[queue.StatusPending])
	assert.Equal(t, 0, counts[queue.StatusFailed])

	require.NoError(t, s.Delete(ctx, push.ID))
	assert.ErrorIs(t, s.Delete(ctx, push.ID), queue.ErrEntryNotFound)
	assert.Equal(t, 3, s.Len())
}

func TestMemoryStorage_PurgeFinished(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := queue.NewMemoryStorage()
	now := time.Now()

	old := entryAt("u1", now.Add(-48*time.Hour))
	require.NoError(t, s.Insert(ctx, old))
	_, err := s.ClaimDue(ctx, now.Add(-48*time.Hour), 1)
	require.NoError(t, err)
	require.NoError(t, s.MarkSent(ctx, old.ID, now.Add(-48*time.Hour)))

	pending := entryAt("u2", now.Add(time.Hour))
	require.NoError(t, s.Insert(ctx, pending))

	n, err := s.PurgeFinished(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Get(ctx, old.ID)
	assert.ErrorIs(t, err, queue.ErrEntryNotFound)
	_, err = s.Get(ctx, pending.ID)
	assert.NoError(t, err)
}
