package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/queue"
)

// QueueFactory returns an empty queue store.
type QueueFactory func(t *testing.T) queue.Storage

func newEntry(userID string, ch notifications.Channel, due time.Time) queue.Entry {
	e := queue.NewEntry(userID, ch, notifications.Payload{
		NotificationID: "n-" + userID,
		Type:           notifications.TypeMessage,
		Title:          "New message",
		Body:           "hello",
		Data:           map[string]any{"url": "/threads/1"},
		Priority:       notifications.PriorityHigh,
		Sound:          true,
	}, due)
	e.CreatedAt = due
	return e
}

// QueueStorage runs the queue.Storage behaviour suite.
func QueueStorage(t *testing.T, factory QueueFactory) {
	t.Run("insert and get", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		e := newEntry("u1", notifications.ChannelEmail, at(0))

		require.NoError(t, s.Insert(ctx, e))
		assert.ErrorIs(t, s.Insert(ctx, e), queue.ErrDuplicateEntry)

		got, err := s.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.ID, got.ID)
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, notifications.ChannelEmail, got.Channel)
		assert.Equal(t, queue.StatusPending, got.Status)
		assert.Equal(t, e.Payload.Title, got.Payload.Title)
		assert.Equal(t, e.Payload.NotificationID, got.Payload.NotificationID)
		assert.Equal(t, "/threads/1", got.Payload.URL())
		assert.True(t, got.Payload.Sound)
		sameTime(t, e.NextRetry, got.NextRetry)
		assert.Nil(t, got.LastAttempt)
		assert.Nil(t, got.FinishedAt)

		_, err = s.Get(ctx, "missing")
		assert.ErrorIs(t, err, queue.ErrEntryNotFound)
	})

	t.Run("claim due entries", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)

		first := newEntry("u1", notifications.ChannelEmail, at(-2*time.Second))
		second := newEntry("u2", notifications.ChannelPush, at(-time.Second))
		future := newEntry("u3", notifications.ChannelEmail, at(time.Minute))
		for _, e := range []queue.Entry{future, second, first} {
			require.NoError(t, s.Insert(ctx, e))
		}

		claimed, err := s.ClaimDue(ctx, at(0), 1)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, first.ID, claimed[0].ID)
		assert.Equal(t, queue.StatusSending, claimed[0].Status)
		require.NotNil(t, claimed[0].LastAttempt)
		sameTime(t, at(0), *claimed[0].LastAttempt)

		claimed, err = s.ClaimDue(ctx, at(0), 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, second.ID, claimed[0].ID)

		claimed, err = s.ClaimDue(ctx, at(0), 10)
		require.NoError(t, err)
		assert.Empty(t, claimed)
	})

	t.Run("concurrent claims never overlap", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		for i := range 20 {
			require.NoError(t, s.Insert(ctx, newEntry(fmt.Sprintf("u%d", i), notifications.ChannelInApp, at(0))))
		}

		var (
			mu   sync.Mutex
			seen = make(map[string]int)
			wg   sync.WaitGroup
		)
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				claimed, err := s.ClaimDue(ctx, at(time.Second), 10)
				assert.NoError(t, err)
				mu.Lock()
				defer mu.Unlock()
				for _, e := range claimed {
					seen[e.ID]++
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, 20)
		for id, n := range seen {
			assert.Equal(t, 1, n, "entry %s claimed %d times", id, n)
		}
	})

	t.Run("transitions", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		e := newEntry("u1", notifications.ChannelEmail, at(0))
		require.NoError(t, s.Insert(ctx, e))

		assert.ErrorIs(t, s.MarkSent(ctx, e.ID, at(0)), queue.ErrInvalidTransition)
		assert.ErrorIs(t, s.MarkSent(ctx, "missing", at(0)), queue.ErrEntryNotFound)

		_, err := s.ClaimDue(ctx, at(0), 1)
		require.NoError(t, err)
		next := at(queue.Backoff(1))
		require.NoError(t, s.MarkRetry(ctx, e.ID, 1, next, "smtp timeout"))

		got, err := s.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusPending, got.Status)
		assert.Equal(t, 1, got.RetryCount)
		sameTime(t, next, got.NextRetry)
		require.NotNil(t, got.Error)
		assert.Equal(t, "smtp timeout", *got.Error)

		claimed, err := s.ClaimDue(ctx, at(time.Second), 1)
		require.NoError(t, err)
		assert.Empty(t, claimed, "not due before next retry")

		_, err = s.ClaimDue(ctx, next, 1)
		require.NoError(t, err)
		require.NoError(t, s.MarkFailed(ctx, e.ID, 2, "still down", next))

		got, err = s.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusFailed, got.Status)
		assert.Equal(t, 2, got.RetryCount)
		require.NotNil(t, got.FinishedAt)
		sameTime(t, next, *got.FinishedAt)

		assert.ErrorIs(t, s.MarkSent(ctx, e.ID, next), queue.ErrInvalidTransition)
		assert.ErrorIs(t, s.MarkRetry(ctx, e.ID, 3, next, "x"), queue.ErrInvalidTransition)
	})

	t.Run("sent entries are terminal", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		e := newEntry("u1", notifications.ChannelPush, at(0))
		require.NoError(t, s.Insert(ctx, e))

		_, err := s.ClaimDue(ctx, at(0), 1)
		require.NoError(t, err)
		require.NoError(t, s.MarkSent(ctx, e.ID, at(time.Second)))

		assert.ErrorIs(t, s.MarkFailed(ctx, e.ID, 1, "x", at(time.Second)), queue.ErrInvalidTransition)

		got, err := s.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusSent, got.Status)
		require.NotNil(t, got.FinishedAt)
	})

	t.Run("requeue stale", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		stale := newEntry("u1", notifications.ChannelEmail, at(-time.Hour))
		require.NoError(t, s.Insert(ctx, stale))
		_, err := s.ClaimDue(ctx, at(-time.Hour), 1)
		require.NoError(t, err)

		fresh := newEntry("u2", notifications.ChannelEmail, at(0))
		require.NoError(t, s.Insert(ctx, fresh))
		_, err = s.ClaimDue(ctx, at(0), 1)
		require.NoError(t, err)

		n, err := s.RequeueStale(ctx, at(-time.Minute), at(0))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := s.Get(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusPending, got.Status)
		sameTime(t, at(0), got.NextRetry)

		got, err = s.Get(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusSending, got.Status)
	})

	t.Run("list count and delete", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)

		a := newEntry("u1", notifications.ChannelEmail, at(0))
		b := newEntry("u1", notifications.ChannelPush, at(time.Second))
		c := newEntry("u2", notifications.ChannelEmail, at(2*time.Second))
		for _, e := range []queue.Entry{a, b, c} {
			require.NoError(t, s.Insert(ctx, e))
		}
		_, err := s.ClaimDue(ctx, at(0), 1)
		require.NoError(t, err)

		list, err := s.List(ctx, queue.ListOptions{UserID: "u1"})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, a.ID, list[0].ID)
		assert.Equal(t, b.ID, list[1].ID)

		list, err = s.List(ctx, queue.ListOptions{Channel: notifications.ChannelEmail, Status: queue.StatusPending})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, c.ID, list[0].ID)

		list, err = s.List(ctx, queue.ListOptions{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, b.ID, list[0].ID)

		counts, err := s.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, counts[queue.StatusPending])
		assert.Equal(t, 1, counts[queue.StatusSending])
		assert.Equal(t, 0, counts[queue.StatusSent])

		require.NoError(t, s.Delete(ctx, a.ID))
		assert.ErrorIs(t, s.Delete(ctx, a.ID), queue.ErrEntryNotFound)
		_, err = s.Get(ctx, a.ID)
		assert.ErrorIs(t, err, queue.ErrEntryNotFound)
	})
}
