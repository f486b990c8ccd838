package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/notifications"
)

// NotificationFactory returns an empty notification store.
type NotificationFactory func(t *testing.T) notifications.Storage

// PreferenceFactory returns an empty preference store.
type PreferenceFactory func(t *testing.T) notifications.PreferenceStore

func newNotification(userID string, typ notifications.Type, created time.Time) notifications.Notification {
	return notifications.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      typ,
		Title:     string(typ) + " title",
		Body:      "body",
		Data:      map[string]any{"thread_id": "t1"},
		Priority:  notifications.PriorityNormal,
		CreatedAt: created,
	}
}

func ids(list []notifications.Notification) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.ID
	}
	return out
}

// NotificationStorage runs the notifications.Storage behaviour suite.
func NotificationStorage(t *testing.T, factory NotificationFactory) {
	t.Run("create and get", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		n := newNotification("u1", notifications.TypeMention, at(0))

		require.NoError(t, s.Create(ctx, n))

		got, err := s.Get(ctx, "u1", n.ID)
		require.NoError(t, err)
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, n.Title, got.Title)
		assert.Equal(t, notifications.TypeMention, got.Type)
		assert.Equal(t, "t1", got.Data["thread_id"])
		assert.False(t, got.Read)
		assert.Nil(t, got.ReadAt)
		sameTime(t, n.CreatedAt, got.CreatedAt)

		_, err = s.Get(ctx, "u2", n.ID)
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound, "other users cannot read it")

		_, err = s.Get(ctx, "u1", "missing")
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
	})

	t.Run("list newest first with filters", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)

		oldest := newNotification("u1", notifications.TypeMessage, at(0))
		middle := newNotification("u1", notifications.TypeMention, at(time.Minute))
		newest := newNotification("u1", notifications.TypeMessage, at(2*time.Minute))
		other := newNotification("u2", notifications.TypeMessage, at(time.Minute))
		for _, n := range []notifications.Notification{middle, oldest, newest, other} {
			require.NoError(t, s.Create(ctx, n))
		}

		list, err := s.List(ctx, "u1", notifications.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID, middle.ID, oldest.ID}, ids(list))

		list, err = s.List(ctx, "u1", notifications.ListOptions{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{middle.ID}, ids(list))

		list, err = s.List(ctx, "u1", notifications.ListOptions{Types: []notifications.Type{notifications.TypeMessage}})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID, oldest.ID}, ids(list))

		since := at(time.Minute)
		list, err = s.List(ctx, "u1", notifications.ListOptions{Since: &since})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID, middle.ID}, ids(list))

		list, err = s.List(ctx, "nobody", notifications.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("read state", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)

		a := newNotification("u1", notifications.TypeMessage, at(0))
		b := newNotification("u1", notifications.TypeMessage, at(time.Second))
		c := newNotification("u1", notifications.TypeMessage, at(2*time.Second))
		foreign := newNotification("u2", notifications.TypeMessage, at(0))
		for _, n := range []notifications.Notification{a, b, c, foreign} {
			require.NoError(t, s.Create(ctx, n))
		}

		count, err := s.CountUnread(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		changed, err := s.MarkRead(ctx, "u1", a.ID, foreign.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, changed, "foreign notification untouched")

		got, err := s.Get(ctx, "u1", a.ID)
		require.NoError(t, err)
		assert.True(t, got.Read)
		require.NotNil(t, got.ReadAt)
		firstReadAt := *got.ReadAt

		changed, err = s.MarkRead(ctx, "u1", a.ID)
		require.NoError(t, err)
		assert.Zero(t, changed, "already read")

		got, err = s.Get(ctx, "u1", a.ID)
		require.NoError(t, err)
		sameTime(t, firstReadAt, *got.ReadAt, "read_at is kept")

		list, err := s.List(ctx, "u1", notifications.ListOptions{OnlyUnread: true})
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID, b.ID}, ids(list))

		changed, err = s.MarkAllRead(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, changed)

		count, err = s.CountUnread(ctx, "u1")
		require.NoError(t, err)
		assert.Zero(t, count)

		count, err = s.CountUnread(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("delete", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)

		a := newNotification("u1", notifications.TypeSystem, at(0))
		b := newNotification("u1", notifications.TypeSystem, at(time.Second))
		for _, n := range []notifications.Notification{a, b} {
			require.NoError(t, s.Create(ctx, n))
		}

		require.NoError(t, s.Delete(ctx, "u2", a.ID), "other users delete nothing")
		require.NoError(t, s.Delete(ctx, "u1", a.ID))

		_, err := s.Get(ctx, "u1", a.ID)
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)

		list, err := s.List(ctx, "u1", notifications.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID}, ids(list))
	})
}

// PreferenceStore runs the notifications.PreferenceStore behaviour suite.
func PreferenceStore(t *testing.T, factory PreferenceFactory) {
	t.Run("missing user", func(t *testing.T) {
		s := factory(t)
		_, err := s.Get(context.Background(), "nobody")
		assert.ErrorIs(t, err, notifications.ErrPreferencesNotFound)
	})

	t.Run("upsert and overwrite", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)

		prefs := notifications.Preferences{InApp: true, Email: false, Push: true, Sound: false}
		require.NoError(t, s.Upsert(ctx, "u1", prefs))

		got, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, prefs, *got)

		prefs = notifications.Preferences{}
		require.NoError(t, s.Upsert(ctx, "u1", prefs))

		got, err = s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, prefs, *got, "all-false preferences are stored, not treated as missing")

		_, err = s.Get(ctx, "u2")
		assert.ErrorIs(t, err, notifications.ErrPreferencesNotFound)
	})

	t.Run("user id required", func(t *testing.T) {
		s := factory(t)
		err := s.Upsert(context.Background(), "", notifications.DefaultPreferences())
		assert.ErrorIs(t, err, notifications.ErrUserIDRequired)
	})
}
