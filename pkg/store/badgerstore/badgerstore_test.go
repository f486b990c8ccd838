package badgerstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/queue"
	"github.com/dmitrymomot/courier/pkg/store/badgerstore"
	"github.com/dmitrymomot/courier/pkg/store/storetest"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()

	db, err := badgerstore.Open(badgerstore.Config{InMemory: true}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestQueueStore(t *testing.T) {
	t.Parallel()
	storetest.QueueStorage(t, func(t *testing.T) queue.Storage {
		return badgerstore.NewQueueStore(openDB(t), time.Hour)
	})
}

func TestNotificationStore(t *testing.T) {
	t.Parallel()
	storetest.NotificationStorage(t, func(t *testing.T) notifications.Storage {
		return badgerstore.NewNotificationStore(openDB(t))
	})
}

func TestPreferenceStore(t *testing.T) {
	t.Parallel()
	storetest.PreferenceStore(t, func(t *testing.T) notifications.PreferenceStore {
		return badgerstore.NewPreferenceStore(openDB(t))
	})
}

func expiresAt(t *testing.T, db *badger.DB, id string) uint64 {
	t.Helper()

	var exp uint64
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("queue:" + id))
		if err != nil {
			return err
		}
		exp = item.ExpiresAt()
		return nil
	})
	require.NoError(t, err)
	return exp
}

func TestQueueStore_TerminalEntriesExpire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDB(t)
	store := badgerstore.NewQueueStore(db, time.Hour)
	now := time.Now().UTC().Truncate(time.Millisecond)

	e := queue.NewEntry("user-1", notifications.ChannelEmail, notifications.Payload{Title: "hi"}, now)
	require.NoError(t, store.Insert(ctx, e))
	assert.Zero(t, expiresAt(t, db, e.ID), "pending entries never expire")

	claimed, err := store.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Zero(t, expiresAt(t, db, e.ID))

	require.NoError(t, store.MarkSent(ctx, e.ID, now))
	exp := expiresAt(t, db, e.ID)
	assert.NotZero(t, exp)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), int64(exp), 60)
}

func TestQueueStore_NoRetentionKeepsEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDB(t)
	store := badgerstore.NewQueueStore(db, 0)
	now := time.Now().UTC()

	e := queue.NewEntry("user-1", notifications.ChannelPush, notifications.Payload{Title: "hi"}, now)
	require.NoError(t, store.Insert(ctx, e))
	_, err := store.ClaimDue(ctx, now, 1)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, e.ID, 5, "boom", now))

	assert.Zero(t, expiresAt(t, db, e.ID))
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	db, err := badgerstore.Open(badgerstore.Config{InMemory: true}, nil)
	require.NoError(t, err)

	check := badgerstore.Healthcheck(db)
	assert.NoError(t, check(context.Background()))

	require.NoError(t, db.Close())
	assert.ErrorIs(t, check(context.Background()), badgerstore.ErrStorage)
}

func TestRunGC_StopsWithContext(t *testing.T) {
	t.Parallel()

	db := openDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- badgerstore.RunGC(ctx, db, time.Millisecond)() }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunGC did not stop")
	}
}
