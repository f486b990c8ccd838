package badgerstore

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dmitrymomot/courier/pkg/notifications"
)

const (
	notificationPrefix = "notif:"
	preferencesPrefix  = "prefs:"
)

func notificationKey(userID, id string) []byte {
	return []byte(notificationPrefix + userID + ":" + id)
}

func userNotificationsPrefix(userID string) []byte {
	return []byte(notificationPrefix + userID + ":")
}

// NotificationStore is a notifications.Storage on badger, keyed by user.
type NotificationStore struct {
	db  *badger.DB
	now func() time.Time
}

// NewNotificationStore creates a notification store on db.
func NewNotificationStore(db *badger.DB) *NotificationStore {
	return &NotificationStore{db: db, now: time.Now}
}

func (s *NotificationStore) Create(ctx context.Context, n notifications.Notification) error {
	if n.ID == "" {
		return notifications.ErrNotificationIDRequired
	}
	if n.UserID == "" {
		return notifications.ErrUserIDRequired
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	return wrap(update(s.db, func(txn *badger.Txn) error {
		return setJSON(txn, notificationKey(n.UserID, n.ID), n, 0)
	}))
}

func (s *NotificationStore) Get(ctx context.Context, userID, notifID string) (*notifications.Notification, error) {
	var n notifications.Notification
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, notificationKey(userID, notifID), &n)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notifications.ErrNotificationNotFound
	}
	if err != nil {
		return nil, wrap(err)
	}
	return &n, nil
}

// userNotifications collects the user's notifications. The owner check guards
// against user ids that contain the key separator.
func userNotifications(txn *badger.Txn, userID string, match func(notifications.Notification) bool) ([]notifications.Notification, error) {
	out := make([]notifications.Notification, 0)
	err := scan(txn, userNotificationsPrefix(userID), func(_ []byte, n notifications.Notification) error {
		if n.UserID == userID && match(n) {
			out = append(out, n)
		}
		return nil
	})
	return out, err
}

func (s *NotificationStore) List(ctx context.Context, userID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	var list []notifications.Notification
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		list, err = userNotifications(txn, userID, opts.Match)
		return err
	})
	if err != nil {
		return nil, wrap(err)
	}

	slices.SortStableFunc(list, func(a, b notifications.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	start := min(opts.Offset, len(list))
	end := len(list)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(list))
	}
	return list[start:end], nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID string, notifIDs ...string) (int, error) {
	if len(notifIDs) == 0 {
		return 0, nil
	}
	return s.markRead(userID, func(n notifications.Notification) bool {
		return slices.Contains(notifIDs, n.ID)
	})
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.markRead(userID, func(notifications.Notification) bool { return true })
}

func (s *NotificationStore) markRead(userID string, match func(notifications.Notification) bool) (int, error) {
	changed := 0
	err := update(s.db, func(txn *badger.Txn) error {
		changed = 0
		list, err := userNotifications(txn, userID, match)
		if err != nil {
			return err
		}
		now := s.now()
		for i := range list {
			if !list[i].MarkAsRead(now) {
				continue
			}
			if err := setJSON(txn, notificationKey(userID, list[i].ID), list[i], 0); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, wrap(err)
	}
	return changed, nil
}

func (s *NotificationStore) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	return wrap(update(s.db, func(txn *badger.Txn) error {
		for _, id := range notifIDs {
			if err := txn.Delete(notificationKey(userID, id)); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var list []notifications.Notification
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		list, err = userNotifications(txn, userID, func(n notifications.Notification) bool { return !n.Read })
		return err
	})
	if err != nil {
		return 0, wrap(err)
	}
	return len(list), nil
}

// PreferenceStore is a notifications.PreferenceStore on badger.
type PreferenceStore struct {
	db *badger.DB
}

// NewPreferenceStore creates a preference store on db.
func NewPreferenceStore(db *badger.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

func (s *PreferenceStore) Get(ctx context.Context, userID string) (*notifications.Preferences, error) {
	var p notifications.Preferences
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(preferencesPrefix+userID), &p)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notifications.ErrPreferencesNotFound
	}
	if err != nil {
		return nil, wrap(err)
	}
	return &p, nil
}

func (s *PreferenceStore) Upsert(ctx context.Context, userID string, prefs notifications.Preferences) error {
	if userID == "" {
		return notifications.ErrUserIDRequired
	}
	return wrap(update(s.db, func(txn *badger.Txn) error {
		return setJSON(txn, []byte(preferencesPrefix+userID), prefs, 0)
	}))
}

var (
	_ notifications.Storage         = (*NotificationStore)(nil)
	_ notifications.PreferenceStore = (*PreferenceStore)(nil)
)
