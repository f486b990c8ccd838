package notifications_test

import (
	"testing"

	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/store/storetest"
)

func TestMemoryStorage_Conformance(t *testing.T) {
	storetest.NotificationStorage(t, func(t *testing.T) notifications.Storage {
		return notifications.NewMemoryStorage()
	})
}

func TestMemoryPreferenceStore_Conformance(t *testing.T) {
	storetest.PreferenceStore(t, func(t *testing.T) notifications.PreferenceStore {
		return notifications.NewMemoryPreferenceStore()
	})
}
