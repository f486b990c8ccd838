package notifications

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification does not exist for the user.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrPreferencesNotFound is returned by a PreferenceStore when the user has no record.
	ErrPreferencesNotFound = errors.New("notification preferences not found")

	// ErrRecipientNotFound is returned by a RecipientDirectory for unknown users.
	ErrRecipientNotFound = errors.New("recipient not found")

	ErrUserIDRequired         = errors.New("user ID is required")
	ErrNotificationIDRequired = errors.New("notification ID is required")
	ErrInvalidType            = errors.New("invalid notification type")
	ErrTitleRequired          = errors.New("notification title is required")
	ErrInvalidChannel         = errors.New("invalid notification channel")
	ErrInvalidPriority        = errors.New("invalid notification priority")

	// ErrStoreNotification wraps failures of the notification store write in Send.
	ErrStoreNotification = errors.New("failed to store notification")

	// ErrRegistryUnavailable is returned when the in-app connection registry cannot be queried.
	ErrRegistryUnavailable = errors.New("connection registry unavailable")
)
