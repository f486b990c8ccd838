package notifications

import (
	"context"
	"time"
)

// Storage is the notification store: an append-only log of created
// notifications with read state, independent of delivery.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, notif Notification) error

	// Get retrieves a single notification owned by userID.
	Get(ctx context.Context, userID, notifID string) (*Notification, error)

	// List returns notifications for a user, newest first.
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	// MarkRead marks the given notifications as read and returns how many changed.
	MarkRead(ctx context.Context, userID string, notifIDs ...string) (int, error)

	// MarkAllRead marks every unread notification of the user as read and returns how many changed.
	MarkAllRead(ctx context.Context, userID string) (int, error)

	// Delete removes notification(s).
	Delete(ctx context.Context, userID string, notifIDs ...string) error

	// CountUnread returns unread count for user.
	CountUnread(ctx context.Context, userID string) (int, error)
}

// ListOptions provides filtering and pagination options for listing notifications.
type ListOptions struct {
	Limit      int        // Maximum number of notifications to return (0 = no limit)
	Offset     int        // Number of notifications to skip for pagination
	OnlyUnread bool       // When true, only return unread notifications
	Types      []Type     // If specified, only return notifications of these types
	Since      *time.Time // If specified, only return notifications created at or after this time
}

// Match reports whether n passes the filters in opts. Pagination is not applied.
func (opts ListOptions) Match(n Notification) bool {
	if opts.OnlyUnread && n.Read {
		return false
	}
	if len(opts.Types) > 0 {
		found := false
		for _, t := range opts.Types {
			if n.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if opts.Since != nil && n.CreatedAt.Before(*opts.Since) {
		return false
	}
	return true
}
