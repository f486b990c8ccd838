package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/courier/pkg/notifications"
)

// Collection names.
const (
	NotificationsCollection = "notifications"
	QueueCollection         = "notification_queue"
	PreferencesCollection   = "notification_preferences"
)

// NotificationStore is a notifications.Storage on MongoDB.
type NotificationStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewNotificationStore uses the notifications collection of db.
func NewNotificationStore(db *mongo.Database) *NotificationStore {
	return &NotificationStore{coll: db.Collection(NotificationsCollection), now: time.Now}
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
	if _, err := s.coll.InsertOne(ctx, n); err != nil {
		return wrap(err)
	}
	return nil
}

func (s *NotificationStore) Get(ctx context.Context, userID, notifID string) (*notifications.Notification, error) {
	var n notifications.Notification
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: notifID}, {Key: "user_id", Value: userID}}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notifications.ErrNotificationNotFound
	}
	if err != nil {
		return nil, wrap(err)
	}
	return &n, nil
}

func notificationFilter(userID string, opts notifications.ListOptions) bson.D {
	filter := bson.D{{Key: "user_id", Value: userID}}
	if opts.OnlyUnread {
		filter = append(filter, bson.E{Key: "read", Value: false})
	}
	if len(opts.Types) > 0 {
		filter = append(filter, bson.E{Key: "type", Value: bson.D{{Key: "$in", Value: opts.Types}}})
	}
	if opts.Since != nil {
		filter = append(filter, bson.E{Key: "created_at", Value: bson.D{{Key: "$gte", Value: *opts.Since}}})
	}
	return filter
}

func (s *NotificationStore) List(ctx context.Context, userID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cur, err := s.coll.Find(ctx, notificationFilter(userID, opts), findOpts)
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]notifications.Notification, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID string, notifIDs ...string) (int, error) {
	if len(notifIDs) == 0 {
		return 0, nil
	}
	return s.markRead(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "_id", Value: bson.D{{Key: "$in", Value: notifIDs}}},
		{Key: "read", Value: false},
	})
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.markRead(ctx, bson.D{{Key: "user_id", Value: userID}, {Key: "read", Value: false}})
}

// markRead only touches unread documents so read_at keeps its first value.
func (s *NotificationStore) markRead(ctx context.Context, filter bson.D) (int, error) {
	res, err := s.coll.UpdateMany(ctx, filter, bson.D{{Key: "$set", Value: bson.D{
		{Key: "read", Value: true},
		{Key: "read_at", Value: s.now()},
	}}})
	if err != nil {
		return 0, wrap(err)
	}
	return int(res.ModifiedCount), nil
}

func (s *NotificationStore) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	_, err := s.coll.DeleteMany(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "_id", Value: bson.D{{Key: "$in", Value: notifIDs}}},
	})
	return wrap(err)
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "user_id", Value: userID}, {Key: "read", Value: false}})
	if err != nil {
		return 0, wrap(err)
	}
	return int(n), nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

var _ notifications.Storage = (*NotificationStore)(nil)
