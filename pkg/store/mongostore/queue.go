package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/courier/pkg/queue"
)

// QueueStore is a queue.Storage on MongoDB. Every transition is a single
// conditional update, so concurrent processors never claim the same entry.
// Terminal entries expire through the TTL index created by EnsureIndexes.
type QueueStore struct {
	coll *mongo.Collection
}

// NewQueueStore uses the notification_queue collection of db.
func NewQueueStore(db *mongo.Database) *QueueStore {
	return &QueueStore{coll: db.Collection(QueueCollection)}
}

func (s *QueueStore) Insert(ctx context.Context, e queue.Entry) error {
	if e.ID == "" || e.UserID == "" || !e.Status.Valid() {
		return queue.ErrInvalidEntry
	}
	if _, err := s.coll.InsertOne(ctx, e); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", queue.ErrDuplicateEntry, e.ID)
		}
		return wrap(err)
	}
	return nil
}

func (s *QueueStore) Get(ctx context.Context, id string) (*queue.Entry, error) {
	var e queue.Entry
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, queue.ErrEntryNotFound
	}
	if err != nil {
		return nil, wrap(err)
	}
	return &e, nil
}

// ClaimDue claims entries one at a time with FindOneAndUpdate, oldest due first.
func (s *QueueStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]queue.Entry, error) {
	filter := bson.D{
		{Key: "status", Value: queue.StatusPending},
		{Key: "next_retry", Value: bson.D{{Key: "$lte", Value: now}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: queue.StatusSending},
		{Key: "last_attempt", Value: now},
	}}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "next_retry", Value: 1}, {Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)

	claimed := make([]queue.Entry, 0)
	for limit <= 0 || len(claimed) < limit {
		var e queue.Entry
		err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&e)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			if len(claimed) > 0 {
				// Hand out what was claimed; the rest stays pending.
				return claimed, nil
			}
			return nil, wrap(err)
		}
		claimed = append(claimed, e)
	}
	return claimed, nil
}

// transition applies set to id only if it is currently sending.
func (s *QueueStore) transition(ctx context.Context, id string, to queue.Status, set bson.D) error {
	set = append(set, bson.E{Key: "status", Value: to})
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "status", Value: queue.StatusSending}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return wrap(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", queue.ErrInvalidTransition, current.Status, to)
}

func (s *QueueStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	return s.transition(ctx, id, queue.StatusSent, bson.D{{Key: "finished_at", Value: at}})
}

func (s *QueueStore) MarkRetry(ctx context.Context, id string, retryCount int, nextRetry time.Time, errMsg string) error {
	return s.transition(ctx, id, queue.StatusPending, bson.D{
		{Key: "retry_count", Value: retryCount},
		{Key: "next_retry", Value: nextRetry},
		{Key: "error", Value: errMsg},
	})
}

func (s *QueueStore) MarkFailed(ctx context.Context, id string, retryCount int, errMsg string, at time.Time) error {
	return s.transition(ctx, id, queue.StatusFailed, bson.D{
		{Key: "retry_count", Value: retryCount},
		{Key: "error", Value: errMsg},
		{Key: "finished_at", Value: at},
	})
}

func (s *QueueStore) RequeueStale(ctx context.Context, before, now time.Time) (int, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.D{
			{Key: "status", Value: queue.StatusSending},
			{Key: "last_attempt", Value: bson.D{{Key: "$lt", Value: before}}},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: queue.StatusPending},
			{Key: "next_retry", Value: now},
		}}},
	)
	if err != nil {
		return 0, wrap(err)
	}
	return int(res.ModifiedCount), nil
}

func queueFilter(opts queue.ListOptions) bson.D {
	filter := bson.D{}
	if opts.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: opts.Status})
	}
	if opts.UserID != "" {
		filter = append(filter, bson.E{Key: "user_id", Value: opts.UserID})
	}
	if opts.Channel != "" {
		filter = append(filter, bson.E{Key: "channel", Value: opts.Channel})
	}
	return filter
}

func (s *QueueStore) List(ctx context.Context, opts queue.ListOptions) ([]queue.Entry, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cur, err := s.coll.Find(ctx, queueFilter(opts), findOpts)
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]queue.Entry, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

func (s *QueueStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrap(err)
	}
	if res.DeletedCount == 0 {
		return queue.ErrEntryNotFound
	}
	return nil
}

func (s *QueueStore) CountByStatus(ctx context.Context) (map[queue.Status]int, error) {
	cur, err := s.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, wrap(err)
	}

	var rows []struct {
		Status queue.Status `bson:"_id"`
		Count  int          `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, wrap(err)
	}

	counts := make(map[queue.Status]int, len(queue.AllStatuses))
	for _, st := range queue.AllStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

var _ queue.Storage = (*QueueStore)(nil)
