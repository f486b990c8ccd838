package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultRetention is how long terminal queue entries are kept.
const DefaultRetention = 30 * 24 * time.Hour

// EnsureIndexes creates the indexes every store relies on. Terminal queue
// entries are removed by a TTL index on finished_at after retention.
func EnsureIndexes(ctx context.Context, db *mongo.Database, retention time.Duration) error {
	if retention <= 0 {
		retention = DefaultRetention
	}

	specs := map[string][]mongo.IndexModel{
		NotificationsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}}},
		},
		QueueCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "next_retry", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "last_attempt", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{
				Keys: bson.D{{Key: "finished_at", Value: 1}},
				Options: options.Index().
					SetName("finished_at_ttl").
					SetExpireAfterSeconds(int32(retention / time.Second)),
			},
		},
	}

	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%w: create %s indexes: %w", ErrStorage, name, err)
		}
	}
	return nil
}
