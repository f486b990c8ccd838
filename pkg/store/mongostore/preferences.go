package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/courier/pkg/notifications"
)

type preferencesDoc struct {
	UserID                    string    `bson:"_id"`
	notifications.Preferences `bson:",inline"`
	UpdatedAt                 time.Time `bson:"updated_at"`
}

// PreferenceStore is a notifications.PreferenceStore on MongoDB, one document per user.
type PreferenceStore struct {
	coll *mongo.Collection
}

// NewPreferenceStore uses the notification_preferences collection of db.
func NewPreferenceStore(db *mongo.Database) *PreferenceStore {
	return &PreferenceStore{coll: db.Collection(PreferencesCollection)}
}

func (s *PreferenceStore) Get(ctx context.Context, userID string) (*notifications.Preferences, error) {
	var doc preferencesDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notifications.ErrPreferencesNotFound
	}
	if err != nil {
		return nil, wrap(err)
	}
	return &doc.Preferences, nil
}

func (s *PreferenceStore) Upsert(ctx context.Context, userID string, prefs notifications.Preferences) error {
	if userID == "" {
		return notifications.ErrUserIDRequired
	}
	doc := preferencesDoc{UserID: userID, Preferences: prefs, UpdatedAt: time.Now()}
	_, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: userID}}, doc, options.Replace().SetUpsert(true))
	return wrap(err)
}

var _ notifications.PreferenceStore = (*PreferenceStore)(nil)
