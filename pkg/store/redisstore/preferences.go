// Package redisstore keeps notification preferences in Redis, one hash per
// user, for deployments that read preferences on every send and want them
// next to other hot per-user data.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/courier/pkg/notifications"
)

// ErrStorage wraps Redis failures.
var ErrStorage = errors.New("redis preference storage error")

const DefaultKeyPrefix = "courier:prefs:"

// preferencesHash maps a hash to Preferences. Booleans are stored as "1"/"0".
type preferencesHash struct {
	InApp bool `redis:"in_app"`
	Email bool `redis:"email"`
	Push  bool `redis:"push"`
	Sound bool `redis:"sound"`
}

// PreferenceStore is a notifications.PreferenceStore on Redis.
type PreferenceStore struct {
	client redis.Cmdable
	prefix string
}

// Option configures a PreferenceStore.
type Option func(*PreferenceStore)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *PreferenceStore) {
		s.prefix = prefix
	}
}

func NewPreferenceStore(client redis.Cmdable, opts ...Option) *PreferenceStore {
	s := &PreferenceStore{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PreferenceStore) key(userID string) string {
	return s.prefix + userID
}

func (s *PreferenceStore) Get(ctx context.Context, userID string) (*notifications.Preferences, error) {
	res := s.client.HGetAll(ctx, s.key(userID))
	fields, err := res.Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if len(fields) == 0 {
		return nil, notifications.ErrPreferencesNotFound
	}

	var h preferencesHash
	if err := res.Scan(&h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return &notifications.Preferences{InApp: h.InApp, Email: h.Email, Push: h.Push, Sound: h.Sound}, nil
}

func (s *PreferenceStore) Upsert(ctx context.Context, userID string, prefs notifications.Preferences) error {
	if userID == "" {
		return notifications.ErrUserIDRequired
	}

	err := s.client.HSet(ctx, s.key(userID),
		"in_app", prefs.InApp,
		"email", prefs.Email,
		"push", prefs.Push,
		"sound", prefs.Sound,
		"updated_at", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

var _ notifications.PreferenceStore = (*PreferenceStore)(nil)
