package directory

import (
	"context"
	"time"

	"github.com/dmitrymomot/courier/pkg/cache"
	"github.com/dmitrymomot/courier/pkg/notifications"
)

// CacheConfig bounds the recipient lookup cache.
type CacheConfig struct {
	Size int           `env:"DIRECTORY_CACHE_SIZE" envDefault:"10000"` // 0 disables the cache
	TTL  time.Duration `env:"DIRECTORY_CACHE_TTL" envDefault:"5m"`
}

// Store is a full user directory.
type Store interface {
	notifications.RecipientDirectory
	notifications.DeviceTokenStore
	RegisterDeviceToken(ctx context.Context, userID, token, platform string) error
}

// Cached serves Recipient lookups from memory for up to the TTL. Only found
// recipients are cached. Device tokens always go to the wrapped store.
type Cached struct {
	Store
	recipients *cache.LRU[string, notifications.Recipient]
}

// NewCached wraps next with a recipient cache.
func NewCached(next Store, cfg CacheConfig) *Cached {
	return &Cached{
		Store:      next,
		recipients: cache.NewLRU[string, notifications.Recipient](max(cfg.Size, 1), cache.WithTTL(cfg.TTL)),
	}
}

func (c *Cached) Recipient(ctx context.Context, userID string) (notifications.Recipient, error) {
	if r, ok := c.recipients.Get(userID); ok {
		return r, nil
	}
	r, err := c.Store.Recipient(ctx, userID)
	if err != nil {
		return r, err
	}
	c.recipients.Put(userID, r)
	return r, nil
}

// Invalidate drops the cached recipient, for callers that changed it.
func (c *Cached) Invalidate(userID string) {
	c.recipients.Remove(userID)
}

var _ Store = (*Cached)(nil)
