// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry, used to keep hot lookups off the database.
//
//	recipients := cache.NewLRU[string, notifications.Recipient](10_000,
//		cache.WithTTL(5*time.Minute),
//	)
//	recipients.Put(userID, r)
//	if r, ok := recipients.Get(userID); ok {
//		// fresh hit
//	}
//
// Get, Put and Remove are O(1).
package cache
