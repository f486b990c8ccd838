package queue

import (
	"context"
	"time"
)

// Storage persists queue entries.
//
// Every Mark* method requires the entry to be in StatusSending and returns
// ErrInvalidTransition otherwise, so terminal entries can never change.
// Unknown ids return ErrEntryNotFound.
type Storage interface {
	// Insert stores a new entry.
	Insert(ctx context.Context, e Entry) error

	// Get returns a single entry.
	Get(ctx context.Context, id string) (*Entry, error)

	// ClaimDue atomically moves up to limit due pending entries to sending,
	// setting LastAttempt to now, and returns them oldest due first.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]Entry, error)

	// MarkSent records a successful delivery.
	MarkSent(ctx context.Context, id string, at time.Time) error

	// MarkRetry returns the entry to pending with a new due time.
	MarkRetry(ctx context.Context, id string, retryCount int, nextRetry time.Time, errMsg string) error

	// MarkFailed records the final failure.
	MarkFailed(ctx context.Context, id string, retryCount int, errMsg string, at time.Time) error

	// RequeueStale returns sending entries whose LastAttempt is before the
	// cutoff to pending, due at now. Used to recover entries abandoned mid-attempt.
	RequeueStale(ctx context.Context, before, now time.Time) (int, error)

	// List returns entries ordered by creation time.
	List(ctx context.Context, opts ListOptions) ([]Entry, error)

	// Delete removes an entry.
	Delete(ctx context.Context, id string) error

	// CountByStatus returns the number of entries per status.
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// Purger is implemented by stores that need the processor to drop old
// terminal entries. Stores with native expiry do not implement it.
type Purger interface {
	PurgeFinished(ctx context.Context, before time.Time) (int, error)
}
