package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/courier/pkg/notifications"
)

// Status is the delivery state of a queue entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusSending, StatusSent, StatusFailed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSending, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions can happen from s.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

// CanTransition reports whether an entry may move from one status to another.
// Allowed: pending->sending and sending->{sent, pending, failed}.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusSending
	case StatusSending:
		return to == StatusSent || to == StatusPending || to == StatusFailed
	}
	return false
}

// MaxRetries is the number of failed attempts after which an entry is failed for good.
const MaxRetries = 5

// DefaultBackoff is the wait before the next attempt, indexed by retry count.
var DefaultBackoff = []time.Duration{
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
	30 * time.Second,
}

// Backoff returns the delay after the retryCount-th consecutive failure.
// Counts past the end of the table use its last value.
func Backoff(retryCount int) time.Duration {
	idx := min(max(retryCount-1, 0), len(DefaultBackoff)-1)
	return DefaultBackoff[idx]
}

// Entry is one durable delivery obligation for a (user, channel) pair.
// Payload is a copy of the notification content, not a reference to it.
type Entry struct {
	ID          string                `json:"id" bson:"_id"`
	UserID      string                `json:"user_id" bson:"user_id"`
	Channel     notifications.Channel `json:"channel" bson:"channel"`
	Payload     notifications.Payload `json:"payload" bson:"payload"`
	Status      Status                `json:"status" bson:"status"`
	RetryCount  int                   `json:"retry_count" bson:"retry_count"`
	CreatedAt   time.Time             `json:"created_at" bson:"created_at"`
	LastAttempt *time.Time            `json:"last_attempt,omitempty" bson:"last_attempt,omitempty"`
	NextRetry   time.Time             `json:"next_retry" bson:"next_retry"`
	Error       *string               `json:"error,omitempty" bson:"error,omitempty"`
	FinishedAt  *time.Time            `json:"finished_at,omitempty" bson:"finished_at,omitempty"`
}

// NewEntry creates a pending entry that is due immediately.
func NewEntry(userID string, ch notifications.Channel, p notifications.Payload, now time.Time) Entry {
	return Entry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Channel:   ch,
		Payload:   p,
		Status:    StatusPending,
		CreatedAt: now,
		NextRetry: now,
	}
}

// Due reports whether the entry should be attempted at now.
func (e Entry) Due(now time.Time) bool {
	return e.Status == StatusPending && !e.NextRetry.After(now)
}

// ListOptions filters entries for inspection.
type ListOptions struct {
	Status  Status                // Empty matches every status
	UserID  string                // Empty matches every user
	Channel notifications.Channel // Empty matches every channel
	Limit   int                   // 0 = no limit
	Offset  int
}

// Match reports whether e passes the filters.
func (o ListOptions) Match(e Entry) bool {
	if o.Status != "" && e.Status != o.Status {
		return false
	}
	if o.UserID != "" && e.UserID != o.UserID {
		return false
	}
	if o.Channel != "" && e.Channel != o.Channel {
		return false
	}
	return true
}

// TickResult summarizes one processor tick.
type TickResult struct {
	Drained   int // Fallback entries moved to the durable store
	Requeued  int // Stale sending entries returned to pending
	Claimed   int
	Sent      int
	Retried   int
	Failed    int
	Purged    int
	StoreDown bool // The durable store could not be queried
}
