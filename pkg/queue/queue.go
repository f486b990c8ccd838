package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/notifications"
)

// Recorder observes queue state, typically to export metrics.
type Recorder interface {
	EntryTransition(ch notifications.Channel, to Status)
	FallbackDepth(n int)
}

type nopRecorder struct{}

func (nopRecorder) EntryTransition(notifications.Channel, Status) {}
func (nopRecorder) FallbackDepth(int)                             {}

// Queue is the persistent retry queue.
// Writes go to the durable store; when it rejects a write the entry is kept in
// a bounded in-memory fallback until DrainFallback can move it back.
type Queue struct {
	store    Storage
	fallback *MemoryStorage
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Queue.
type Option func(*queueOptions)

type queueOptions struct {
	fallbackCapacity int
	recorder         Recorder
	logger           *slog.Logger
	now              func() time.Time
}

// WithFallbackCapacity bounds the in-memory fallback queue.
func WithFallbackCapacity(n int) Option {
	return func(o *queueOptions) {
		if n > 0 {
			o.fallbackCapacity = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *queueOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the logger for the queue.
func WithLogger(logger *slog.Logger) Option {
	return func(o *queueOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *queueOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a retry queue over the durable store.
func New(store Storage, opts ...Option) (*Queue, error) {
	if store == nil {
		return nil, ErrStorageNil
	}

	o := &queueOptions{
		fallbackCapacity: 1000,
		recorder:         nopRecorder{},
		logger:           slog.Default(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	q := &Queue{
		store:    store,
		recorder: o.recorder,
		logger:   o.logger,
		now:      o.now,
	}
	q.fallback = NewMemoryStorage(
		WithCapacity(o.fallbackCapacity),
		WithEvictHook(q.onFallbackEvict),
	)
	return q, nil
}

// Store returns the durable store.
func (q *Queue) Store() Storage { return q.store }

// Fallback returns the in-memory fallback store.
func (q *Queue) Fallback() *MemoryStorage { return q.fallback }

// Enqueue creates a pending entry due now.
// If the durable store rejects the write the entry is held in the fallback
// queue and the incident is logged at error level; it is lost if the process
// exits before the store recovers.
func (q *Queue) Enqueue(ctx context.Context, userID string, ch notifications.Channel, p notifications.Payload) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidEntry)
	}
	if !ch.Valid() {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidEntry, ch)
	}

	entry := NewEntry(userID, ch, p, q.now())

	err := q.store.Insert(ctx, entry)
	if err == nil {
		q.recorder.EntryTransition(ch, StatusPending)
		return nil
	}

	q.logger.LogAttrs(ctx, slog.LevelError, "retry queue store write failed, holding entry in memory",
		logger.EntryID(entry.ID),
		logger.UserID(userID),
		logger.Channel(ch.String()),
		logger.NotificationID(p.NotificationID),
		logger.Error(err),
	)

	if ferr := q.fallback.Insert(ctx, entry); ferr != nil {
		return errors.Join(err, ferr)
	}
	q.recorder.EntryTransition(ch, StatusPending)
	q.recorder.FallbackDepth(q.fallback.CountPending())
	return nil
}

// DrainFallback moves pending fallback entries into the durable store.
// It stops at the first store error and returns how many entries moved.
func (q *Queue) DrainFallback(ctx context.Context) (int, error) {
	pending, err := q.fallback.List(ctx, ListOptions{Status: StatusPending})
	if err != nil || len(pending) == 0 {
		return 0, err
	}

	moved := 0
	defer func() {
		q.recorder.FallbackDepth(q.fallback.CountPending())
	}()

	for _, e := range pending {
		if err := q.store.Insert(ctx, e); err != nil && !errors.Is(err, ErrDuplicateEntry) {
			return moved, err
		}
		if err := q.fallback.Delete(ctx, e.ID); err != nil && !errors.Is(err, ErrEntryNotFound) {
			return moved, err
		}
		moved++
	}

	q.logger.LogAttrs(ctx, slog.LevelInfo, "drained fallback queue into durable store",
		slog.Int("entries", moved),
	)
	return moved, nil
}

func (q *Queue) onFallbackEvict(e Entry) {
	level := slog.LevelWarn
	if !e.Status.IsTerminal() {
		level = slog.LevelError
	}
	q.logger.LogAttrs(context.Background(), level, "fallback queue full, entry evicted",
		logger.EntryID(e.ID),
		logger.UserID(e.UserID),
		logger.Channel(e.Channel.String()),
		slog.String("status", string(e.Status)),
	)
}

var _ notifications.RetryQueue = (*Queue)(nil)
