package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/courier/pkg/async"
	"github.com/dmitrymomot/courier/pkg/logger"
)

// Service is the public entry point of the notification engine.
// It records notifications, resolves preferences and fans delivery out to
// channel adapters, turning failed channels into retry queue entries.
type Service struct {
	storage  Storage
	prefs    PreferenceStore
	queue    RetryQueue
	adapters map[Channel]Adapter
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for the Service.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAdapters registers channel adapters, replacing any adapter for the same channel.
func WithAdapters(adapters ...Adapter) ServiceOption {
	return func(s *Service) {
		for _, a := range adapters {
			if a != nil {
				s.adapters[a.Channel()] = a
			}
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a notification service.
func NewService(storage Storage, prefs PreferenceStore, queue RetryQueue, opts ...ServiceOption) *Service {
	if prefs == nil {
		prefs = NewMemoryPreferenceStore()
	}

	s := &Service{
		storage:  storage,
		prefs:    prefs,
		queue:    queue,
		adapters: make(map[Channel]Adapter),
		recorder: nopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Adapter returns the adapter registered for ch.
func (s *Service) Adapter(ch Channel) (Adapter, bool) {
	a, ok := s.adapters[ch]
	return a, ok
}

// Send records a notification and delivers it synchronously over every active
// channel in parallel. Channels that fail are queued for retry.
// Only validation and the notification store write are reported to the caller.
func (s *Service) Send(ctx context.Context, userID string, content Content) (*Notification, error) {
	notif, payload, channels, err := s.create(ctx, userID, content)
	if err != nil {
		return nil, err
	}

	type target struct {
		ch      Channel
		adapter Adapter
	}
	targets := make([]target, 0, len(channels))
	for _, ch := range channels {
		a, ok := s.routable(ctx, userID, notif.ID, ch)
		if !ok {
			continue
		}
		targets = append(targets, target{ch: ch, adapter: a})
	}

	futures := make([]*async.Future[time.Duration], len(targets))
	for i, t := range targets {
		futures[i] = async.Async(ctx, t.adapter, func(ctx context.Context, a Adapter) (time.Duration, error) {
			start := time.Now()
			err := a.Deliver(ctx, userID, payload)
			return time.Since(start), err
		})
	}

	for i, out := range async.Settle(futures...) {
		ch := targets[i].ch
		s.recorder.DeliveryAttempt(ch, SourceSync, out.Err, out.Value)
		if out.Err == nil {
			continue
		}

		s.logger.LogAttrs(ctx, slog.LevelWarn, "delivery failed, queueing retry",
			logger.UserID(userID),
			logger.Channel(ch.String()),
			logger.NotificationID(notif.ID),
			logger.RetryCount(0),
			logger.Error(out.Err),
		)
		s.enqueue(ctx, userID, ch, payload)
	}

	return notif, nil
}

// SendQueued records a notification and queues one delivery per active channel
// without attempting any of them synchronously.
func (s *Service) SendQueued(ctx context.Context, userID string, content Content) (*Notification, error) {
	notif, payload, channels, err := s.create(ctx, userID, content)
	if err != nil {
		return nil, err
	}

	for _, ch := range channels {
		if _, ok := s.routable(ctx, userID, notif.ID, ch); !ok {
			continue
		}
		s.enqueue(ctx, userID, ch, payload)
	}
	return notif, nil
}

// routable returns the adapter for ch, logging channels nothing can deliver.
func (s *Service) routable(ctx context.Context, userID, notifID string, ch Channel) (Adapter, bool) {
	a, ok := s.adapters[ch]
	if !ok {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "no adapter registered for channel",
			logger.UserID(userID),
			logger.Channel(ch.String()),
			logger.NotificationID(notifID),
		)
	}
	return a, ok
}

func (s *Service) create(ctx context.Context, userID string, content Content) (*Notification, Payload, []Channel, error) {
	if err := validateContent(userID, content); err != nil {
		return nil, Payload{}, nil, err
	}

	prefs := s.Preferences(ctx, userID)
	channels := prefs.Channels()
	if content.Channels != nil {
		channels = dedupeChannels(content.Channels)
	}

	priority := content.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	notif := Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      content.Type,
		Title:     content.Title,
		Body:      content.Body,
		Data:      maps.Clone(content.Data),
		Priority:  priority,
		CreatedAt: s.now(),
	}

	if err := s.storage.Create(ctx, notif); err != nil {
		return nil, Payload{}, nil, fmt.Errorf("%w: %w", ErrStoreNotification, err)
	}
	s.recorder.NotificationCreated(notif.Type)

	payload := notif.Payload()
	payload.Sound = prefs.Sound

	return &notif, payload, channels, nil
}

// enqueue persists a retry entry. The queue write must not inherit the
// caller's cancellation: the obligation outlives the request.
func (s *Service) enqueue(ctx context.Context, userID string, ch Channel, p Payload) {
	if s.queue == nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "no retry queue configured, delivery dropped",
			logger.UserID(userID),
			logger.Channel(ch.String()),
			logger.NotificationID(p.NotificationID),
		)
		return
	}

	if err := s.queue.Enqueue(context.WithoutCancel(ctx), userID, ch, p); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to enqueue delivery retry",
			logger.UserID(userID),
			logger.Channel(ch.String()),
			logger.NotificationID(p.NotificationID),
			logger.Error(err),
		)
	}
}

func validateContent(userID string, content Content) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if !content.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, content.Type)
	}
	if content.Title == "" {
		return ErrTitleRequired
	}
	if content.Priority != "" && !content.Priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, content.Priority)
	}
	for _, ch := range content.Channels {
		if !ch.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidChannel, ch)
		}
	}
	return nil
}

func dedupeChannels(channels []Channel) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if !slices.Contains(out, ch) {
			out = append(out, ch)
		}
	}
	return out
}

// Get returns one of the user's notifications.
func (s *Service) Get(ctx context.Context, userID, notifID string) (*Notification, error) {
	return s.storage.Get(ctx, userID, notifID)
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	return s.storage.List(ctx, userID, opts)
}

// MarkAsRead marks one notification as read. Marking an already read
// notification is a no-op.
func (s *Service) MarkAsRead(ctx context.Context, userID, notifID string) error {
	changed, err := s.storage.MarkRead(ctx, userID, notifID)
	if err != nil {
		return err
	}
	if changed > 0 {
		return nil
	}

	// Nothing changed: either already read or unknown.
	_, err = s.storage.Get(ctx, userID, notifID)
	return err
}

// MarkAllAsRead marks every unread notification as read and returns how many changed.
func (s *Service) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	return s.storage.MarkAllRead(ctx, userID)
}

// UnreadCount returns how many of the user's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.storage.CountUnread(ctx, userID)
}

// Delete removes the given notifications of the user.
func (s *Service) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	return s.storage.Delete(ctx, userID, notifIDs...)
}

// Preferences returns the user's stored preferences or the defaults.
// It never fails; a store error is logged and the defaults are used.
func (s *Service) Preferences(ctx context.Context, userID string) Preferences {
	prefs, err := s.prefs.Get(ctx, userID)
	switch {
	case err == nil && prefs != nil:
		return *prefs
	case err != nil && !errors.Is(err, ErrPreferencesNotFound):
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to load preferences, using defaults",
			logger.UserID(userID),
			logger.Error(err),
		)
	}
	return DefaultPreferences()
}

// UpdatePreferences creates or replaces the user's preferences.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, prefs Preferences) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	return s.prefs.Upsert(ctx, userID, prefs)
}
