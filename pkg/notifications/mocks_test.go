package notifications_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/courier/pkg/email"
	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/push"
)

type mockAdapter struct {
	mock.Mock
	channel notifications.Channel
}

func newMockAdapter(ch notifications.Channel) *mockAdapter {
	return &mockAdapter{channel: ch}
}

func (m *mockAdapter) Channel() notifications.Channel { return m.channel }

func (m *mockAdapter) Deliver(ctx context.Context, userID string, p notifications.Payload) error {
	args := m.Called(ctx, userID, p)
	return args.Error(0)
}

type queuedEntry struct {
	UserID  string
	Channel notifications.Channel
	Payload notifications.Payload
	Created time.Time
}

// recordingQueue captures enqueued deliveries.
type recordingQueue struct {
	mu      sync.Mutex
	entries []queuedEntry
	err     error
}

func (q *recordingQueue) Enqueue(ctx context.Context, userID string, ch notifications.Channel, p notifications.Payload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.entries = append(q.entries, queuedEntry{UserID: userID, Channel: ch, Payload: p, Created: time.Now()})
	return nil
}

func (q *recordingQueue) Entries() []queuedEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queuedEntry(nil), q.entries...)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Create(ctx context.Context, notif notifications.Notification) error {
	return m.Called(ctx, notif).Error(0)
}

func (m *mockStorage) Get(ctx context.Context, userID, notifID string) (*notifications.Notification, error) {
	args := m.Called(ctx, userID, notifID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notifications.Notification), args.Error(1)
}

func (m *mockStorage) List(ctx context.Context, userID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	args := m.Called(ctx, userID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notifications.Notification), args.Error(1)
}

func (m *mockStorage) MarkRead(ctx context.Context, userID string, notifIDs ...string) (int, error) {
	args := m.Called(ctx, userID, notifIDs)
	return args.Int(0), args.Error(1)
}

func (m *mockStorage) MarkAllRead(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	return m.Called(ctx, userID, notifIDs).Error(0)
}

func (m *mockStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockPrefs struct {
	mock.Mock
}

func (m *mockPrefs) Get(ctx context.Context, userID string) (*notifications.Preferences, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notifications.Preferences), args.Error(1)
}

func (m *mockPrefs) Upsert(ctx context.Context, userID string, prefs notifications.Preferences) error {
	return m.Called(ctx, userID, prefs).Error(0)
}

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) SendToUser(ctx context.Context, userID string, msg any) (bool, error) {
	args := m.Called(ctx, userID, msg)
	return args.Bool(0), args.Error(1)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	return m.Called(ctx, params).Error(0)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) SendMulticast(ctx context.Context, msg push.Message) (*push.BatchResponse, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*push.BatchResponse), args.Error(1)
}
