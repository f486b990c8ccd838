package notifications_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/email"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/push"
)

func TestInAppAdapter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := notifications.Payload{NotificationID: "n1", Title: "t"}

	t.Run("delivered", func(t *testing.T) {
		t.Parallel()

		reg := &mockRegistry{}
		reg.On("SendToUser", mock.Anything, "u1", notifications.InAppEvent{Event: notifications.EventNotification, Data: p}).Return(true, nil)

		a := notifications.NewInAppAdapter(reg, notifications.WithInAppLogger(logger.Discard()))
		assert.Equal(t, notifications.ChannelInApp, a.Channel())
		require.NoError(t, a.Deliver(ctx, "u1", p))
		reg.AssertExpectations(t)
	})

	t.Run("no connection is not an error", func(t *testing.T) {
		t.Parallel()

		reg := &mockRegistry{}
		reg.On("SendToUser", mock.Anything, "u1", mock.Anything).Return(false, nil)

		a := notifications.NewInAppAdapter(reg, notifications.WithInAppLogger(logger.Discard()))
		assert.NoError(t, a.Deliver(ctx, "u1", p))
	})

	t.Run("registry failure is transient", func(t *testing.T) {
		t.Parallel()

		reg := &mockRegistry{}
		reg.On("SendToUser", mock.Anything, "u1", mock.Anything).Return(false, errors.New("closed"))

		a := notifications.NewInAppAdapter(reg, notifications.WithInAppLogger(logger.Discard()))
		assert.ErrorIs(t, a.Deliver(ctx, "u1", p), notifications.ErrRegistryUnavailable)
	})
}

func TestEmailAdapter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := notifications.Payload{
		NotificationID: "n1",
		Type:           notifications.TypeMessage,
		Title:          "New message",
		Body:           "Hi",
		Data:           map[string]any{"url": "/messages/9"},
	}

	newAdapter := func(dir notifications.RecipientDirectory, sender email.EmailSender) *notifications.EmailAdapter {
		return notifications.NewEmailAdapter(dir, sender,
			notifications.WithBaseURL("https://app.example.com"),
			notifications.WithAppName("Market"),
			notifications.WithEmailLogger(logger.Discard()),
		)
	}

	t.Run("sends rendered email", func(t *testing.T) {
		t.Parallel()

		dir := notifications.NewMemoryDirectory()
		dir.SetRecipient("u1", notifications.Recipient{Email: "ann@example.com", Name: "Ann"})

		sender := &mockSender{}
		sender.On("SendEmail", mock.Anything, mock.MatchedBy(func(params email.SendEmailParams) bool {
			return params.SendTo == "ann@example.com" &&
				params.Subject == "New message" &&
				params.Tag == "message" &&
				assert.Contains(t, params.BodyHTML, "https://app.example.com/messages/9") &&
				assert.Contains(t, params.BodyText, "https://app.example.com/messages/9")
		})).Return(nil).Once()

		a := newAdapter(dir, sender)
		assert.Equal(t, notifications.ChannelEmail, a.Channel())
		require.NoError(t, a.Deliver(ctx, "u1", p))
		sender.AssertExpectations(t)
	})

	t.Run("default action url", func(t *testing.T) {
		t.Parallel()

		dir := notifications.NewMemoryDirectory()
		dir.SetRecipient("u1", notifications.Recipient{Email: "ann@example.com"})

		sender := &mockSender{}
		sender.On("SendEmail", mock.Anything, mock.MatchedBy(func(params email.SendEmailParams) bool {
			return assert.Contains(t, params.BodyText, "https://app.example.com/notifications")
		})).Return(nil).Once()

		require.NoError(t, newAdapter(dir, sender).Deliver(ctx, "u1", notifications.Payload{Title: "t"}))
		sender.AssertExpectations(t)
	})

	t.Run("unknown recipient is a no-op", func(t *testing.T) {
		t.Parallel()

		sender := &mockSender{}
		require.NoError(t, newAdapter(notifications.NewMemoryDirectory(), sender).Deliver(ctx, "ghost", p))
		sender.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	})

	t.Run("missing address is a no-op", func(t *testing.T) {
		t.Parallel()

		dir := notifications.NewMemoryDirectory()
		dir.SetRecipient("u1", notifications.Recipient{Name: "No Mail"})

		sender := &mockSender{}
		require.NoError(t, newAdapter(dir, sender).Deliver(ctx, "u1", p))
		sender.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	})

	t.Run("refused recipient is a no-op", func(t *testing.T) {
		t.Parallel()

		dir := notifications.NewMemoryDirectory()
		dir.SetRecipient("u1", notifications.Recipient{Email: "ann@example.com"})

		sender := &mockSender{}
		sender.On("SendEmail", mock.Anything, mock.Anything).Return(email.ErrRecipientRejected).Once()

		assert.NoError(t, newAdapter(dir, sender).Deliver(ctx, "u1", p))
		sender.AssertExpectations(t)
	})

	t.Run("transport failure is returned", func(t *testing.T) {
		t.Parallel()

		dir := notifications.NewMemoryDirectory()
		dir.SetRecipient("u1", notifications.Recipient{Email: "ann@example.com"})

		sender := &mockSender{}
		sender.On("SendEmail", mock.Anything, mock.Anything).Return(email.ErrFailedToSendEmail)

		assert.ErrorIs(t, newAdapter(dir, sender).Deliver(ctx, "u1", p), email.ErrFailedToSendEmail)
	})
}

func TestPushAdapter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := notifications.Payload{
		NotificationID: "n1",
		Type:           notifications.TypeMessage,
		Title:          "New message",
		Body:           "Hi",
		Data:           map[string]any{"thread_id": 7},
		Sound:          true,
	}

	t.Run("nil gateway is a no-op", func(t *testing.T) {
		t.Parallel()

		dir := notifications.NewMemoryDirectory()
		require.NoError(t, dir.RegisterDeviceToken(ctx, "u1", "tok", "android"))

		a := notifications.NewPushAdapter(nil, dir, notifications.WithPushLogger(logger.Discard()))
		assert.Equal(t, notifications.ChannelPush, a.Channel())
		assert.NoError(t, a.Deliver(ctx, "u1", p))
	})

	t.Run("no tokens is a no-op", func(t *testing.T) {
		t.Parallel()

		gw := &mockGateway{}
		a := notifications.NewPushAdapter(gw, notifications.NewMemoryDirectory(), notifications.WithPushLogger(logger.Discard()))
		require.NoError(t, a.Deliver(ctx, "u1", p))
		gw.AssertNotCalled(t, "SendMulticast", mock.Anything, mock.Anything)
	})

	t.Run("invalid token is deactivated and delivery succeeds", func(t *testing.T) {
		t.Parallel()

		dir := notifications.NewMemoryDirectory()
		require.NoError(t, dir.RegisterDeviceToken(ctx, "u1", "good", "android"))
		require.NoError(t, dir.RegisterDeviceToken(ctx, "u1", "stale", "android"))

		gw := &mockGateway{}
		gw.On("SendMulticast", mock.Anything, push.Message{
			Tokens: []string{"good", "stale"},
			Title:  "New message",
			Body:   "Hi",
			Data:   map[string]string{"thread_id": "7", "notification_id": "n1", "type": "message"},
			Sound:  true,
		}).Return(&push.BatchResponse{
			SuccessCount: 1,
			FailureCount: 1,
			Results: []push.SendResult{
				{Token: "good", MessageID: "m1"},
				{Token: "stale", Error: push.ErrInvalidToken},
			},
		}, nil).Once()

		a := notifications.NewPushAdapter(gw, dir, notifications.WithPushLogger(logger.Discard()))
		require.NoError(t, a.Deliver(ctx, "u1", p))
		gw.AssertExpectations(t)

		active, err := dir.ActiveDeviceTokens(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"good"}, active)
	})

	t.Run("wholesale failure is returned", func(t *testing.T) {
		t.Parallel()

		dir := notifications.NewMemoryDirectory()
		require.NoError(t, dir.RegisterDeviceToken(ctx, "u1", "tok", "android"))

		gw := &mockGateway{}
		gw.On("SendMulticast", mock.Anything, mock.Anything).Return(nil, push.ErrGatewayUnavailable)

		a := notifications.NewPushAdapter(gw, dir, notifications.WithPushLogger(logger.Discard()))
		assert.ErrorIs(t, a.Deliver(ctx, "u1", p), push.ErrGatewayUnavailable)

		active, err := dir.ActiveDeviceTokens(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"tok"}, active)
	})
}

func TestService_Send_ScenarioD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := notifications.NewMemoryDirectory()
	require.NoError(t, dir.RegisterDeviceToken(ctx, "u1", "good", "android"))
	require.NoError(t, dir.RegisterDeviceToken(ctx, "u1", "stale", "android"))

	gw := &mockGateway{}
	gw.On("SendMulticast", mock.Anything, mock.Anything).Return(&push.BatchResponse{
		SuccessCount: 1,
		FailureCount: 1,
		Results: []push.SendResult{
			{Token: "good"},
			{Token: "stale", Error: push.ErrInvalidToken},
		},
	}, nil).Once()

	q := &recordingQueue{}
	svc := newService(t, notifications.NewMemoryStorage(), nil, q,
		notifications.WithAdapters(notifications.NewPushAdapter(gw, dir, notifications.WithPushLogger(logger.Discard()))),
	)

	_, err := svc.Send(ctx, "u1", notifications.Content{
		Type:     notifications.TypeMessage,
		Title:    "New message",
		Channels: []notifications.Channel{notifications.ChannelPush},
	})
	require.NoError(t, err)

	assert.Empty(t, q.Entries())
	active, err := dir.ActiveDeviceTokens(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, active)
}

func TestMemoryDirectory_RegisterMovesToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := notifications.NewMemoryDirectory()
	require.NoError(t, dir.RegisterDeviceToken(ctx, "u1", "tok", "android"))
	require.NoError(t, dir.DeactivateDeviceTokens(ctx, "tok"))
	require.NoError(t, dir.RegisterDeviceToken(ctx, "u2", "tok", "android"))

	u1, err := dir.ActiveDeviceTokens(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u1)

	u2, err := dir.ActiveDeviceTokens(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok"}, u2)

	assert.ErrorIs(t, dir.RegisterDeviceToken(ctx, "", "x", "android"), notifications.ErrUserIDRequired)
}
