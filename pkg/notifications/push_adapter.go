package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/push"
)

// PushAdapter multicasts notifications to every active device token of a user.
type PushAdapter struct {
	gateway PushGateway
	tokens  DeviceTokenStore
	logger  *slog.Logger
}

// PushAdapterOption configures a PushAdapter.
type PushAdapterOption func(*PushAdapter)

// WithPushLogger sets the logger for the PushAdapter.
func WithPushLogger(logger *slog.Logger) PushAdapterOption {
	return func(a *PushAdapter) {
		a.logger = logger
	}
}

// NewPushAdapter creates a push adapter. A nil gateway makes every delivery a no-op.
func NewPushAdapter(gateway PushGateway, tokens DeviceTokenStore, opts ...PushAdapterOption) *PushAdapter {
	a := &PushAdapter{
		gateway: gateway,
		tokens:  tokens,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *PushAdapter) Channel() Channel { return ChannelPush }

// Deliver sends a multicast. Invalid tokens reported by the gateway are
// deactivated and do not fail the delivery; only a wholesale gateway failure does.
func (a *PushAdapter) Deliver(ctx context.Context, userID string, p Payload) error {
	if a.gateway == nil || a.tokens == nil {
		return nil
	}

	tokens, err := a.tokens.ActiveDeviceTokens(ctx, userID)
	if err != nil {
		return fmt.Errorf("load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		a.logger.LogAttrs(ctx, slog.LevelDebug, "push skipped: no active device tokens",
			logger.UserID(userID),
			logger.NotificationID(p.NotificationID),
		)
		return nil
	}

	resp, err := a.gateway.SendMulticast(ctx, push.Message{
		Tokens: tokens,
		Title:  p.Title,
		Body:   p.Body,
		Data:   pushData(p),
		Sound:  p.Sound,
	})

	if invalid := resp.InvalidTokens(); len(invalid) > 0 {
		if derr := a.tokens.DeactivateDeviceTokens(ctx, invalid...); derr != nil {
			a.logger.LogAttrs(ctx, slog.LevelError, "failed to deactivate invalid device tokens",
				logger.UserID(userID),
				slog.Int("tokens", len(invalid)),
				logger.Error(derr),
			)
		} else {
			a.logger.LogAttrs(ctx, slog.LevelInfo, "deactivated invalid device tokens",
				logger.UserID(userID),
				slog.Int("tokens", len(invalid)),
			)
		}
	}

	return err
}

// pushData flattens the payload data into the string map push gateways require.
func pushData(p Payload) map[string]string {
	data := make(map[string]string, len(p.Data)+2)
	for k, v := range p.Data {
		if s, ok := v.(string); ok {
			data[k] = s
			continue
		}
		data[k] = fmt.Sprint(v)
	}
	if p.NotificationID != "" {
		data["notification_id"] = p.NotificationID
	}
	data["type"] = string(p.Type)
	return data
}
