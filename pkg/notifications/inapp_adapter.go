package notifications

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/courier/pkg/logger"
)

// InAppAdapter pushes notifications over open in-app connections.
type InAppAdapter struct {
	registry ConnectionRegistry
	logger   *slog.Logger
}

// InAppAdapterOption configures an InAppAdapter.
type InAppAdapterOption func(*InAppAdapter)

// WithInAppLogger sets the logger for the InAppAdapter.
func WithInAppLogger(logger *slog.Logger) InAppAdapterOption {
	return func(a *InAppAdapter) {
		a.logger = logger
	}
}

// NewInAppAdapter creates an adapter over the connection registry.
func NewInAppAdapter(registry ConnectionRegistry, opts ...InAppAdapterOption) *InAppAdapter {
	a := &InAppAdapter{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *InAppAdapter) Channel() Channel { return ChannelInApp }

// Deliver writes the payload to the user's connections.
// A user without an open connection is not an error: the stored record is
// fetched later by polling.
func (a *InAppAdapter) Deliver(ctx context.Context, userID string, p Payload) error {
	if a.registry == nil {
		return ErrRegistryUnavailable
	}

	delivered, err := a.registry.SendToUser(ctx, userID, InAppEvent{Event: EventNotification, Data: p})
	if err != nil {
		return errors.Join(ErrRegistryUnavailable, err)
	}
	if !delivered {
		a.logger.LogAttrs(ctx, slog.LevelDebug, "no open in-app connection",
			logger.UserID(userID),
			logger.NotificationID(p.NotificationID),
		)
	}
	return nil
}
