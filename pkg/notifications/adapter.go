package notifications

import (
	"context"
	"time"

	"github.com/dmitrymomot/courier/pkg/push"
)

// Adapter delivers a payload to a user over one channel.
//
// Deliver returns nil both on success and when the channel has no target for
// the user (no open connection, no email address, no device tokens): there is
// nothing to retry in that case. A non-nil error means the delivery mechanism
// could not be reached and the attempt is worth retrying.
type Adapter interface {
	Channel() Channel
	Deliver(ctx context.Context, userID string, p Payload) error
}

// RetryQueue accepts delivery obligations that must be retried asynchronously.
type RetryQueue interface {
	Enqueue(ctx context.Context, userID string, ch Channel, p Payload) error
}

// ConnectionRegistry tracks live in-app connections.
type ConnectionRegistry interface {
	// SendToUser writes msg to every open connection of the user.
	// delivered is false when the user has no open connection.
	// An error means the registry itself could not be used.
	SendToUser(ctx context.Context, userID string, msg any) (delivered bool, err error)
}

// Recipient is the contact data of a user.
type Recipient struct {
	Email string
	Name  string
}

// RecipientDirectory resolves user contact data.
type RecipientDirectory interface {
	// Recipient returns ErrRecipientNotFound for unknown users.
	Recipient(ctx context.Context, userID string) (Recipient, error)
}

// DeviceTokenStore keeps push device tokens.
type DeviceTokenStore interface {
	ActiveDeviceTokens(ctx context.Context, userID string) ([]string, error)
	DeactivateDeviceTokens(ctx context.Context, tokens ...string) error
}

// PushGateway sends multicast push messages.
type PushGateway interface {
	SendMulticast(ctx context.Context, msg push.Message) (*push.BatchResponse, error)
}

// Delivery attempt sources.
const (
	SourceSync  = "sync"
	SourceQueue = "queue"
)

// Recorder observes the delivery pipeline, typically to export metrics.
type Recorder interface {
	NotificationCreated(t Type)
	DeliveryAttempt(ch Channel, source string, err error, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) NotificationCreated(Type)                               {}
func (nopRecorder) DeliveryAttempt(Channel, string, error, time.Duration) {}

// InAppEvent is the frame written to in-app connections.
type InAppEvent struct {
	Event string  `json:"event"`
	Data  Payload `json:"data"`
}

// EventNotification is the InAppEvent name for a new notification.
const EventNotification = "notification"
