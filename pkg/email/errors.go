package email

import "errors"

var (
	ErrFailedToSendEmail = errors.New("email.errors.failed_to_send")
	ErrInvalidConfig     = errors.New("email.errors.invalid_config")
	ErrInvalidParams     = errors.New("email.errors.invalid_params")

	// ErrRecipientRejected means the provider refused the address itself.
	// Resending the same message will not succeed.
	ErrRecipientRejected = errors.New("email.errors.recipient_rejected")

	// ErrCircuitOpen is returned by BreakerSender while the transport is considered down.
	ErrCircuitOpen = errors.New("email.errors.circuit_open")
)
