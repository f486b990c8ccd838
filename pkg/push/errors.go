package push

import "errors"

var (
	// ErrInvalidToken marks a per-token failure caused by an unregistered or malformed token.
	ErrInvalidToken = errors.New("push: invalid or unregistered device token")

	// ErrGatewayUnavailable is returned when no token could be reached because of transport failures.
	ErrGatewayUnavailable = errors.New("push: gateway unavailable")

	ErrNoTokens        = errors.New("push: message has no tokens")
	ErrInvalidConfig   = errors.New("push: invalid configuration")
	ErrCircuitOpen     = errors.New("push: circuit breaker open")
	ErrUnexpectedReply = errors.New("push: unexpected gateway reply")
)
