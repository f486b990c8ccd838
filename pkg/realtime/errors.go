package realtime

import "errors"

var (
	ErrHubClosed     = errors.New("realtime: hub is closed")
	ErrUnauthorized  = errors.New("realtime: unable to resolve user")
	ErrEncodeMessage = errors.New("realtime: failed to encode message")
	ErrSlowConsumer  = errors.New("realtime: every connection of the user is too slow")
)
