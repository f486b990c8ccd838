package ingest

import "errors"

var (
	ErrMissingContentType   = errors.New("missing content type")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrInvalidJSON          = errors.New("invalid JSON")
	ErrInvalidMode          = errors.New("invalid delivery mode")
	ErrTokenRequired        = errors.New("device token is required")
	ErrDevicesDisabled      = errors.New("device registration is not configured")
)
