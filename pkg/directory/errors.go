package directory

import "errors"

var (
	ErrQueryFailed   = errors.New("directory query failed")
	ErrTokenRequired = errors.New("device token is required")
)
