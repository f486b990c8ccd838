package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("mongo: server unreachable")
	ErrHealthcheckFailed      = errors.New("mongo: healthcheck failed")
	ErrEmptyDatabase          = errors.New("mongo: database name is empty")
)
