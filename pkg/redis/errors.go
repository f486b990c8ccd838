package redis

import "errors"

var (
	ErrEmptyConnectionURL           = errors.New("redis: connection url is empty (REDIS_URL)")
	ErrFailedToParseRedisConnString = errors.New("redis: invalid connection url")
	ErrRedisNotReady                = errors.New("redis: server did not answer PING in time")
	ErrHealthcheckFailed            = errors.New("redis: healthcheck failed")
)
