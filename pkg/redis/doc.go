// Package redis connects to Redis with bounded retries and exposes a
// readiness probe. Config is read from REDIS_* environment variables.
//
//	client, err := redis.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
