// Package logger builds *slog.Logger instances for the delivery engine and
// provides attribute helpers so every component names its fields the same way.
//
// Loggers are never global inside the engine: the notification service, the
// queue processor and the channel adapters each receive a logger through a
// functional option, so tests can pass a logger writing into a buffer.
//
// # Usage
//
//	log := logger.New(logger.WithEnvironment("production", "courier"))
//	log.WarnContext(ctx, "email delivery failed",
//	    logger.UserID(userID),
//	    logger.Channel("email"),
//	    logger.RetryCount(2),
//	    logger.Error(err),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
