// Package email provides a provider-agnostic interface for sending transactional emails
// with support for Postmark and templ-based templates.
//
// # Architecture
//
// The package is built around the EmailSender interface. Implementations:
//   - NewPostmarkSender for production delivery through Postmark
//   - NewDevSender for local development (writes HTML and JSON files to disk)
//   - NewBreakerSender, a circuit breaker decorator for any EmailSender
//
// All implementations validate parameters with SendEmailParams.Validate before
// anything leaves the process.
//
// # Usage
//
//	client, err := email.NewPostmarkSender(cfg)
//	if err != nil {
//	    return err
//	}
//	sender := email.NewBreakerSender(client, email.WithBreakerThreshold(5))
//
//	html, err := templates.Render(ctx, templates.Notification(templates.NotificationData{
//	    Title:     "New message",
//	    Body:      "Hi",
//	    ActionURL: "https://app.example.com/messages/42",
//	}))
//	if err != nil {
//	    return err
//	}
//
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "user@example.com",
//	    Subject:  "New message",
//	    BodyHTML: html,
//	})
//
// # Error Handling
//
//   - ErrInvalidConfig: configuration validation failed
//   - ErrInvalidParams: email parameters validation failed (permanent)
//   - ErrRecipientRejected: the provider refused the address (permanent)
//   - ErrFailedToSendEmail: provider rejected or could not be reached (transient)
//   - ErrCircuitOpen: the breaker is open and the call was not attempted (transient)
package email
