// Package notifications is the core of the multi-channel notification engine.
//
// A Service records every notification in a Storage, resolves the user's
// Preferences and delivers the notification through channel Adapters (in-app,
// email, push) synchronously and in parallel. A channel that fails is handed to
// a RetryQueue as an independent delivery obligation; one failing channel never
// aborts its siblings and is never reported to the caller. The only error Send
// returns besides validation is a failed notification store write.
//
// # Adapters
//
// Adapters distinguish "no target" from "could not reach the target":
//
//   - InAppAdapter: no open connection returns nil, a registry failure is an error.
//   - EmailAdapter: unknown users or missing addresses return nil, transport failures are errors.
//   - PushAdapter: no gateway or no device tokens return nil; invalid tokens are
//     deactivated without failing the delivery; a wholesale gateway failure is an error.
//
// # Usage
//
//	svc := notifications.NewService(storage, prefs, retryQueue,
//	    notifications.WithServiceLogger(log),
//	    notifications.WithAdapters(
//	        notifications.NewInAppAdapter(hub),
//	        notifications.NewEmailAdapter(directory, sender, notifications.WithBaseURL(appURL)),
//	        notifications.NewPushAdapter(gateway, directory),
//	    ),
//	)
//
//	notif, err := svc.Send(ctx, userID, notifications.Content{
//	    Type:  notifications.TypeMessage,
//	    Title: "New message",
//	    Body:  "Hi",
//	    Data:  map[string]any{"url": "/messages/42"},
//	})
//
// Content.Channels overrides the user's preferences when non-nil, which is how
// forced system alerts are sent.
//
// In-memory implementations (MemoryStorage, MemoryPreferenceStore,
// MemoryDirectory) are provided for development and tests.
package notifications
