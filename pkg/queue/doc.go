// Package queue implements the persistent retry queue of the notification engine.
//
// Every delivery that failed synchronously, or that a caller only wants
// delivered best-effort, becomes one Entry: a self-contained copy of the
// payload for one (user, channel) pair. Entries move through
//
//	pending -> sending -> sent | pending (retry) | failed
//
// and never leave sent or failed.
//
// # Components
//
//   - Queue.Enqueue writes a pending entry due immediately. When the durable
//     Storage rejects the write, the entry is held in a bounded in-memory
//     fallback, the incident is logged at error level, and DrainFallback later
//     moves it back. Fallback entries are lost on restart.
//   - Processor ticks on a fixed interval (30s by default). Each tick claims due
//     entries with Storage.ClaimDue, which is atomic per entry, attempts them in
//     parallel up to a concurrency limit, and records the outcome.
//
// A failed attempt increments RetryCount. At MaxRetries (5) the entry is
// failed; otherwise it is due again at LastAttempt + Backoff(RetryCount), with
// the backoff table 2s, 4s, 8s, 16s, 30s.
//
// # Usage
//
//	q, err := queue.New(store, queue.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	svc := notifications.NewService(notifStore, prefs, q, notifications.WithAdapters(adapters...))
//
//	proc, err := queue.NewProcessor(q, adapters, cfg.ProcessorOptions()...)
//	if err != nil {
//	    return err
//	}
//	g.Go(proc.Run(ctx))
//
// Running several processors against one store is safe from double claims but
// gives no ordering or exactly-once guarantees; delivery is at-least-once.
package queue
