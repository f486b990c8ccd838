// Package async provides generic helpers for running computations concurrently
// and collecting their results.
//
// Async starts a function in its own goroutine and returns a *Future. The caller
// waits with Await, bounds the wait with AwaitWithTimeout, or polls IsComplete.
// Settle waits for a group of futures and reports every outcome, which is what
// fan-out code needs when one failure must not abort or hide its siblings.
//
// A context cancelled before the goroutine starts completes the Future with the
// context error. Panics in the callback are recovered and reported as ErrPanic.
//
//	futures := make([]*async.Future[string], 0, len(channels))
//	for _, ch := range channels {
//	    futures = append(futures, async.Async(ctx, ch, deliver))
//	}
//	for i, out := range async.Settle(futures...) {
//	    if out.Err != nil {
//	        log.Printf("channel %s failed: %v", channels[i], out.Err)
//	    }
//	}
package async
