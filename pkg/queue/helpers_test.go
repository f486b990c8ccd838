package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/queue"
)

var errStoreDown = errors.New("store down")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyStore fails writes and claims while down is set.
type flakyStore struct {
	*queue.MemoryStorage
	down atomic.Bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStorage: queue.NewMemoryStorage()}
}

func (s *flakyStore) Insert(ctx context.Context, e queue.Entry) error {
	if s.down.Load() {
		return errStoreDown
	}
	return s.MemoryStorage.Insert(ctx, e)
}

func (s *flakyStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]queue.Entry, error) {
	if s.down.Load() {
		return nil, errStoreDown
	}
	return s.MemoryStorage.ClaimDue(ctx, now, limit)
}

// stubAdapter returns err (or panics with panicMsg) and counts calls.
type stubAdapter struct {
	ch       notifications.Channel
	mu       sync.Mutex
	err      error
	panicMsg string
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (a *stubAdapter) Channel() notifications.Channel { return a.ch }

func (a *stubAdapter) Deliver(ctx context.Context, userID string, p notifications.Payload) error {
	a.calls.Add(1)
	cur := a.inFlight.Add(1)
	defer a.inFlight.Add(-1)
	for {
		peak := a.peak.Load()
		if cur <= peak || a.peak.CompareAndSwap(peak, cur) {
			break
		}
	}

	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	if a.panicMsg != "" {
		panic(a.panicMsg)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *stubAdapter) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

type countingRecorder struct {
	mu          sync.Mutex
	transitions map[queue.Status]int
	depth       int
}

func (r *countingRecorder) EntryTransition(_ notifications.Channel, to queue.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transitions == nil {
		r.transitions = make(map[queue.Status]int)
	}
	r.transitions[to]++
}

func (r *countingRecorder) FallbackDepth(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.depth = n
}

func (r *countingRecorder) count(s queue.Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitions[s]
}

func (r *countingRecorder) fallbackDepth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.depth
}
