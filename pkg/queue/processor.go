package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/notifications"
)

// Processor periodically claims due entries and retries their delivery
// through the matching channel adapter.
type Processor struct {
	queue    *Queue
	adapters map[notifications.Channel]notifications.Adapter

	interval       time.Duration
	batchSize      int
	concurrency    int
	attemptTimeout time.Duration
	staleAfter     time.Duration
	retention      time.Duration
	recorder       notifications.Recorder
	logger         *slog.Logger
	now            func() time.Time

	tickMu sync.Mutex // serializes ticks
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type nopDeliveryRecorder struct{}

func (nopDeliveryRecorder) NotificationCreated(notifications.Type)                               {}
func (nopDeliveryRecorder) DeliveryAttempt(notifications.Channel, string, error, time.Duration) {}

// NewProcessor creates a processor for q dispatching to adapters by channel.
func NewProcessor(q *Queue, adapters []notifications.Adapter, opts ...ProcessorOption) (*Processor, error) {
	if q == nil {
		return nil, ErrStorageNil
	}

	o := &processorOptions{
		interval:       30 * time.Second,
		batchSize:      100,
		concurrency:    10,
		attemptTimeout: 30 * time.Second,
		retention:      30 * 24 * time.Hour,
		recorder:       nopDeliveryRecorder{},
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.staleAfter == 0 {
		o.staleAfter = 2 * o.attemptTimeout
	}

	byChannel := make(map[notifications.Channel]notifications.Adapter, len(adapters))
	for _, a := range adapters {
		if a != nil {
			byChannel[a.Channel()] = a
		}
	}
	if len(byChannel) == 0 {
		return nil, ErrNoAdapters
	}

	return &Processor{
		queue:          q,
		adapters:       byChannel,
		interval:       o.interval,
		batchSize:      o.batchSize,
		concurrency:    o.concurrency,
		attemptTimeout: o.attemptTimeout,
		staleAfter:     o.staleAfter,
		retention:      o.retention,
		recorder:       o.recorder,
		logger:         o.logger,
		now:            o.now,
	}, nil
}

// Start runs the tick loop in the background until Stop or ctx cancellation.
// A goroutine-driven ticker does not keep the process alive on its own.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)

	p.logger.LogAttrs(ctx, slog.LevelInfo, "queue processor started",
		slog.Duration("interval", p.interval),
		slog.Int("batch_size", p.batchSize),
		slog.Int("concurrency", p.concurrency),
	)
	return nil
}

// Stop cancels the loop and waits for the current tick to finish.
func (p *Processor) Stop() error {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return ErrNotStarted
	}
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	cancel()
	<-done

	p.logger.Info("queue processor stopped")
	return nil
}

// Run starts the processor and returns a function suitable for errgroup.
func (p *Processor) Run(ctx context.Context) func() error {
	return func() error {
		if err := p.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return p.Stop()
	}
}

func (p *Processor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := p.Tick(ctx)
			if err != nil {
				p.logger.LogAttrs(ctx, slog.LevelError, "queue tick failed", logger.Error(err))
			}
			if res.Claimed > 0 {
				p.logger.LogAttrs(ctx, slog.LevelDebug, "queue tick finished",
					slog.Int("claimed", res.Claimed),
					slog.Int("sent", res.Sent),
					slog.Int("retried", res.Retried),
					slog.Int("failed", res.Failed),
				)
			}
		}
	}
}

// Tick runs one processing pass: drain the fallback queue, recover stale
// entries, claim due entries from the durable store and the fallback, attempt
// each, then purge expired terminal entries. Attempts already started are not
// interrupted when ctx is cancelled.
func (p *Processor) Tick(ctx context.Context) (TickResult, error) {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	var (
		res  TickResult
		errs []error
	)
	store, fallback := p.queue.Store(), p.queue.Fallback()

	drained, err := p.queue.DrainFallback(ctx)
	if err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "durable store still rejecting fallback entries",
			logger.Error(err),
		)
	}
	res.Drained = drained

	now := p.now()
	for _, s := range []Storage{store, fallback} {
		n, err := s.RequeueStale(ctx, now.Add(-p.staleAfter), now)
		if err != nil {
			errs = append(errs, fmt.Errorf("requeue stale entries: %w", err))
			continue
		}
		res.Requeued += n
	}

	var sent, retried, failed atomic.Int32
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)

	claim := func(s Storage, limit int) int {
		entries, err := s.ClaimDue(ctx, now, limit)
		if err != nil {
			if s == store {
				res.StoreDown = true
			}
			errs = append(errs, fmt.Errorf("claim due entries: %w", err))
			return 0
		}
		for _, e := range entries {
			p.queue.recorder.EntryTransition(e.Channel, StatusSending)
			sem <- struct{}{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()

				switch p.process(ctx, s, e) {
				case StatusSent:
					sent.Add(1)
				case StatusPending:
					retried.Add(1)
				case StatusFailed:
					failed.Add(1)
				}
			}()
		}
		return len(entries)
	}

	res.Claimed = claim(store, p.batchSize)
	if remaining := p.batchSize - res.Claimed; remaining > 0 {
		res.Claimed += claim(fallback, remaining)
	}
	wg.Wait()

	res.Sent, res.Retried, res.Failed = int(sent.Load()), int(retried.Load()), int(failed.Load())

	if p.retention > 0 {
		cutoff := p.now().Add(-p.retention)
		for _, s := range []Storage{store, fallback} {
			purger, ok := s.(Purger)
			if !ok {
				continue
			}
			n, err := purger.PurgeFinished(ctx, cutoff)
			if err != nil {
				errs = append(errs, fmt.Errorf("purge finished entries: %w", err))
				continue
			}
			res.Purged += n
		}
	}

	p.queue.recorder.FallbackDepth(fallback.CountPending())
	return res, errors.Join(errs...)
}

// process attempts one claimed entry and records the outcome in s.
// It returns the status the entry moved to, or "" if recording failed.
func (p *Processor) process(ctx context.Context, s Storage, e Entry) Status {
	attrs := []slog.Attr{
		logger.EntryID(e.ID),
		logger.UserID(e.UserID),
		logger.Channel(e.Channel.String()),
		logger.NotificationID(e.Payload.NotificationID),
	}

	// Recording the outcome must survive processor shutdown.
	storeCtx := context.WithoutCancel(ctx)

	adapter, ok := p.adapters[e.Channel]
	if !ok {
		retries := min(e.RetryCount+1, MaxRetries)
		if err := s.MarkFailed(storeCtx, e.ID, retries, ErrNoAdapter.Error(), p.now()); err != nil {
			p.logRecordError(ctx, attrs, err)
			return ""
		}
		p.logger.LogAttrs(ctx, slog.LevelError, "queue entry failed: no adapter for channel", attrs...)
		p.queue.recorder.EntryTransition(e.Channel, StatusFailed)
		return StatusFailed
	}

	start := time.Now()
	err := p.attempt(ctx, adapter, e)
	p.recorder.DeliveryAttempt(e.Channel, notifications.SourceQueue, err, time.Since(start))

	if err == nil {
		if err := s.MarkSent(storeCtx, e.ID, p.now()); err != nil {
			p.logRecordError(ctx, attrs, err)
			return ""
		}
		p.logger.LogAttrs(ctx, slog.LevelInfo, "queued delivery succeeded",
			append(attrs, logger.RetryCount(e.RetryCount))...)
		p.queue.recorder.EntryTransition(e.Channel, StatusSent)
		return StatusSent
	}

	retries := e.RetryCount + 1
	attrs = append(attrs, logger.RetryCount(retries), logger.Error(err))

	if retries >= MaxRetries {
		if err := s.MarkFailed(storeCtx, e.ID, retries, err.Error(), p.now()); err != nil {
			p.logRecordError(ctx, attrs, err)
			return ""
		}
		p.logger.LogAttrs(ctx, slog.LevelError, "queued delivery failed permanently", attrs...)
		p.queue.recorder.EntryTransition(e.Channel, StatusFailed)
		return StatusFailed
	}

	lastAttempt := p.now()
	if e.LastAttempt != nil {
		lastAttempt = *e.LastAttempt
	}
	next := lastAttempt.Add(Backoff(retries))
	if err := s.MarkRetry(storeCtx, e.ID, retries, next, err.Error()); err != nil {
		p.logRecordError(ctx, attrs, err)
		return ""
	}
	p.logger.LogAttrs(ctx, slog.LevelWarn, "queued delivery failed, will retry",
		append(attrs, slog.Time("next_retry", next))...)
	p.queue.recorder.EntryTransition(e.Channel, StatusPending)
	return StatusPending
}

// attempt calls the adapter with a per-attempt timeout, converting panics into errors.
func (p *Processor) attempt(ctx context.Context, a notifications.Adapter, e Entry) (err error) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.attemptTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s adapter: %v", e.Channel, r)
		}
	}()

	return a.Deliver(actx, e.UserID, e.Payload)
}

func (p *Processor) logRecordError(ctx context.Context, attrs []slog.Attr, err error) {
	p.logger.LogAttrs(ctx, slog.LevelError, "failed to record queue entry outcome",
		append(attrs, slog.String("record_error", err.Error()))...)
}
