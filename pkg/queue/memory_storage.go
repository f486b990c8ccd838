package queue

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStorage is an in-process Storage.
//
// With a capacity it is bounded: inserting into a full store evicts the oldest
// terminal entry, or the oldest pending entry when there is none. Entries that
// are being sent are never evicted. This mode backs the fallback queue and is
// lossy across restarts.
type MemoryStorage struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	order    []string // insertion order
	capacity int
	onEvict  func(Entry)
}

// MemoryOption configures a MemoryStorage.
type MemoryOption func(*MemoryStorage)

// WithCapacity bounds the number of stored entries. Zero means unbounded.
func WithCapacity(n int) MemoryOption {
	return func(s *MemoryStorage) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithEvictHook is called, outside the lock, for every evicted entry.
func WithEvictHook(fn func(Entry)) MemoryOption {
	return func(s *MemoryStorage) {
		s.onEvict = fn
	}
}

// NewMemoryStorage creates an in-memory queue store.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	s := &MemoryStorage{entries: make(map[string]*Entry)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of stored entries.
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CountPending returns the number of entries not yet in a terminal state.
func (s *MemoryStorage) CountPending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if !e.Status.IsTerminal() {
			n++
		}
	}
	return n
}

func (s *MemoryStorage) Insert(ctx context.Context, e Entry) error {
	if e.ID == "" || e.UserID == "" || !e.Status.Valid() {
		return ErrInvalidEntry
	}

	s.mu.Lock()
	if _, exists := s.entries[e.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, e.ID)
	}

	var evicted *Entry
	if s.capacity > 0 && len(s.entries) >= s.capacity {
		evicted = s.evictLocked()
		if evicted == nil {
			s.mu.Unlock()
			return ErrQueueFull
		}
	}

	entry := e
	s.entries[e.ID] = &entry
	s.order = append(s.order, e.ID)
	s.mu.Unlock()

	if evicted != nil && s.onEvict != nil {
		s.onEvict(*evicted)
	}
	return nil
}

// evictLocked removes the oldest terminal entry, else the oldest pending one.
func (s *MemoryStorage) evictLocked() *Entry {
	victim := -1
	for i, id := range s.order {
		if s.entries[id].Status.IsTerminal() {
			victim = i
			break
		}
	}
	if victim < 0 {
		for i, id := range s.order {
			if s.entries[id].Status == StatusPending {
				victim = i
				break
			}
		}
	}
	if victim < 0 {
		return nil
	}

	id := s.order[victim]
	e := s.entries[id]
	delete(s.entries, id)
	s.order = slices.Delete(s.order, victim, victim+1)
	return e
}

func (s *MemoryStorage) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	out := *e
	return &out, nil
}

func (s *MemoryStorage) ClaimDue(ctx context.Context, now time.Time, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*Entry, 0)
	for _, id := range s.order {
		if e := s.entries[id]; e.Due(now) {
			due = append(due, e)
		}
	}
	slices.SortStableFunc(due, func(a, b *Entry) int {
		return a.NextRetry.Compare(b.NextRetry)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]Entry, 0, len(due))
	for _, e := range due {
		at := now
		e.Status = StatusSending
		e.LastAttempt = &at
		claimed = append(claimed, *e)
	}
	return claimed, nil
}

// transitionLocked loads id and checks it may move to status `to`.
func (s *MemoryStorage) transitionLocked(id string, to Status) (*Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	if !CanTransition(e.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, to)
	}
	return e, nil
}

func (s *MemoryStorage) MarkSent(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.transitionLocked(id, StatusSent)
	if err != nil {
		return err
	}
	e.Status = StatusSent
	e.FinishedAt = &at
	return nil
}

func (s *MemoryStorage) MarkRetry(ctx context.Context, id string, retryCount int, nextRetry time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.transitionLocked(id, StatusPending)
	if err != nil {
		return err
	}
	e.Status = StatusPending
	e.RetryCount = retryCount
	e.NextRetry = nextRetry
	e.Error = &errMsg
	return nil
}

func (s *MemoryStorage) MarkFailed(ctx context.Context, id string, retryCount int, errMsg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.transitionLocked(id, StatusFailed)
	if err != nil {
		return err
	}
	e.Status = StatusFailed
	e.RetryCount = retryCount
	e.Error = &errMsg
	e.FinishedAt = &at
	return nil
}

func (s *MemoryStorage) RequeueStale(ctx context.Context, before, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if e.Status == StatusSending && e.LastAttempt != nil && e.LastAttempt.Before(before) {
			e.Status = StatusPending
			e.NextRetry = now
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0)
	skipped := 0
	for _, id := range s.order {
		e := s.entries[id]
		if !opts.Match(*e) {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		out = append(out, *e)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(s.entries, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

func (s *MemoryStorage) CountByStatus(ctx context.Context) (map[Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[Status]int, len(AllStatuses))
	for _, st := range AllStatuses {
		counts[st] = 0
	}
	for _, e := range s.entries {
		counts[e.Status]++
	}
	return counts, nil
}

// PurgeFinished deletes terminal entries finished before the cutoff.
func (s *MemoryStorage) PurgeFinished(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		e := s.entries[id]
		if e.Status.IsTerminal() && e.FinishedAt != nil && e.FinishedAt.Before(before) {
			delete(s.entries, id)
			n++
			return true
		}
		return false
	})
	return n, nil
}

var (
	_ Storage = (*MemoryStorage)(nil)
	_ Purger  = (*MemoryStorage)(nil)
)
