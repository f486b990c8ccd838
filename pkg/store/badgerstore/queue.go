package badgerstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dmitrymomot/courier/pkg/queue"
)

const queuePrefix = "queue:"

func entryKey(id string) []byte {
	return []byte(queuePrefix + id)
}

// QueueStore is a queue.Storage on badger. Terminal entries are rewritten
// with a TTL of the retention period and expire on their own.
type QueueStore struct {
	db        *badger.DB
	retention time.Duration

	claimMu sync.Mutex // keeps local claims from conflicting with each other
}

// NewQueueStore creates a queue store on db. A non-positive retention keeps
// terminal entries forever.
func NewQueueStore(db *badger.DB, retention time.Duration) *QueueStore {
	return &QueueStore{db: db, retention: retention}
}

func (s *QueueStore) Insert(ctx context.Context, e queue.Entry) error {
	if e.ID == "" || e.UserID == "" || !e.Status.Valid() {
		return queue.ErrInvalidEntry
	}

	err := update(s.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(entryKey(e.ID)); err == nil {
			return fmt.Errorf("%w: %s", queue.ErrDuplicateEntry, e.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, entryKey(e.ID), e, s.ttl(e.Status))
	})
	if errors.Is(err, queue.ErrDuplicateEntry) {
		return err
	}
	return wrap(err)
}

func (s *QueueStore) ttl(st queue.Status) time.Duration {
	if st.IsTerminal() {
		return s.retention
	}
	return 0
}

func (s *QueueStore) Get(ctx context.Context, id string) (*queue.Entry, error) {
	var e queue.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, entryKey(id), &e)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, queue.ErrEntryNotFound
	}
	if err != nil {
		return nil, wrap(err)
	}
	return &e, nil
}

func scanEntries(txn *badger.Txn, match func(queue.Entry) bool) ([]queue.Entry, error) {
	out := make([]queue.Entry, 0)
	err := scan(txn, []byte(queuePrefix), func(_ []byte, e queue.Entry) error {
		if match(e) {
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// ClaimDue selects and flips due entries inside one transaction.
func (s *QueueStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]queue.Entry, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	var claimed []queue.Entry
	err := update(s.db, func(txn *badger.Txn) error {
		due, err := scanEntries(txn, func(e queue.Entry) bool { return e.Due(now) })
		if err != nil {
			return err
		}
		slices.SortStableFunc(due, func(a, b queue.Entry) int {
			return cmp.Or(a.NextRetry.Compare(b.NextRetry), a.CreatedAt.Compare(b.CreatedAt))
		})
		if limit > 0 && len(due) > limit {
			due = due[:limit]
		}

		for i := range due {
			at := now
			due[i].Status = queue.StatusSending
			due[i].LastAttempt = &at
			if err := setJSON(txn, entryKey(due[i].ID), due[i], 0); err != nil {
				return err
			}
		}
		claimed = due
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}
	return claimed, nil
}

// transition loads id, checks it may move to `to`, applies fn and writes it back.
func (s *QueueStore) transition(id string, to queue.Status, fn func(e *queue.Entry)) error {
	err := update(s.db, func(txn *badger.Txn) error {
		var e queue.Entry
		if err := getJSON(txn, entryKey(id), &e); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return queue.ErrEntryNotFound
			}
			return err
		}
		if !queue.CanTransition(e.Status, to) {
			return fmt.Errorf("%w: %s -> %s", queue.ErrInvalidTransition, e.Status, to)
		}
		e.Status = to
		fn(&e)
		return setJSON(txn, entryKey(id), e, s.ttl(to))
	})
	if errors.Is(err, queue.ErrEntryNotFound) || errors.Is(err, queue.ErrInvalidTransition) {
		return err
	}
	return wrap(err)
}

func (s *QueueStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	return s.transition(id, queue.StatusSent, func(e *queue.Entry) {
		e.FinishedAt = &at
	})
}

func (s *QueueStore) MarkRetry(ctx context.Context, id string, retryCount int, nextRetry time.Time, errMsg string) error {
	return s.transition(id, queue.StatusPending, func(e *queue.Entry) {
		e.RetryCount = retryCount
		e.NextRetry = nextRetry
		e.Error = &errMsg
	})
}

func (s *QueueStore) MarkFailed(ctx context.Context, id string, retryCount int, errMsg string, at time.Time) error {
	return s.transition(id, queue.StatusFailed, func(e *queue.Entry) {
		e.RetryCount = retryCount
		e.Error = &errMsg
		e.FinishedAt = &at
	})
}

func (s *QueueStore) RequeueStale(ctx context.Context, before, now time.Time) (int, error) {
	n := 0
	err := update(s.db, func(txn *badger.Txn) error {
		n = 0
		stale, err := scanEntries(txn, func(e queue.Entry) bool {
			return e.Status == queue.StatusSending && e.LastAttempt != nil && e.LastAttempt.Before(before)
		})
		if err != nil {
			return err
		}
		for _, e := range stale {
			e.Status = queue.StatusPending
			e.NextRetry = now
			if err := setJSON(txn, entryKey(e.ID), e, 0); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, wrap(err)
	}
	return n, nil
}

func (s *QueueStore) List(ctx context.Context, opts queue.ListOptions) ([]queue.Entry, error) {
	var list []queue.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		list, err = scanEntries(txn, opts.Match)
		return err
	})
	if err != nil {
		return nil, wrap(err)
	}

	slices.SortStableFunc(list, func(a, b queue.Entry) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	start := min(opts.Offset, len(list))
	end := len(list)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(list))
	}
	return list[start:end], nil
}

func (s *QueueStore) Delete(ctx context.Context, id string) error {
	err := update(s.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(entryKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return queue.ErrEntryNotFound
			}
			return err
		}
		return txn.Delete(entryKey(id))
	})
	if errors.Is(err, queue.ErrEntryNotFound) {
		return err
	}
	return wrap(err)
}

func (s *QueueStore) CountByStatus(ctx context.Context) (map[queue.Status]int, error) {
	counts := make(map[queue.Status]int, len(queue.AllStatuses))
	for _, st := range queue.AllStatuses {
		counts[st] = 0
	}
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, []byte(queuePrefix), func(_ []byte, e queue.Entry) error {
			counts[e.Status]++
			return nil
		})
	})
	if err != nil {
		return nil, wrap(err)
	}
	return counts, nil
}

var _ queue.Storage = (*QueueStore)(nil)
