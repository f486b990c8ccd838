package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/dmitrymomot/courier/pkg/logger"
)

// Open opens (or creates) the database described by cfg.
func Open(cfg Config, log *slog.Logger) (*badger.DB, error) {
	if log == nil {
		log = logger.Discard()
	}

	opts := badger.DefaultOptions(cfg.Path).WithLogger(badgerLogger{log: log})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(ErrOpen, err)
	}
	return db, nil
}

// RunGC reclaims value log space every interval until ctx is done.
// The returned function fits errgroup.Go.
func RunGC(ctx context.Context, db *badger.DB, interval time.Duration) func() error {
	return func() error {
		if interval <= 0 || db.Opts().InMemory {
			<-ctx.Done()
			return nil
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				// Rewrite files until nothing is left to collect.
				for db.RunValueLogGC(0.5) == nil {
				}
			}
		}
	}
}

// Healthcheck returns a readiness probe that fails once the database is closed.
func Healthcheck(db *badger.DB) func(context.Context) error {
	return func(context.Context) error {
		if db.IsClosed() {
			return fmt.Errorf("%w: database is closed", ErrStorage)
		}
		return nil
	}
}

const maxConflictRetries = 10

// update runs fn in a read-write transaction, retrying on conflicts with
// concurrent transactions.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for range maxConflictRetries {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return errors.Join(ErrCodec, err)
		}
		return nil
	})
}

func setJSON(txn *badger.Txn, key []byte, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Join(ErrCodec, err)
	}
	e := badger.NewEntry(key, data)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return txn.SetEntry(e)
}

// scan decodes every value under prefix.
func scan[T any](txn *badger.Txn, prefix []byte, fn func(key []byte, v T) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var v T
		err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
		if err != nil {
			return errors.Join(ErrCodec, err)
		}
		if err := fn(item.KeyCopy(nil), v); err != nil {
			return err
		}
	}
	return nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// badgerLogger routes badger output through slog. Info is logged at debug
// level and debug is dropped.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...), logger.Component("badger"))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...), logger.Component("badger"))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...), logger.Component("badger"))
}

func (l badgerLogger) Debugf(string, ...any) {}
