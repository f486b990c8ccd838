package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/dmitrymomot/courier/pkg/config"
	"github.com/dmitrymomot/courier/pkg/directory"
	"github.com/dmitrymomot/courier/pkg/httpserver"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/mongo"
	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/pg"
	"github.com/dmitrymomot/courier/pkg/queue"
	"github.com/dmitrymomot/courier/pkg/redis"
	"github.com/dmitrymomot/courier/pkg/store/badgerstore"
	"github.com/dmitrymomot/courier/pkg/store/mongostore"
	"github.com/dmitrymomot/courier/pkg/store/redisstore"
)

var errUnknownBackend = errors.New("unknown backend")

// backends holds the opened storage and its lifecycle hooks.
type backends struct {
	notifications notifications.Storage
	queue         queue.Storage
	prefs         notifications.PreferenceStore
	directory     directory.Store

	badger  *badger.DB // Set for the badger backend, for value log GC
	gcCfg   badgerstore.Config
	checks  []httpserver.Check
	closers []func(context.Context) error
}

func (b *backends) onClose(fn func(context.Context) error) {
	b.closers = append(b.closers, fn)
}

// close releases resources in reverse open order.
func (b *backends) close(ctx context.Context, log *slog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			log.LogAttrs(ctx, slog.LevelError, "failed to close backend", logger.Error(err))
		}
	}
}

// openBackends connects to the backends selected in cfg. On error everything
// opened so far is closed.
func openBackends(ctx context.Context, cfg appConfig, log *slog.Logger) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		if err != nil {
			b.close(context.WithoutCancel(ctx), log)
		}
	}()

	if err := b.openStorage(ctx, cfg, log); err != nil {
		return nil, err
	}
	if err := b.openPreferences(ctx, cfg, log); err != nil {
		return nil, err
	}
	if err := b.openDirectory(ctx, cfg, log); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *backends) openStorage(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	switch cfg.StorageBackend {
	case backendMongo:
		var mcfg mongo.Config
		if err := config.Load(&mcfg); err != nil {
			return err
		}
		db, err := mongo.ConnectDatabase(ctx, mcfg, log)
		if err != nil {
			return err
		}
		b.onClose(func(ctx context.Context) error { return db.Client().Disconnect(ctx) })
		if err := mongostore.EnsureIndexes(ctx, db, cfg.Queue.Retention); err != nil {
			return err
		}
		b.notifications = mongostore.NewNotificationStore(db)
		b.queue = mongostore.NewQueueStore(db)
		b.prefs = mongostore.NewPreferenceStore(db)
		b.checks = append(b.checks, httpserver.Check{Name: "mongo", Func: mongo.Healthcheck(db.Client())})

	case backendBadger:
		var bcfg badgerstore.Config
		if err := config.Load(&bcfg); err != nil {
			return err
		}
		db, err := badgerstore.Open(bcfg, log)
		if err != nil {
			return err
		}
		b.onClose(func(context.Context) error { return db.Close() })
		b.badger, b.gcCfg = db, bcfg
		b.notifications = badgerstore.NewNotificationStore(db)
		b.queue = badgerstore.NewQueueStore(db, cfg.Queue.Retention)
		b.prefs = badgerstore.NewPreferenceStore(db)
		b.checks = append(b.checks, httpserver.Check{Name: "badger", Func: badgerstore.Healthcheck(db)})

	default:
		log.LogAttrs(ctx, slog.LevelWarn, "using in-memory storage, notifications and retries are lost on restart")
		b.notifications = notifications.NewMemoryStorage()
		b.queue = queue.NewMemoryStorage()
		b.prefs = notifications.NewMemoryPreferenceStore()
	}
	return nil
}

func (b *backends) openPreferences(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	if cfg.PreferencesBackend != backendRedis {
		return nil
	}

	var rcfg redis.Config
	if err := config.Load(&rcfg); err != nil {
		return err
	}
	client, err := redis.Connect(ctx, rcfg, log)
	if err != nil {
		return err
	}
	b.onClose(func(context.Context) error { return client.Close() })
	b.prefs = redisstore.NewPreferenceStore(client)
	b.checks = append(b.checks, httpserver.Check{Name: "redis", Func: redis.Healthcheck(client)})
	return nil
}

func (b *backends) openDirectory(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	if cfg.DirectoryBackend != backendPostgres {
		log.LogAttrs(ctx, slog.LevelWarn, "using in-memory user directory, email and push have no recipients until registered")
		b.directory = notifications.NewMemoryDirectory()
		return nil
	}

	var pcfg pg.Config
	if err := config.Load(&pcfg); err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, pcfg, log)
	if err != nil {
		return err
	}
	b.onClose(func(context.Context) error { pool.Close(); return nil })

	if pcfg.AutoMigrate {
		if err := pg.Migrate(ctx, pool, directory.Migrations, directory.MigrationsDir, pcfg, log); err != nil {
			return err
		}
	}
	b.directory = directory.New(pool)

	var ccfg directory.CacheConfig
	if err := config.Load(&ccfg); err != nil {
		return err
	}
	if ccfg.Size > 0 {
		b.directory = directory.NewCached(b.directory, ccfg)
	}
	b.checks = append(b.checks, httpserver.Check{Name: "postgres", Func: pg.Healthcheck(pool)})
	return nil
}
