// Command courier runs the notification delivery engine: the producer API,
// the websocket endpoint for in-app delivery, and the retry queue processor.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/courier/pkg/config"
	"github.com/dmitrymomot/courier/pkg/directory"
	"github.com/dmitrymomot/courier/pkg/email"
	"github.com/dmitrymomot/courier/pkg/httpserver"
	"github.com/dmitrymomot/courier/pkg/ingest"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/metrics"
	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/push"
	"github.com/dmitrymomot/courier/pkg/queue"
	"github.com/dmitrymomot/courier/pkg/realtime"
	"github.com/dmitrymomot/courier/pkg/store/badgerstore"
)

const serviceName = "courier"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(cfg.Env, serviceName),
		logger.WithContextExtractors(httpserver.RequestIDExtractor()),
	}
	if lvl, ok := cfg.logLevel(); ok {
		logOpts = append(logOpts, logger.WithLevel(lvl))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close(context.Background(), log)

	m := metrics.New(nil)
	m.Registry().MustRegister(metrics.NewQueueCollector(b.queue, 2*time.Second))

	hub := realtime.NewHub(cfg.hubOptions(log, m.Connections)...)

	adapters, err := buildAdapters(ctx, cfg, log, m, hub, b.directory)
	if err != nil {
		return err
	}

	q, err := queue.New(b.queue,
		queue.WithFallbackCapacity(cfg.Queue.FallbackCapacity),
		queue.WithRecorder(m),
		queue.WithLogger(log),
	)
	if err != nil {
		return err
	}

	processor, err := queue.NewProcessor(q, adapters,
		append(cfg.Queue.ProcessorOptions(),
			queue.WithDeliveryRecorder(m),
			queue.WithProcessorLogger(log),
		)...,
	)
	if err != nil {
		return err
	}

	svc := notifications.NewService(b.notifications, b.prefs, q,
		notifications.WithAdapters(adapters...),
		notifications.WithRecorder(m),
		notifications.WithServiceLogger(log),
	)

	router := httpserver.NewRouter(log, httpserver.Routes{
		Realtime:     hub.Handler(realtime.HeaderUserResolver(cfg.HTTP.UserHeader)),
		Metrics:      m.Handler(),
		Checks:       b.checks,
		ProbeTimeout: cfg.HTTP.ProbeTimeout,
	})
	router.Mount("/v1", ingest.New(svc,
		ingest.WithDevices(b.directory),
		ingest.WithLogger(log),
	).Routes())

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	log.LogAttrs(ctx, slog.LevelInfo, "starting",
		slog.String("storage", cfg.StorageBackend),
		slog.String("preferences", cfg.PreferencesBackend),
		slog.String("directory", cfg.DirectoryBackend),
		slog.Int("adapters", len(adapters)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, router) })
	g.Go(processor.Run(gctx))
	g.Go(func() error {
		<-gctx.Done()
		return hub.Close()
	})
	if b.badger != nil {
		g.Go(badgerstore.RunGC(gctx, b.badger, b.gcCfg.GCInterval))
	}

	err = g.Wait()
	log.LogAttrs(context.Background(), slog.LevelInfo, "stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// buildAdapters creates one adapter per configured channel. In-app is always
// available; push only when FCM credentials are set.
func buildAdapters(
	ctx context.Context,
	cfg appConfig,
	log *slog.Logger,
	m *metrics.Metrics,
	hub *realtime.Hub,
	dir directory.Store,
) ([]notifications.Adapter, error) {
	adapters := []notifications.Adapter{
		notifications.NewInAppAdapter(hub, notifications.WithInAppLogger(log)),
	}

	sender, err := emailSender(ctx, cfg.Email, log)
	if err != nil {
		return nil, err
	}
	sender = email.NewBreakerSender(sender,
		email.WithBreakerName("email"),
		email.WithBreakerThreshold(cfg.Email.BreakerMaxFailures),
		email.WithBreakerTimeout(cfg.Email.BreakerOpenTimeout),
		email.WithBreakerLogger(log),
		email.WithBreakerStateHook(m.BreakerStateChange),
	)
	adapters = append(adapters, notifications.NewEmailAdapter(dir, sender,
		notifications.WithEmailLogger(log),
		notifications.WithAppName(cfg.Name),
		notifications.WithBaseURL(cfg.BaseURL),
	))

	// Push stays registered without FCM so queued push entries settle as no-ops.
	var gateway notifications.PushGateway
	if cfg.Push.Enabled() {
		fcm, err := push.NewFCMClientFromConfig(ctx, cfg.Push, push.WithFCMLogger(log))
		if err != nil {
			return nil, err
		}
		gateway = push.NewBreakerGateway(fcm, cfg.Push.BreakerMaxFailures, cfg.Push.BreakerOpenTimeout, log, m.BreakerStateChange)
	} else {
		log.LogAttrs(ctx, slog.LevelInfo, "push channel disabled, no FCM credentials configured")
	}
	adapters = append(adapters, notifications.NewPushAdapter(gateway, dir, notifications.WithPushLogger(log)))

	return adapters, nil
}

// emailSender returns Postmark when tokens are configured and the file-writing
// dev sender otherwise.
func emailSender(ctx context.Context, cfg email.Config, log *slog.Logger) (email.EmailSender, error) {
	if cfg.PostmarkServerToken == "" {
		log.LogAttrs(ctx, slog.LevelWarn, "postmark not configured, writing emails to disk",
			slog.String("dir", cfg.DevOutputDir))
		return email.NewDevSender(cfg.DevOutputDir), nil
	}
	sender, err := email.NewPostmarkSender(cfg)
	if err != nil {
		return nil, err
	}
	return sender, nil
}
