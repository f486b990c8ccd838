// Package metrics exports Prometheus metrics of the delivery engine.
//
// A single Metrics value is passed to every component that reports:
//
//	m := metrics.New(nil)
//	svc := notifications.NewService(store, prefs, q, notifications.WithRecorder(m))
//	q, _ := queue.New(queueStore, queue.WithRecorder(m))
//	hub := realtime.NewHub(realtime.WithConnectionsHook(m.Connections))
//	router.Handle("/metrics", m.Handler())
//
// Collectors are registered on an injectable registry so tests can create
// isolated instances.
package metrics
