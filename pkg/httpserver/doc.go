// Package httpserver runs the service's operational HTTP surface: liveness
// and readiness probes, the Prometheus scrape endpoint and the websocket
// upgrade endpoint for in-app delivery.
//
// Server wraps http.Server with graceful shutdown tied to a context, which
// fits an errgroup:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	router := httpserver.NewRouter(log, httpserver.Routes{
//		Realtime: hub.Handler(realtime.HeaderUserResolver(cfg.HTTP.UserHeader)),
//		Metrics:  m.Handler(),
//		Checks: []httpserver.Check{
//			{Name: "mongo", Func: mongo.Healthcheck(client)},
//		},
//		ProbeTimeout: cfg.HTTP.ProbeTimeout,
//	})
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// Run wraps listen errors with ErrStart and Shutdown wraps shutdown errors
// with ErrShutdown.
package httpserver
