// Package mongo connects to MongoDB with bounded retries and exposes a
// readiness probe.
//
//	db, err := mongo.ConnectDatabase(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	health := mongo.Healthcheck(db.Client())
//
// Config is loaded from MONGODB_* environment variables. ConnectTimeout also
// bounds server selection, so an unreachable cluster fails each attempt quickly.
package mongo
