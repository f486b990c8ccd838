// Package pg bootstraps a pgx connection pool for the user directory.
//
// Connect retries with linear backoff until the database answers a ping.
// Migrate applies goose migrations from an fs.FS, so schemas can ship
// embedded in the binary:
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	pool, err := pg.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, migrations, "migrations", cfg, log); err != nil {
//		return err
//	}
//
// Healthcheck returns a readiness probe, and the Is*Error helpers classify
// driver errors without importing pgconn at call sites.
package pg
