// Package directory resolves notification recipients and push device tokens
// from PostgreSQL.
//
// Directory implements notifications.RecipientDirectory and
// notifications.DeviceTokenStore. The schema ships as embedded goose
// migrations:
//
//	if err := pg.Migrate(ctx, pool, directory.Migrations, directory.MigrationsDir, cfg, log); err != nil {
//		return err
//	}
//	dir := directory.New(pool)
package directory
