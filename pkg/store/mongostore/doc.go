// Package mongostore implements the notification, retry queue and preference
// stores on MongoDB.
//
//	db, err := mongo.ConnectDatabase(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	if err := mongostore.EnsureIndexes(ctx, db, mongostore.DefaultRetention); err != nil {
//		return err
//	}
//	notifs := mongostore.NewNotificationStore(db)
//	entries := mongostore.NewQueueStore(db)
//	prefs := mongostore.NewPreferenceStore(db)
//
// QueueStore does not implement queue.Purger: expired entries are removed by
// the server through the TTL index.
package mongostore
