// Package badgerstore implements the notification, retry queue and preference
// stores on an embedded badger database, for single-node deployments that
// need durability without an external server.
//
//	db, err := badgerstore.Open(cfg, log)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	notifs := badgerstore.NewNotificationStore(db)
//	entries := badgerstore.NewQueueStore(db, retention)
//	prefs := badgerstore.NewPreferenceStore(db)
//
//	g.Go(badgerstore.RunGC(ctx, db, cfg.GCInterval))
//
// Values are JSON encoded. Terminal queue entries are written with a TTL of
// the retention period, so QueueStore does not implement queue.Purger.
package badgerstore
