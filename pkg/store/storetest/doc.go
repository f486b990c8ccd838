// Package storetest holds behavioural tests shared by every storage backend.
//
// A backend test calls the suites with a factory returning an empty store:
//
//	func TestQueueStorage(t *testing.T) {
//		storetest.QueueStorage(t, func(t *testing.T) queue.Storage {
//			return newStore(t)
//		})
//	}
//
// Times are truncated to milliseconds so backends that store coarser
// timestamps pass the same assertions.
package storetest
