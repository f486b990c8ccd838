// Package realtime keeps live websocket connections grouped by user id and
// pushes JSON frames to them.
//
// A Hub serves as the connection registry of the in-app channel:
//
//	hub := realtime.NewHub(realtime.WithLogger(log))
//	defer hub.Close()
//
//	r.Handle("/ws", hub.Handler(realtime.HeaderUserResolver("X-User-ID")))
//
//	delivered, err := hub.SendToUser(ctx, userID, event)
//
// SendToUser reports false with a nil error when the user has no open
// connection. After Close every call returns ErrHubClosed.
//
// Each connection runs a read pump and a write pump. The server pings every
// 54 seconds and drops connections that stop answering. A client whose send
// buffer is full is disconnected rather than allowed to block delivery to
// other users.
package realtime
