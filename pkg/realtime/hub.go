package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/courier/pkg/logger"
)

// UserResolver extracts the authenticated user id from an upgrade request.
type UserResolver func(r *http.Request) (string, error)

// HeaderUserResolver trusts a header set by an authenticating proxy.
func HeaderUserResolver(header string) UserResolver {
	return func(r *http.Request) (string, error) {
		if id := r.Header.Get(header); id != "" {
			return id, nil
		}
		return "", ErrUnauthorized
	}
}

// Hub tracks live connections per user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	total   int
	closed  bool

	upgrader   websocket.Upgrader
	sendBuffer int
	onChange   func(total int)
	logger     *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithCheckOrigin overrides the upgrader's origin check. By default only
// same-origin requests are accepted.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// WithSendBuffer sets how many frames may wait for a slow connection before it is dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithConnectionsHook is called with the total connection count after every change.
func WithConnectionsHook(fn func(total int)) Option {
	return func(h *Hub) {
		h.onChange = fn
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sendBuffer: 64,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handler upgrades requests from resolved users to websocket connections.
func (h *Hub) Handler(resolve UserResolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := resolve(r)
		if err != nil || userID == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if h.isClosed() {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied to the client.
			h.logger.LogAttrs(r.Context(), slog.LevelDebug, "websocket upgrade failed",
				logger.UserID(userID),
				logger.Error(err),
			)
			return
		}

		c := newClient(h, userID, conn, h.sendBuffer)
		if !h.register(c) {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			_ = conn.Close()
			return
		}
		c.start()

		h.logger.LogAttrs(r.Context(), slog.LevelDebug, "websocket connected", c.attrs()...)
	})
}

func (h *Hub) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.total++
	total := h.total
	h.mu.Unlock()

	h.notify(total)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	total := h.total
	h.mu.Unlock()

	c.close()
	if removed {
		h.notify(total)
		h.logger.Debug("websocket disconnected", logger.UserID(c.userID))
	}
}

func (h *Hub) removeLocked(c *client) bool {
	set, ok := h.clients[c.userID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	h.total--
	return true
}

func (h *Hub) notify(total int) {
	if h.onChange != nil {
		h.onChange(total)
	}
}

// SendToUser writes msg as a JSON frame to every connection of userID.
// It reports whether at least one connection accepted the frame. A user
// without connections is not an error. Connections whose buffers are full are
// dropped; if that leaves no receiver ErrSlowConsumer is returned.
func (h *Hub) SendToUser(ctx context.Context, userID string, msg any) (bool, error) {
	frame, err := json.Marshal(msg)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrEncodeMessage, err)
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return false, ErrHubClosed
	}
	set := h.clients[userID]
	targets := make([]*client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return false, nil
	}

	delivered := false
	for _, c := range targets {
		if c.enqueue(frame) {
			delivered = true
			continue
		}
		h.logger.LogAttrs(ctx, slog.LevelWarn, "dropping slow websocket client", c.attrs()...)
		h.unregister(c)
	}

	if !delivered {
		return false, ErrSlowConsumer
	}
	return true, nil
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Total returns the number of open connections across users.
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Close disconnects every client. Subsequent sends return ErrHubClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := make([]*client, 0, h.total)
	for _, set := range h.clients {
		for c := range set {
			clients = append(clients, c)
		}
	}
	h.clients = make(map[string]map[*client]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.notify(0)

	h.logger.Info("realtime hub closed", slog.Int("connections", len(clients)))
	return nil
}
