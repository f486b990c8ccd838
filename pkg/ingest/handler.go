package ingest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/notifications"
)

// Sender is the part of notifications.Service the API drives.
type Sender interface {
	Send(ctx context.Context, userID string, content notifications.Content) (*notifications.Notification, error)
	SendQueued(ctx context.Context, userID string, content notifications.Content) (*notifications.Notification, error)
}

// DeviceRegistrar stores push device tokens.
type DeviceRegistrar interface {
	RegisterDeviceToken(ctx context.Context, userID, token, platform string) error
}

// Delivery modes accepted by POST /notifications.
const (
	ModeSync   = "sync"
	ModeQueued = "queued"
)

type notificationRequest struct {
	UserID   string                  `json:"user_id"`
	Type     notifications.Type      `json:"type"`
	Title    string                  `json:"title"`
	Body     string                  `json:"body"`
	Data     map[string]any          `json:"data"`
	Channels []notifications.Channel `json:"channels"`
	Priority notifications.Priority  `json:"priority"`
	Mode     string                  `json:"mode"` // sync (default) or queued
}

func (r notificationRequest) content() notifications.Content {
	return notifications.Content{
		Type:     r.Type,
		Title:    r.Title,
		Body:     r.Body,
		Data:     r.Data,
		Channels: r.Channels,
		Priority: r.Priority,
	}
}

type deviceRequest struct {
	UserID   string `json:"user_id"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// API is the internal producer endpoint set.
type API struct {
	sender  Sender
	devices DeviceRegistrar
	logger  *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger for request failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithDevices enables POST /devices.
func WithDevices(d DeviceRegistrar) Option {
	return func(a *API) { a.devices = d }
}

// New returns an API that hands notifications to sender.
func New(sender Sender, opts ...Option) *API {
	a := &API{sender: sender, logger: logger.Discard()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Routes returns a router with POST /notifications and POST /devices.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/notifications", a.createNotification)
	r.Post("/devices", a.registerDevice)
	return r
}

func (a *API) createNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := bindJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	send := a.sender.Send
	switch req.Mode {
	case "", ModeSync:
	case ModeQueued:
		send = a.sender.SendQueued
	default:
		writeError(w, ErrInvalidMode)
		return
	}

	notif, err := send(r.Context(), req.UserID, req.content())
	if err != nil {
		a.logger.LogAttrs(r.Context(), slog.LevelWarn, "notification rejected",
			logger.Component("ingest"), logger.UserID(req.UserID), logger.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, response{Data: notif})
}

func (a *API) registerDevice(w http.ResponseWriter, r *http.Request) {
	if a.devices == nil {
		writeError(w, ErrDevicesDisabled)
		return
	}

	var req deviceRequest
	if err := bindJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID == "" {
		writeError(w, notifications.ErrUserIDRequired)
		return
	}
	if req.Token == "" {
		writeError(w, ErrTokenRequired)
		return
	}

	if err := a.devices.RegisterDeviceToken(r.Context(), req.UserID, req.Token, req.Platform); err != nil {
		a.logger.LogAttrs(r.Context(), slog.LevelError, "device registration failed",
			logger.Component("ingest"), logger.UserID(req.UserID), logger.Error(err))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
