package main

import (
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/courier/pkg/email"
	"github.com/dmitrymomot/courier/pkg/httpserver"
	"github.com/dmitrymomot/courier/pkg/push"
	"github.com/dmitrymomot/courier/pkg/queue"
	"github.com/dmitrymomot/courier/pkg/realtime"
)

// Backend names.
const (
	backendMemory   = "memory"
	backendBadger   = "badger"
	backendMongo    = "mongo"
	backendStore    = "store"
	backendRedis    = "redis"
	backendPostgres = "postgres"
)

// appConfig is the process configuration. Backend specific settings
// (MONGODB_*, PG_*, REDIS_*, BADGER_*) are loaded only for the selected backends.
type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"Marketplace"`
	BaseURL  string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`
	LogLevel string `env:"LOG_LEVEL"` // Overrides the environment default

	StorageBackend     string `env:"STORAGE_BACKEND" envDefault:"memory"`     // memory, badger, mongo
	PreferencesBackend string `env:"PREFERENCES_BACKEND" envDefault:"store"`  // store, redis
	DirectoryBackend   string `env:"DIRECTORY_BACKEND" envDefault:"memory"`   // memory, postgres

	HubSendBuffer int `env:"REALTIME_SEND_BUFFER" envDefault:"64"`

	HTTP  httpserver.Config
	Queue queue.Config
	Email email.Config
	Push  push.Config
}

func (c appConfig) validate() error {
	switch c.StorageBackend {
	case backendMemory, backendBadger, backendMongo:
	default:
		return fmt.Errorf("%w: STORAGE_BACKEND=%q", errUnknownBackend, c.StorageBackend)
	}
	switch c.PreferencesBackend {
	case backendStore, backendRedis:
	default:
		return fmt.Errorf("%w: PREFERENCES_BACKEND=%q", errUnknownBackend, c.PreferencesBackend)
	}
	switch c.DirectoryBackend {
	case backendMemory, backendPostgres:
	default:
		return fmt.Errorf("%w: DIRECTORY_BACKEND=%q", errUnknownBackend, c.DirectoryBackend)
	}
	return nil
}

func (c appConfig) logLevel() (slog.Level, bool) {
	if c.LogLevel == "" {
		return 0, false
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, false
	}
	return l, true
}

func (c appConfig) hubOptions(log *slog.Logger, onConnections func(int)) []realtime.Option {
	return []realtime.Option{
		realtime.WithLogger(log),
		realtime.WithSendBuffer(c.HubSendBuffer),
		realtime.WithConnectionsHook(onConnections),
	}
}
