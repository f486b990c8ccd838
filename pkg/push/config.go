package push

import "time"

// Config holds FCM gateway configuration.
// The gateway is enabled only when CredentialsFile or CredentialsJSON is set.
type Config struct {
	CredentialsFile string        `env:"FCM_CREDENTIALS_FILE"`
	CredentialsJSON string        `env:"FCM_CREDENTIALS_JSON"`
	ProjectID       string        `env:"FCM_PROJECT_ID"`
	Endpoint        string        `env:"FCM_ENDPOINT" envDefault:"https://fcm.googleapis.com"`
	Concurrency     int           `env:"FCM_CONCURRENCY" envDefault:"8"`
	RequestTimeout  time.Duration `env:"FCM_REQUEST_TIMEOUT" envDefault:"10s"`

	BreakerMaxFailures uint32        `env:"FCM_BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerOpenTimeout time.Duration `env:"FCM_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
}

// Enabled reports whether credentials were supplied.
func (c Config) Enabled() bool {
	return c.CredentialsFile != "" || c.CredentialsJSON != ""
}
