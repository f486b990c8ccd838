package email

import (
	"fmt"
	"time"
)

// Config holds email service configuration.
// The Postmark token is optional: without it the service falls back to DevSender.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`

	// Circuit breaker around the transport.
	BreakerMaxFailures uint32        `env:"EMAIL_BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerOpenTimeout time.Duration `env:"EMAIL_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`

	DevOutputDir string `env:"EMAIL_DEV_OUTPUT_DIR" envDefault:"./tmp/emails"`
}

// validateSender checks the identity fields every provider needs.
func (c Config) validateSender() error {
	for _, f := range []struct{ name, value string }{
		{"SenderEmail", c.SenderEmail},
		{"SupportEmail", c.SupportEmail},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, f.name)
		}
		if !ValidAddress(f.value) {
			return fmt.Errorf("%w: %s must be a valid email address", ErrInvalidConfig, f.name)
		}
	}
	return nil
}
