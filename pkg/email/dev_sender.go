package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DevSender writes each message to disk instead of sending it.
// Every call produces <stamp>_<slug>.html and a matching .json with the envelope.
type DevSender struct {
	dir string
	now func() time.Time
}

// DevSenderOption configures a DevSender.
type DevSenderOption func(*DevSender)

// WithDevClock overrides the clock used for file names and the sent_at field.
func WithDevClock(now func() time.Time) DevSenderOption {
	return func(d *DevSender) { d.now = now }
}

// NewDevSender returns a sender rooted at dir. The directory is created on first send.
func NewDevSender(dir string, opts ...DevSenderOption) *DevSender {
	d := &DevSender{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type devEnvelope struct {
	SentAt   time.Time `json:"sent_at"`
	SendTo   string    `json:"send_to"`
	Subject  string    `json:"subject"`
	Tag      string    `json:"tag,omitempty"`
	BodyText string    `json:"body_text,omitempty"`
	HTMLFile string    `json:"html_file"`
}

// SendEmail implements EmailSender.
func (d *DevSender) SendEmail(_ context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create output dir: %w", ErrFailedToSendEmail, err)
	}

	sentAt := d.now().UTC()
	label := params.Tag
	if label == "" {
		label = params.Subject
	}
	base := sentAt.Format("20060102T150405.000000000") + "_" + fileSlug(label)

	htmlFile := base + ".html"
	if err := os.WriteFile(filepath.Join(d.dir, htmlFile), []byte(params.BodyHTML), 0o644); err != nil {
		return fmt.Errorf("%w: write html: %w", ErrFailedToSendEmail, err)
	}

	raw, err := json.MarshalIndent(devEnvelope{
		SentAt:   sentAt,
		SendTo:   params.SendTo,
		Subject:  params.Subject,
		Tag:      params.Tag,
		BodyText: params.BodyText,
		HTMLFile: htmlFile,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode envelope: %w", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), raw, 0o644); err != nil {
		return fmt.Errorf("%w: write envelope: %w", ErrFailedToSendEmail, err)
	}
	return nil
}

const maxSlugLen = 64

// fileSlug lowercases s and keeps only [a-z0-9-_.]; spaces become underscores.
func fileSlug(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, s)
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	if s == "" {
		return "email"
	}
	return s
}
