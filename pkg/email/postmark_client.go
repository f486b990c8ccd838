package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mrz1836/postmark"
)

// Postmark API error codes that reject the recipient rather than the request.
// See https://postmarkapp.com/developer/api/overview#error-codes.
const (
	postmarkInvalidEmailRequest = 300
	postmarkInactiveRecipient   = 406
)

// PostmarkSender delivers email through Postmark's transactional API.
type PostmarkSender struct {
	client *postmark.Client
	from   string
	reply  string
}

// PostmarkOption configures a PostmarkSender.
type PostmarkOption func(*postmark.Client)

// WithPostmarkBaseURL points the client at a different API root.
func WithPostmarkBaseURL(u string) PostmarkOption {
	return func(c *postmark.Client) { c.BaseURL = u }
}

// WithPostmarkHTTPClient replaces the HTTP client used for API calls.
func WithPostmarkHTTPClient(hc *http.Client) PostmarkOption {
	return func(c *postmark.Client) { c.HTTPClient = hc }
}

// NewPostmarkSender validates cfg and returns a sender bound to the server token.
func NewPostmarkSender(cfg Config, opts ...PostmarkOption) (*PostmarkSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if err := cfg.validateSender(); err != nil {
		return nil, err
	}

	client := postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken)
	for _, opt := range opts {
		opt(client)
	}

	return &PostmarkSender{client: client, from: cfg.SenderEmail, reply: cfg.SupportEmail}, nil
}

// SendEmail implements EmailSender. Replies go to the support address and
// only HTML links are tracked.
func (s *PostmarkSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.from,
		ReplyTo:    s.reply,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TextBody:   params.BodyText,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})

	switch resp.ErrorCode {
	case 0:
		if err != nil {
			return errors.Join(ErrFailedToSendEmail, err)
		}
		return nil
	case postmarkInvalidEmailRequest, postmarkInactiveRecipient:
		return fmt.Errorf("%w: postmark %d: %s", ErrRecipientRejected, resp.ErrorCode, resp.Message)
	default:
		return fmt.Errorf("%w: postmark %d: %s", ErrFailedToSendEmail, resp.ErrorCode, resp.Message)
	}
}
