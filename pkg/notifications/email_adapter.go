package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/dmitrymomot/courier/pkg/email"
	"github.com/dmitrymomot/courier/pkg/email/templates"
	"github.com/dmitrymomot/courier/pkg/logger"
)

// EmailAdapter sends notifications as templated emails.
type EmailAdapter struct {
	directory  RecipientDirectory
	sender     email.EmailSender
	baseURL    *url.URL
	defaultURL string
	appName    string
	logger     *slog.Logger
}

// EmailAdapterOption configures an EmailAdapter.
type EmailAdapterOption func(*EmailAdapter)

// WithEmailLogger sets the logger for the EmailAdapter.
func WithEmailLogger(logger *slog.Logger) EmailAdapterOption {
	return func(a *EmailAdapter) {
		a.logger = logger
	}
}

// WithBaseURL resolves relative data["url"] links and the default link against base.
// Invalid URLs are ignored.
func WithBaseURL(base string) EmailAdapterOption {
	return func(a *EmailAdapter) {
		if u, err := url.Parse(base); err == nil && u.IsAbs() {
			a.baseURL = u
		}
	}
}

// WithDefaultActionURL sets the call-to-action link used when the payload has no url.
func WithDefaultActionURL(link string) EmailAdapterOption {
	return func(a *EmailAdapter) {
		a.defaultURL = link
	}
}

// WithAppName sets the product name shown in the email header.
func WithAppName(name string) EmailAdapterOption {
	return func(a *EmailAdapter) {
		a.appName = name
	}
}

// NewEmailAdapter creates an adapter that looks up recipients in directory and sends through sender.
func NewEmailAdapter(directory RecipientDirectory, sender email.EmailSender, opts ...EmailAdapterOption) *EmailAdapter {
	a := &EmailAdapter{
		directory:  directory,
		sender:     sender,
		defaultURL: "/notifications",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *EmailAdapter) Channel() Channel { return ChannelEmail }

// Deliver renders and sends the email. Unknown users, missing or malformed
// addresses, rejected parameters and refused recipients are permanent and return nil.
func (a *EmailAdapter) Deliver(ctx context.Context, userID string, p Payload) error {
	rcpt, err := a.directory.Recipient(ctx, userID)
	if errors.Is(err, ErrRecipientNotFound) {
		a.logger.LogAttrs(ctx, slog.LevelWarn, "email skipped: unknown recipient",
			logger.UserID(userID),
			logger.NotificationID(p.NotificationID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if !email.ValidAddress(rcpt.Email) {
		a.logger.LogAttrs(ctx, slog.LevelWarn, "email skipped: recipient has no valid address",
			logger.UserID(userID),
			logger.NotificationID(p.NotificationID),
		)
		return nil
	}

	data := templates.NotificationData{
		AppName:   a.appName,
		Title:     p.Title,
		Body:      p.Body,
		ActionURL: a.actionURL(p),
	}
	html, err := templates.Render(ctx, templates.Notification(data))
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	err = a.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   rcpt.Email,
		Subject:  p.Title,
		BodyHTML: html,
		BodyText: templates.NotificationText(data),
		Tag:      string(p.Type),
	})
	if errors.Is(err, email.ErrInvalidParams) || errors.Is(err, email.ErrRecipientRejected) {
		a.logger.LogAttrs(ctx, slog.LevelWarn, "email skipped: rejected by sender",
			logger.UserID(userID),
			logger.NotificationID(p.NotificationID),
			logger.Error(err),
		)
		return nil
	}
	return err
}

func (a *EmailAdapter) actionURL(p Payload) string {
	link := p.URL()
	if link == "" {
		link = a.defaultURL
	}
	if a.baseURL == nil || link == "" {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return a.baseURL.String()
	}
	return a.baseURL.ResolveReference(ref).String()
}
