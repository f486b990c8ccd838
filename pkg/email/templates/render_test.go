package templates_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/email/templates"
)

func TestNotification(t *testing.T) {
	t.Parallel()

	t.Run("renders content and action", func(t *testing.T) {
		t.Parallel()

		html, err := templates.Render(context.Background(), templates.Notification(templates.NotificationData{
			AppName:   "Marketplace",
			Title:     "New message",
			Body:      "Hi\nthere",
			ActionURL: "https://app.example.com/messages/42",
		}))
		require.NoError(t, err)

		assert.Contains(t, html, "Marketplace")
		assert.Contains(t, html, "New message")
		assert.Contains(t, html, "Hi<br>there")
		assert.Contains(t, html, `href="https://app.example.com/messages/42"`)
		assert.Contains(t, html, "View notification")
	})

	t.Run("escapes user content", func(t *testing.T) {
		t.Parallel()

		html, err := templates.Render(context.Background(), templates.Notification(templates.NotificationData{
			Title: "<script>alert(1)</script>",
			Body:  "a & b",
		}))
		require.NoError(t, err)

		assert.NotContains(t, html, "<script>")
		assert.Contains(t, html, "&lt;script&gt;")
		assert.Contains(t, html, "a &amp; b")
		assert.NotContains(t, html, "href=")
	})

	t.Run("sanitizes unsafe urls", func(t *testing.T) {
		t.Parallel()

		html, err := templates.Render(context.Background(), templates.Notification(templates.NotificationData{
			Title:     "Alert",
			ActionURL: "javascript:alert(1)",
		}))
		require.NoError(t, err)

		assert.NotContains(t, html, "javascript:")
	})
}

func TestNotificationText(t *testing.T) {
	t.Parallel()

	text := templates.NotificationText(templates.NotificationData{
		Title:       "New message",
		Body:        "Hi",
		ActionURL:   "https://app.example.com/n",
		ActionLabel: "Open",
	})
	assert.Equal(t, "New message\n\nHi\n\nOpen: https://app.example.com/n", text)

	assert.Equal(t, "Only title", templates.NotificationText(templates.NotificationData{Title: "Only title"}))
}
