package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// NotificationData is the content of a notification email.
type NotificationData struct {
	AppName     string
	Title       string
	Body        string
	ActionURL   string
	ActionLabel string
}

// Notification renders a single-call-to-action notification email.
// All text is HTML-escaped and the action URL is sanitized.
func Notification(data NotificationData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		label := data.ActionLabel
		if label == "" {
			label = "View notification"
		}

		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		b.WriteString(templ.EscapeString(data.Title))
		b.WriteString(`</title></head><body style="margin:0;padding:0;background:#f4f4f5;font-family:Helvetica,Arial,sans-serif;">`)
		b.WriteString(`<table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:24px;">`)
		b.WriteString(`<table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">`)
		if data.AppName != "" {
			fmt.Fprintf(&b, `<tr><td style="font-size:14px;color:#71717a;padding-bottom:16px;">%s</td></tr>`, templ.EscapeString(data.AppName))
		}
		fmt.Fprintf(&b, `<tr><td style="font-size:20px;font-weight:bold;color:#18181b;padding-bottom:12px;">%s</td></tr>`, templ.EscapeString(data.Title))
		if data.Body != "" {
			body := strings.ReplaceAll(templ.EscapeString(data.Body), "\n", "<br>")
			fmt.Fprintf(&b, `<tr><td style="font-size:16px;line-height:24px;color:#3f3f46;padding-bottom:24px;">%s</td></tr>`, body)
		}
		if data.ActionURL != "" {
			fmt.Fprintf(&b, `<tr><td><a href="%s" style="display:inline-block;background:#2563eb;color:#ffffff;text-decoration:none;padding:12px 20px;border-radius:6px;font-size:16px;">%s</a></td></tr>`,
				templ.EscapeString(string(templ.URL(data.ActionURL))), templ.EscapeString(label))
		}
		b.WriteString(`</table></td></tr></table></body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// NotificationText renders the plain-text alternative of Notification.
func NotificationText(data NotificationData) string {
	var b strings.Builder
	b.WriteString(data.Title)
	if data.Body != "" {
		b.WriteString("\n\n")
		b.WriteString(data.Body)
	}
	if data.ActionURL != "" {
		label := data.ActionLabel
		if label == "" {
			label = "View notification"
		}
		fmt.Fprintf(&b, "\n\n%s: %s", label, data.ActionURL)
	}
	return b.String()
}
