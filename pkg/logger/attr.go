package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group nests attrs under name.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records err under "error". A nil err yields an empty Attr, which
// handlers drop.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errs under "errors", keyed by their position.
func Errors(errs ...error) slog.Attr {
	var attrs []slog.Attr
	for i, err := range errs {
		if err != nil {
			attrs = append(attrs, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(attrs) == 0 {
		return slog.Attr{}
	}
	return Group("errors", attrs...)
}

// Delivery attributes. ID helpers return an empty Attr for "".

func UserID(id string) slog.Attr         { return optional("user_id", id) }
func NotificationID(id string) slog.Attr { return optional("notification_id", id) }
func EntryID(id string) slog.Attr        { return optional("entry_id", id) }
func Channel(name string) slog.Attr      { return slog.String("channel", name) }
func RetryCount(n int) slog.Attr         { return slog.Int("retry_count", n) }
func Duration(d time.Duration) slog.Attr { return slog.Duration("duration", d) }
func Component(name string) slog.Attr    { return slog.String("component", name) }
func Event(name string) slog.Attr        { return slog.String("event", name) }

func optional(key, value string) slog.Attr {
	if value == "" {
		return slog.Attr{}
	}
	return slog.String(key, value)
}
