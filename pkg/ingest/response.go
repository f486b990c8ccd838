package ingest

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/dmitrymomot/courier/pkg/notifications"
)

type response struct {
	Data  any          `json:"data,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorStatus maps err to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingContentType), errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, ErrInvalidJSON):
		return http.StatusBadRequest, "invalid_json"
	case errors.Is(err, ErrDevicesDisabled):
		return http.StatusNotImplemented, "not_implemented"
	case errors.Is(err, notifications.ErrStoreNotification):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, notifications.ErrRecipientNotFound):
		return http.StatusNotFound, "recipient_not_found"
	case errors.Is(err, ErrInvalidMode),
		errors.Is(err, ErrTokenRequired),
		errors.Is(err, notifications.ErrUserIDRequired),
		errors.Is(err, notifications.ErrInvalidType),
		errors.Is(err, notifications.ErrTitleRequired),
		errors.Is(err, notifications.ErrInvalidChannel),
		errors.Is(err, notifications.ErrInvalidPriority):
		return http.StatusUnprocessableEntity, "validation_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	detail := &errorDetail{Code: code}
	if status < http.StatusInternalServerError {
		detail.Message = err.Error()
	}
	writeJSON(w, status, response{Error: detail})
}
