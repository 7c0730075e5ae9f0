package httputil

import (
	"context"
	"errors"
	"net/http"
)

// ErrorMapping pairs a sentinel error with the HTTP status it renders as.
// Message overrides the error text when set.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string
}

// HandleError renders err through the first matching mapping. Errors with no
// mapping are logged via the request logger and render as a plain 500.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, m := range mappings {
		if !errors.Is(err, m.Error) {
			continue
		}
		msg := m.Message
		if msg == "" {
			msg = err.Error()
		}
		Error(w, m.Status, msg)
		return
	}

	loggerFrom(ctx).Error("unhandled service error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
