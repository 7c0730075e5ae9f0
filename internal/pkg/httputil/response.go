// Package httputil carries the response envelopes and shared chi middleware
// for the API server. Payloads ride under "data", failures under "error".
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type errorBody struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type fieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// JSON writes payload as-is, with no envelope.
func JSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, payload)
}

// Text writes a plain text response.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Error("writing response", "error", err)
	}
}

// Success wraps payload in the data envelope.
func Success(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, map[string]any{"data": payload})
}

// Error writes the error envelope with the given message.
func Error(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": errorBody{Message: message}})
}

// ValidationError renders a 400 with per-field details when err comes from
// the struct validator, or the bare error text otherwise.
func ValidationError(w http.ResponseWriter, err error) {
	var details any = err.Error()

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		list := make([]fieldDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			list = append(list, fieldDetail{Field: fe.Field(), Message: fe.Tag()})
		}
		details = list
	}

	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": errorBody{Message: "validation error", Details: details},
	})
}
