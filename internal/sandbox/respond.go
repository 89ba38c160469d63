package sandbox

import (
	"encoding/json"
	"errors"
	"net/http"
)

// envelope mirrors the canonical response shape the client decodes:
// {"is_success": bool, "message": string, "data": {...}}.
type envelope struct {
	IsSuccess bool   `json:"is_success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelope{IsSuccess: true, Data: data})
}

func writeErr(w http.ResponseWriter, err error, msg string) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, errNotFound):
		status = http.StatusNotFound
		if msg == "" {
			msg = "not found"
		}
	case errors.Is(err, errForbidden):
		status = http.StatusForbidden
		if msg == "" {
			msg = "not allowed"
		}
	default:
		if msg == "" {
			msg = err.Error()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{IsSuccess: false, Message: msg})
}
