package api

import (
	"encoding/json"
	"fmt"
)

// envelope is the one canonical response shape every endpoint uses:
//
//	{"is_success": true, "message": "", "data": {...}}
//
// It is decoded here and nowhere else; call sites receive their typed
// payload or an error, never raw key probing.
type envelope struct {
	IsSuccess bool            `json:"is_success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

func decodeEnvelope(body []byte, statusCode int, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if !env.IsSuccess {
		return &Error{StatusCode: statusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
