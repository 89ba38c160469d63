package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks a 401 from the backend. The client also fires the
// session's forced-logout hook, so callers normally only need to stop.
var ErrUnauthorized = errors.New("api: unauthorized")

// Error is a business-rule rejection: the backend answered, but refused the
// operation. Message is the backend-provided text and is safe to show.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: request rejected (HTTP %d)", e.StatusCode)
	}
	return "api: " + e.Message
}

// IsRejection reports whether err is a business-rule rejection (as opposed
// to a transport failure or auth loss).
func IsRejection(err error) bool {
	var ae *Error
	return errors.As(err, &ae)
}
