package presenter

import (
	"errors"

	"github.com/example/mototaxi/internal/api"
)

// Notifier shows transient, non-blocking messages. Recoverable failures
// (a failed poll, a refused transition) land here and nowhere else.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// Confirmer blocks for a yes/no answer. Only destructive actions use it.
type Confirmer interface {
	Confirm(title, message string) bool
}

// Navigator is how a presenter leaves its view.
type Navigator interface {
	ToTrip(tripID string)
	ToHome()
}

// failureText picks the notification for a failed command: the backend's
// rejection message when the error carries one, the generic line for
// transport failures.
func failureText(err error, generic string) string {
	var rej *api.Error
	if errors.As(err, &rej) && rej.Message != "" {
		return rej.Message
	}
	return generic
}
