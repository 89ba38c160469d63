// Package presenter maps polled backend state to a display mode and the
// set of actions the user may take, and turns taps into transition
// commands. It never changes state optimistically: the backend arbitrates
// and the next poll shows the outcome.
package presenter

import "github.com/example/mototaxi/internal/models"

type Action string

const (
	ActionCancelRequest Action = "cancel_request"
	ActionViewTrip      Action = "view_trip"
	ActionEnRoute       Action = "en_route"
	ActionArrived       Action = "arrived"
	ActionStartTrip     Action = "start_trip"
	ActionFinishTrip    Action = "finish_trip"
	ActionCancelTrip    Action = "cancel_trip"
)

// Destructive actions require a blocking confirmation before sending.
func (a Action) Destructive() bool {
	return a == ActionCancelRequest || a == ActionCancelTrip
}

// target returns the trip status a forward action commands.
func (a Action) target() (models.TripStatus, bool) {
	switch a {
	case ActionEnRoute:
		return models.TripEnRoute, true
	case ActionArrived:
		return models.TripArrived, true
	case ActionStartTrip:
		return models.TripOngoing, true
	case ActionFinishTrip:
		return models.TripCompleted, true
	case ActionCancelTrip:
		return models.TripCancelled, true
	}
	return "", false
}

// forwardAction is the driver's single forward step per status.
var forwardAction = map[models.TripStatus]Action{
	models.TripAccepted: ActionEnRoute,
	models.TripEnRoute:  ActionArrived,
	models.TripArrived:  ActionStartTrip,
	models.TripOngoing:  ActionFinishTrip,
}

// TripActionsFor is a pure function from (status, role) to the enabled
// actions. Terminal statuses enable nothing for either role.
func TripActionsFor(status models.TripStatus, role models.Role) []Action {
	if status.Terminal() {
		return nil
	}
	var out []Action
	if role == models.RoleDriver {
		if fwd, ok := forwardAction[status]; ok {
			out = append(out, fwd)
		}
	}
	// Either party can cancel any non-terminal trip.
	return append(out, ActionCancelTrip)
}

// RequestActionsFor is the pure action table for the request-waiting view.
func RequestActionsFor(status models.RequestStatus) []Action {
	switch status {
	case models.RequestPending:
		return []Action{ActionCancelRequest}
	case models.RequestAccepted:
		return []Action{ActionViewTrip}
	}
	return nil
}
