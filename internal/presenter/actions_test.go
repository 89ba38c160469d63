package presenter

import (
	"reflect"
	"testing"

	"github.com/example/mototaxi/internal/models"
)

func TestTripActionsTable(t *testing.T) {
	cases := []struct {
		status models.TripStatus
		role   models.Role
		want   []Action
	}{
		{models.TripAccepted, models.RoleDriver, []Action{ActionEnRoute, ActionCancelTrip}},
		{models.TripEnRoute, models.RoleDriver, []Action{ActionArrived, ActionCancelTrip}},
		{models.TripArrived, models.RoleDriver, []Action{ActionStartTrip, ActionCancelTrip}},
		{models.TripOngoing, models.RoleDriver, []Action{ActionFinishTrip, ActionCancelTrip}},
		{models.TripCompleted, models.RoleDriver, nil},
		{models.TripCancelled, models.RoleDriver, nil},

		// Passengers never get a forward action, only cancel.
		{models.TripAccepted, models.RolePassenger, []Action{ActionCancelTrip}},
		{models.TripEnRoute, models.RolePassenger, []Action{ActionCancelTrip}},
		{models.TripArrived, models.RolePassenger, []Action{ActionCancelTrip}},
		{models.TripOngoing, models.RolePassenger, []Action{ActionCancelTrip}},
		{models.TripCompleted, models.RolePassenger, nil},
		{models.TripCancelled, models.RolePassenger, nil},
	}
	for _, c := range cases {
		got := TripActionsFor(c.status, c.role)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("TripActionsFor(%s, %s) = %v, want %v", c.status, c.role, got, c.want)
		}
	}
}

func TestRequestActionsTable(t *testing.T) {
	cases := []struct {
		status models.RequestStatus
		want   []Action
	}{
		{models.RequestPending, []Action{ActionCancelRequest}},
		{models.RequestAccepted, []Action{ActionViewTrip}},
		{models.RequestCancelled, nil},
		{models.RequestExpired, nil},
	}
	for _, c := range cases {
		got := RequestActionsFor(c.status)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("RequestActionsFor(%s) = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestDestructiveActions(t *testing.T) {
	for _, a := range []Action{ActionCancelRequest, ActionCancelTrip} {
		if !a.Destructive() {
			t.Errorf("%s should be destructive", a)
		}
	}
	for _, a := range []Action{ActionEnRoute, ActionArrived, ActionStartTrip, ActionFinishTrip, ActionViewTrip} {
		if a.Destructive() {
			t.Errorf("%s should not be destructive", a)
		}
	}
}
