package models

import "testing"

func TestCanAdvanceTo(t *testing.T) {
	cases := []struct {
		from, to TripStatus
		want     bool
	}{
		{TripAccepted, TripEnRoute, true},
		{TripEnRoute, TripArrived, true},
		{TripArrived, TripOngoing, true},
		{TripOngoing, TripCompleted, true},

		// Skipping a step is never allowed.
		{TripAccepted, TripArrived, false},
		{TripAccepted, TripOngoing, false},
		{TripEnRoute, TripCompleted, false},

		// Backward never.
		{TripArrived, TripEnRoute, false},
		{TripOngoing, TripAccepted, false},

		// Repeating the current status is a no-op rejection, which is what
		// makes double-taps harmless.
		{TripEnRoute, TripEnRoute, false},

		// Cancel works from any non-terminal status only.
		{TripAccepted, TripCancelled, true},
		{TripEnRoute, TripCancelled, true},
		{TripArrived, TripCancelled, true},
		{TripOngoing, TripCancelled, true},
		{TripCompleted, TripCancelled, false},
		{TripCancelled, TripCancelled, false},

		// Nothing leaves a terminal status.
		{TripCompleted, TripEnRoute, false},
		{TripCancelled, TripOngoing, false},
	}
	for _, c := range cases {
		if got := c.from.CanAdvanceTo(c.to); got != c.want {
			t.Errorf("%s.CanAdvanceTo(%s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTripStatusNext(t *testing.T) {
	order := []TripStatus{TripAccepted, TripEnRoute, TripArrived, TripOngoing, TripCompleted}
	for i := 0; i < len(order)-1; i++ {
		next, ok := order[i].Next()
		if !ok || next != order[i+1] {
			t.Fatalf("Next(%s) = %s,%v want %s", order[i], next, ok, order[i+1])
		}
	}
	if _, ok := TripCompleted.Next(); ok {
		t.Error("completed should have no forward step")
	}
	if _, ok := TripCancelled.Next(); ok {
		t.Error("cancelled should have no forward step")
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []TripStatus{TripAccepted, TripEnRoute, TripArrived, TripOngoing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []TripStatus{TripCompleted, TripCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if RequestPending.Terminal() || RequestAccepted.Terminal() {
		t.Error("pending and accepted requests are not terminal")
	}
	if !RequestCancelled.Terminal() || !RequestExpired.Terminal() {
		t.Error("cancelled and expired requests are terminal")
	}
}
