package presenter

import (
	"context"
	"errors"
	"testing"

	"github.com/example/mototaxi/internal/api"
	"github.com/example/mototaxi/internal/models"
)

func newTripPresenter(role models.Role) (*TripPresenter, *fakeNotifier, *fakeNav, *fakeTripCommands) {
	n := &fakeNotifier{}
	nav := &fakeNav{}
	cmds := &fakeTripCommands{}
	p := &TripPresenter{
		TripID:    "trip-1",
		Role:      role,
		Commands:  cmds,
		Notifier:  n,
		Navigator: nav,
	}
	return p, n, nav, cmds
}

func TestNoActionsBeforeFirstSnapshot(t *testing.T) {
	p, _, _, cmds := newTripPresenter(models.RoleDriver)
	if got := p.Actions(); got != nil {
		t.Fatalf("actions before load = %v, want none", got)
	}
	p.Invoke(context.Background(), ActionEnRoute)
	if len(cmds.calls) != 0 {
		t.Fatal("invoke before load must send nothing")
	}
}

func TestDoubleTapSendsOneCommand(t *testing.T) {
	p, _, _, cmds := newTripPresenter(models.RoleDriver)
	_ = p.Apply(tripAt(models.TripAccepted, 1))

	p.Invoke(context.Background(), ActionEnRoute)
	// Second tap before the next snapshot: buttons are disabled.
	p.Invoke(context.Background(), ActionEnRoute)

	if len(cmds.calls) != 1 || cmds.calls[0] != "en_route" {
		t.Fatalf("sent %v, want exactly one en_route", cmds.calls)
	}
	if got := p.Actions(); got != nil {
		t.Fatalf("actions while in flight = %v, want none", got)
	}

	// The authoritative snapshot re-enables the next step.
	_ = p.Apply(tripAt(models.TripEnRoute, 2))
	if got := p.Actions(); len(got) != 2 || got[0] != ActionArrived {
		t.Fatalf("actions after snapshot = %v, want arrived first", got)
	}
}

func TestInvokeDisabledActionIgnored(t *testing.T) {
	p, _, _, cmds := newTripPresenter(models.RolePassenger)
	_ = p.Apply(tripAt(models.TripAccepted, 1))
	// A passenger has no forward action; the tap is dropped client-side.
	p.Invoke(context.Background(), ActionEnRoute)
	if len(cmds.calls) != 0 {
		t.Fatalf("sent %v, want nothing", cmds.calls)
	}
}

func TestFailedCommandKeepsModeAndNotifiesOnce(t *testing.T) {
	p, n, nav, cmds := newTripPresenter(models.RoleDriver)
	cmds.err = errors.New("rejected")
	_ = p.Apply(tripAt(models.TripArrived, 3))

	p.Invoke(context.Background(), ActionStartTrip)

	if len(n.errors) != 1 {
		t.Fatalf("errors = %v, want one transient notification", n.errors)
	}
	if nav.homes != 0 {
		t.Fatal("a failed command must not navigate")
	}
	tr, _ := p.Trip()
	if tr.Status != models.TripArrived {
		t.Fatalf("status = %s, want arrived retained", tr.Status)
	}
	// Buttons come back so the user can retry.
	if got := p.Actions(); len(got) == 0 {
		t.Fatal("actions should be re-enabled after a failure")
	}
}

func TestRejectedCommandShowsBackendMessage(t *testing.T) {
	p, n, _, cmds := newTripPresenter(models.RoleDriver)
	cmds.err = &api.Error{StatusCode: 400, Message: "trip cannot move to en_route_to_origin"}
	_ = p.Apply(tripAt(models.TripAccepted, 1))

	p.Invoke(context.Background(), ActionEnRoute)

	if len(n.errors) != 1 || n.errors[0] != "trip cannot move to en_route_to_origin" {
		t.Fatalf("errors = %v, want the backend's rejection text", n.errors)
	}

	// A transport failure has no backend text; the generic line covers it.
	cmds.err = errors.New("dial tcp: connection refused")
	_ = p.Apply(tripAt(models.TripAccepted, 2))
	p.Invoke(context.Background(), ActionEnRoute)
	if got := n.errors[len(n.errors)-1]; got != "Could not update the trip" {
		t.Fatalf("transport failure showed %q, want the generic line", got)
	}
}

func TestCancelNeedsConfirmation(t *testing.T) {
	p, _, _, cmds := newTripPresenter(models.RolePassenger)
	conf := &fakeConfirmer{answer: false}
	p.Confirmer = conf
	_ = p.Apply(tripAt(models.TripEnRoute, 2))

	p.Invoke(context.Background(), ActionCancelTrip)
	if conf.calls != 1 || len(cmds.calls) != 0 {
		t.Fatalf("confirm calls=%d sent=%v, want asked once and nothing sent", conf.calls, cmds.calls)
	}
	if got := p.Actions(); len(got) == 0 {
		t.Fatal("declining the confirmation should re-enable actions")
	}

	conf.answer = true
	p.Invoke(context.Background(), ActionCancelTrip)
	if len(cmds.calls) != 1 || cmds.calls[0] != "cancel" {
		t.Fatalf("sent %v, want [cancel]", cmds.calls)
	}
}

func TestTerminalSnapshotEndsView(t *testing.T) {
	p, n, nav, _ := newTripPresenter(models.RolePassenger)
	_ = p.Apply(tripAt(models.TripOngoing, 4))
	if stop := p.Apply(tripAt(models.TripCompleted, 5)); !stop {
		t.Fatal("completed should end the view")
	}
	if nav.homes != 1 || len(n.infos) != 1 {
		t.Fatalf("homes=%d infos=%d, want 1 and 1", nav.homes, len(n.infos))
	}
	if got := p.Actions(); got != nil {
		t.Fatalf("actions after terminal = %v, want none", got)
	}
	// Late snapshots are inert.
	if stop := p.Apply(tripAt(models.TripCompleted, 6)); !stop {
		t.Fatal("applies after the view ended must report done")
	}
	if nav.homes != 1 {
		t.Fatal("navigated home twice")
	}
}

func TestFinishCarriesFinalPrice(t *testing.T) {
	p, _, _, cmds := newTripPresenter(models.RoleDriver)
	_ = p.Apply(tripAt(models.TripOngoing, 4))
	price := 3.50
	p.InvokeWithPrice(context.Background(), ActionFinishTrip, &price)
	if len(cmds.calls) != 1 || cmds.calls[0] != "complete_with_price" {
		t.Fatalf("sent %v, want [complete_with_price]", cmds.calls)
	}
}

func TestRefreshPokedAfterSuccess(t *testing.T) {
	p, _, _, _ := newTripPresenter(models.RoleDriver)
	var poked int
	p.RequestRefresh = func() { poked++ }
	_ = p.Apply(tripAt(models.TripAccepted, 1))
	p.Invoke(context.Background(), ActionEnRoute)
	if poked != 1 {
		t.Fatalf("refresh poked %d times, want 1", poked)
	}
}
