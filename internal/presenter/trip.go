package presenter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/mototaxi/internal/models"
	"github.com/example/mototaxi/internal/observability"
)

// TripCommands is the slice of the API client the active-trip view needs.
type TripCommands interface {
	TripEnRoute(ctx context.Context, tripID string) error
	TripArrived(ctx context.Context, tripID string) error
	TripStart(ctx context.Context, tripID string) error
	TripComplete(ctx context.Context, tripID string, finalPrice *float64) error
	TripCancel(ctx context.Context, tripID string) error
}

// TripPresenter drives the active-trip view for either role. Poll results
// go through Apply; user taps go through Invoke. A tap disables further
// taps until the next applied snapshot, so a double tap sends one command
// and the backend arbitrates the rest.
type TripPresenter struct {
	TripID string
	Role   models.Role

	Commands  TripCommands
	Notifier  Notifier
	Confirmer Confirmer
	Navigator Navigator
	Logger    *slog.Logger
	// RequestRefresh, when set, is poked after a successful command so the
	// poller can confirm the new state without waiting a full interval.
	RequestRefresh func()

	mu       sync.Mutex
	trip     models.Trip
	loaded   bool
	inflight bool
	gone     bool
}

// Trip returns the last applied state; ok is false before the first poll.
func (p *TripPresenter) Trip() (models.Trip, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trip, p.loaded
}

// Actions is the enabled-action set for the current (status, role) pair.
// While a command is in flight everything is disabled.
func (p *TripPresenter) Actions() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gone || p.inflight || !p.loaded {
		return nil
	}
	return TripActionsFor(p.trip.Status, p.Role)
}

// Apply consumes one poll result. Returns true on a terminal status so the
// poller stops.
func (p *TripPresenter) Apply(t models.Trip) bool {
	p.mu.Lock()
	if p.gone {
		p.mu.Unlock()
		return true
	}
	p.trip = t
	p.loaded = true
	// The authoritative answer arrived; re-enable the buttons.
	p.inflight = false

	if !t.Status.Terminal() {
		p.mu.Unlock()
		return false
	}
	p.gone = true
	p.mu.Unlock()

	switch t.Status {
	case models.TripCompleted:
		p.Notifier.Info("Trip completed")
	case models.TripCancelled:
		p.Notifier.Info("Trip cancelled")
	}
	p.Navigator.ToHome()
	return true
}

// Invoke sends the transition command for action. Unknown or currently
// disabled actions are ignored; failures surface one transient
// notification and leave the displayed mode untouched.
func (p *TripPresenter) Invoke(ctx context.Context, action Action) {
	p.InvokeWithPrice(ctx, action, nil)
}

// InvokeWithPrice is Invoke with a final-price override, meaningful only
// for the finish action.
func (p *TripPresenter) InvokeWithPrice(ctx context.Context, action Action, finalPrice *float64) {
	target, ok := action.target()
	if !ok {
		return
	}

	p.mu.Lock()
	if p.gone || p.inflight || !p.loaded {
		p.mu.Unlock()
		return
	}
	if !contains(TripActionsFor(p.trip.Status, p.Role), action) {
		p.mu.Unlock()
		return
	}
	p.inflight = true
	p.mu.Unlock()

	if action.Destructive() && p.Confirmer != nil {
		if !p.Confirmer.Confirm("Cancel trip", "Are you sure you want to cancel the trip?") {
			p.clearInflight()
			return
		}
	}

	observability.TransitionsSent.WithLabelValues(string(target)).Inc()
	var err error
	switch action {
	case ActionEnRoute:
		err = p.Commands.TripEnRoute(ctx, p.TripID)
	case ActionArrived:
		err = p.Commands.TripArrived(ctx, p.TripID)
	case ActionStartTrip:
		err = p.Commands.TripStart(ctx, p.TripID)
	case ActionFinishTrip:
		err = p.Commands.TripComplete(ctx, p.TripID, finalPrice)
	case ActionCancelTrip:
		err = p.Commands.TripCancel(ctx, p.TripID)
	}
	if err != nil {
		observability.TransitionsRejected.Inc()
		p.logger().Warn("transition command failed", "trip_id", p.TripID, "action", action, "error", err)
		p.Notifier.Error(failureText(err, "Could not update the trip"))
		p.clearInflight()
		return
	}
	if p.RequestRefresh != nil {
		p.RequestRefresh()
	}
}

func (p *TripPresenter) clearInflight() {
	p.mu.Lock()
	p.inflight = false
	p.mu.Unlock()
}

func (p *TripPresenter) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func contains(actions []Action, a Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}
