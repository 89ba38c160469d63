package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/example/mototaxi/internal/api"
	"github.com/example/mototaxi/internal/models"
	"github.com/example/mototaxi/internal/poller"
	"github.com/example/mototaxi/internal/presenter"
	"github.com/example/mototaxi/internal/stream"
)

var actionLabels = map[presenter.Action]string{
	presenter.ActionEnRoute:    "Heading to pickup",
	presenter.ActionArrived:    "I have arrived",
	presenter.ActionStartTrip:  "Start trip",
	presenter.ActionFinishTrip: "Finish trip",
	presenter.ActionCancelTrip: "Cancel trip",
}

// runTrip is the active-trip view for both roles: snapshots stream in via
// websocket or polling, taps go out through the presenter.
func (a *app) runTrip(ctx context.Context, tripID string, role models.Role) {
	nav := newFlowNav()
	wake := make(chan struct{}, 1)
	tp := &presenter.TripPresenter{
		TripID:    tripID,
		Role:      role,
		Commands:  a.client,
		Notifier:  a.ui,
		Navigator: nav,
		Logger:    a.logger,
		RequestRefresh: func() {
			select {
			case wake <- struct{}{}:
			default:
			}
		},
	}

	render := make(chan struct{}, 1)
	apply := func(t models.Trip) {
		tp.Apply(t)
		select {
		case render <- struct{}{}:
		default:
		}
	}
	done := func(t models.Trip) bool { return t.Status.Terminal() }

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if a.cfg.UseStream {
			sub := &stream.TripSubscriber{
				BaseURL: a.cfg.BackendURL,
				TripID:  tripID,
				Token:   a.store.AccessToken(),
				Apply:   apply,
				Done:    done,
				Logger:  a.logger,
			}
			err := sub.Run(pollCtx)
			if err == nil {
				return
			}
			a.logger.Warn("trip stream unavailable, polling instead", "trip_id", tripID, "error", err)
		}
		p := &poller.Poller[models.Trip]{
			Subject:  "trip",
			Interval: a.cfg.TripPollInterval,
			Fetch: func(ctx context.Context) (models.Trip, error) {
				return a.client.Trip(ctx, tripID)
			},
			Apply:  apply,
			Done:   done,
			Logger: a.logger,
			Wake:   wake,
		}
		p.Run(pollCtx)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-nav.home:
			cancel()
			a.offerRating(ctx, tripID, role)
			return
		case <-render:
			a.renderTrip(tp)
		case line, ok := <-a.ui.lines:
			if !ok {
				return
			}
			a.handleTripInput(ctx, tp, line)
		}
	}
}

func (a *app) renderTrip(tp *presenter.TripPresenter) {
	t, ok := tp.Trip()
	if !ok {
		return
	}
	a.ui.printf("-- %s --", statusLabel(t.Status))
	if t.Driver != nil && tp.Role == models.RolePassenger {
		a.ui.printf("   driver: %s (%.1f★) %s", t.Driver.Name, t.Driver.Rating, t.Driver.Plate)
	}
	if t.DriverLoc != nil && t.Status != models.TripOngoing {
		a.ui.printf("   driver at %.4f, %.4f", t.DriverLoc.Lat, t.DriverLoc.Lng)
	}
	actions := tp.Actions()
	for i, act := range actions {
		a.ui.printf("  %d) %s", i+1, actionLabels[act])
	}
}

func (a *app) handleTripInput(ctx context.Context, tp *presenter.TripPresenter, line string) {
	actions := tp.Actions()
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(actions) {
		a.renderTrip(tp)
		return
	}
	action := actions[n-1]
	if action.Destructive() && !a.ui.Confirm("Cancel trip", "Are you sure you want to cancel the trip?") {
		return
	}
	if action == presenter.ActionFinishTrip {
		tp.InvokeWithPrice(ctx, action, a.promptFinalPrice())
		return
	}
	tp.Invoke(ctx, action)
}

// promptFinalPrice lets the driver adjust the charged amount; blank keeps
// the agreed price.
func (a *app) promptFinalPrice() *float64 {
	line, ok := a.ui.readLine("Final price (blank = agreed price):")
	if !ok || line == "" {
		return nil
	}
	v, err := strconv.ParseFloat(line, 64)
	if err != nil || v <= 0 {
		a.ui.Error("Keeping the agreed price")
		return nil
	}
	return &v
}

func (a *app) offerRating(ctx context.Context, tripID string, role models.Role) {
	trip, err := a.client.Trip(ctx, tripID)
	if err != nil || trip.Status != models.TripCompleted {
		return
	}
	var ratedID string
	if role == models.RolePassenger && trip.Driver != nil {
		ratedID = trip.Driver.ID
	} else if role == models.RoleDriver && trip.Passenger != nil {
		ratedID = trip.Passenger.ID
	}
	if ratedID == "" {
		return
	}
	score, err := a.ui.promptInt("Rate your trip 1-5 (blank to skip)")
	if err != nil || score < 1 || score > 5 {
		return
	}
	comment := a.ui.promptString("Comment (optional)")
	if _, err := a.client.RateTrip(ctx, api.RateTripParams{
		TripID:  tripID,
		RatedID: ratedID,
		Score:   score,
		Comment: comment,
	}); err != nil {
		a.notifyFailure("Could not submit the rating", err)
		return
	}
	a.ui.Info("Thanks for the feedback")
}

func statusLabel(s models.TripStatus) string {
	switch s {
	case models.TripAccepted:
		return "Driver assigned"
	case models.TripEnRoute:
		return "Driver on the way"
	case models.TripArrived:
		return "Driver is at the pickup point"
	case models.TripOngoing:
		return "Trip in progress"
	case models.TripCompleted:
		return "Trip completed"
	case models.TripCancelled:
		return "Trip cancelled"
	}
	return string(s)
}
