package main

import (
	"context"
	"fmt"
	"time"

	"github.com/example/mototaxi/internal/api"
	"github.com/example/mototaxi/internal/models"
	"github.com/example/mototaxi/internal/poller"
	"github.com/example/mototaxi/internal/presenter"
)

func (a *app) requestRide(ctx context.Context) {
	origin, ok := a.promptPlace(ctx, "Pickup")
	if !ok {
		return
	}
	destination, ok := a.promptPlace(ctx, "Destination")
	if !ok {
		return
	}

	if route, err := a.client.RouteBetween(ctx, origin.Coord, destination.Coord); err == nil {
		a.ui.printf("Estimated %.1f km, about %.0f min", route.DistanceKm, route.DurationMinutes)
	}

	price, err := a.ui.promptFloat("Offered price")
	if err != nil || price <= 0 {
		a.ui.Error("Price must be a positive number")
		return
	}
	methods := []models.PaymentMethod{models.PayCash, models.PayCard, models.PayTransfer}
	idx := a.ui.promptChoice("Payment method", []string{"Cash", "Card", "Transfer"})
	if idx < 0 {
		return
	}

	req, err := a.client.CreateRequest(ctx, api.CreateRequestParams{
		Origin:        origin,
		Destination:   destination,
		OfferedPrice:  price,
		PaymentMethod: methods[idx],
	})
	if err != nil {
		a.notifyFailure("Could not create the request", err)
		return
	}
	a.ui.Info("Looking for a driver... press c + enter to cancel")
	a.waitForDriver(ctx, req)
}

// promptPlace resolves free text into a place, via autocomplete when it
// yields candidates and plain geocoding otherwise.
func (a *app) promptPlace(ctx context.Context, label string) (models.Place, bool) {
	query := a.ui.promptString(label + " address")
	if query == "" {
		return models.Place{}, false
	}
	if suggestions, err := a.client.Autocomplete(ctx, query, 5); err == nil && len(suggestions) > 0 {
		labels := make([]string, len(suggestions))
		for i, s := range suggestions {
			labels[i] = s.Description
		}
		if idx := a.ui.promptChoice("Did you mean", labels); idx >= 0 {
			s := suggestions[idx]
			return models.Place{Coord: s.Coord, Address: s.Description}, true
		}
	}
	place, err := a.client.Geocode(ctx, query)
	if err != nil {
		a.notifyFailure("Could not find that address", err)
		return models.Place{}, false
	}
	return place, true
}

// waitForDriver runs the waiting view: poll the request status until a trip
// exists, the request dies, or the user cancels.
func (a *app) waitForDriver(ctx context.Context, req models.Request) {
	nav := newFlowNav()
	rp := &presenter.RequestPresenter{
		RequestID: req.ID,
		Deadline:  req.ExpiresAt,
		Commands:  a.client,
		Notifier:  a.ui,
		Navigator: nav,
		Logger:    a.logger,
	}

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := &poller.Poller[models.RequestSnapshot]{
		Subject:  "request",
		Interval: a.cfg.RequestPollInterval,
		Fetch: func(ctx context.Context) (models.RequestSnapshot, error) {
			return a.client.RequestStatus(ctx, req.ID)
		},
		Apply:  a.renderWait(rp),
		Done:   func(models.RequestSnapshot) bool { return rp.Mode() == presenter.ModeGone },
		Logger: a.logger,
	}
	go p.Run(pollCtx)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tripID := <-nav.trip:
			cancel()
			a.runTrip(ctx, tripID, models.RolePassenger)
			return
		case <-nav.home:
			cancel()
			return
		case <-ticker.C:
			rp.Tick(time.Now())
		case line, ok := <-a.ui.lines:
			if !ok {
				return
			}
			if line == "c" && a.ui.Confirm("Cancel request", "Stop looking for a driver?") {
				rp.Cancel(ctx)
			}
		}
	}
}

// renderWait prints the driver card the first time one shows up.
func (a *app) renderWait(rp *presenter.RequestPresenter) func(models.RequestSnapshot) {
	var shownDriver bool
	return func(snap models.RequestSnapshot) {
		rp.Apply(snap)
		if snap.Driver != nil && !shownDriver {
			shownDriver = true
			d := snap.Driver
			line := fmt.Sprintf("%s (%.1f★)", d.Name, d.Rating)
			if d.Plate != "" {
				line += " — " + d.Plate
			}
			if snap.ETAMinutes > 0 {
				line += fmt.Sprintf(", about %d min away", snap.ETAMinutes)
			}
			a.ui.Info(line)
		}
	}
}

// flowNav carries presenter navigation onto the view loop's select.
type flowNav struct {
	trip chan string
	home chan struct{}
}

func newFlowNav() *flowNav {
	return &flowNav{trip: make(chan string, 1), home: make(chan struct{}, 1)}
}

func (n *flowNav) ToTrip(tripID string) {
	select {
	case n.trip <- tripID:
	default:
	}
}

func (n *flowNav) ToHome() {
	select {
	case n.home <- struct{}{}:
	default:
	}
}
