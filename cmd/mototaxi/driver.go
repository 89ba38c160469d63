package main

import (
	"context"
	"fmt"
	"time"

	"github.com/example/mototaxi/internal/api"
	"github.com/example/mototaxi/internal/geo"
	"github.com/example/mototaxi/internal/models"
)

func (a *app) isOnline() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.online
}

func (a *app) currentLoc() models.Coord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.driverLoc
}

func (a *app) goOnline(ctx context.Context) {
	loc, ok := a.promptCoord("Your position as lat,lng")
	if !ok {
		return
	}
	if err := a.client.SetAvailability(ctx, models.DriverAvailable); err != nil {
		a.notifyFailure("Could not go online", err)
		return
	}
	repCtx, stop := context.WithCancel(ctx)
	a.mu.Lock()
	a.driverLoc = loc
	a.online = true
	a.stopLoc = stop
	a.mu.Unlock()

	if err := a.client.UpdateLocation(ctx, loc); err != nil {
		a.logger.Warn("location report failed", "error", err)
	}
	go a.reportLocation(repCtx)
	a.ui.Info("You are online")
}

func (a *app) goOffline(ctx context.Context) {
	a.mu.Lock()
	wasOnline := a.online
	a.online = false
	stop := a.stopLoc
	a.stopLoc = nil
	a.mu.Unlock()
	if !wasOnline {
		return
	}
	if stop != nil {
		stop()
	}
	if err := a.client.SetAvailability(ctx, models.DriverUnavailable); err != nil {
		a.logger.Warn("availability update failed", "error", err)
	}
	a.ui.Info("You are offline")
}

// reportLocation re-sends the driver's position on the map cadence so the
// backend's geo index and any watching passengers stay current.
func (a *app) reportLocation(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.MapPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.client.UpdateLocation(ctx, a.currentLoc()); err != nil {
				a.logger.Warn("location report failed", "error", err)
			}
		}
	}
}

func (a *app) browseRequests(ctx context.Context) {
	at := a.currentLoc()
	if at == (models.Coord{}) {
		loc, ok := a.promptCoord("Your position as lat,lng")
		if !ok {
			return
		}
		a.mu.Lock()
		a.driverLoc = loc
		a.mu.Unlock()
		at = loc
	}

	reqs, err := a.client.AvailableRequests(ctx, at, a.cfg.SearchRadiusKm)
	if err != nil {
		a.notifyFailure("Could not load nearby requests", err)
		return
	}
	if len(reqs) == 0 {
		a.ui.Info("No requests nearby")
		return
	}
	labels := make([]string, len(reqs))
	for i, r := range reqs {
		km := geo.Haversine(at.Lat, at.Lng, r.Origin.Coord.Lat, r.Origin.Coord.Lng) / 1000
		labels[i] = fmt.Sprintf("$%.2f (%s)  %.1f km away  %s -> %s",
			r.OfferedPrice, r.PaymentMethod, km, r.Origin.Address, r.Destination.Address)
	}
	idx := a.ui.promptChoice("Nearby requests", labels)
	if idx < 0 {
		return
	}

	tripID, err := a.client.AcceptRequest(ctx, reqs[idx].ID, a.pickMoto(ctx))
	if err != nil {
		a.notifyFailure("Request is no longer available", err)
		return
	}
	a.runTrip(ctx, tripID, models.RoleDriver)
}

// pickMoto returns the moto to attach to the trip, or "" when the driver
// has none registered.
func (a *app) pickMoto(ctx context.Context) string {
	motos, err := a.client.MyMotos(ctx)
	if err != nil || len(motos) == 0 {
		return ""
	}
	if len(motos) == 1 {
		return motos[0].ID
	}
	labels := make([]string, len(motos))
	for i, m := range motos {
		labels[i] = fmt.Sprintf("%s %s — %s", m.Brand, m.Model, m.Plate)
	}
	idx := a.ui.promptChoice("Which moto?", labels)
	if idx < 0 {
		return motos[0].ID
	}
	return motos[idx].ID
}

func (a *app) showMotos(ctx context.Context) {
	motos, err := a.client.MyMotos(ctx)
	if err != nil {
		a.notifyFailure("Could not load motos", err)
		return
	}
	if len(motos) == 0 {
		a.ui.Info("No motos registered yet")
		return
	}
	for _, m := range motos {
		a.ui.printf("  %s %s (%d) — %s", m.Brand, m.Model, m.Year, m.Plate)
	}
}

func (a *app) registerMoto(ctx context.Context) {
	p := api.RegisterMotoParams{
		Plate: a.ui.promptString("Plate"),
		Brand: a.ui.promptString("Brand"),
		Model: a.ui.promptString("Model"),
		Color: a.ui.promptString("Color"),
	}
	if year, err := a.ui.promptInt("Year"); err == nil {
		p.Year = year
	}
	if _, err := a.client.RegisterMoto(ctx, p); err != nil {
		a.notifyFailure("Could not register the moto", err)
		return
	}
	a.ui.Info("Moto registered")
}

func (a *app) promptCoord(label string) (models.Coord, bool) {
	line, ok := a.ui.readLine(label + ":")
	if !ok || line == "" {
		return models.Coord{}, false
	}
	var c models.Coord
	if _, err := fmt.Sscanf(line, "%f,%f", &c.Lat, &c.Lng); err != nil {
		a.ui.Error("Expected lat,lng like -2.17,-79.92")
		return models.Coord{}, false
	}
	return c, true
}
